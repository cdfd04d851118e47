package acceptance_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/database"
	"ai-fitness-planner/internal/library"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logger"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/profile"
	"ai-fitness-planner/internal/ratelimit"
	"ai-fitness-planner/internal/shared"
)

// --- Mock profile service ---
type mockSyncClient struct {
	profiles []profile.StoredProfile
}

func (m *mockSyncClient) FetchProfiles() ([]profile.StoredProfile, error) {
	return m.profiles, nil
}

// --- Mock model clients ---
type mockStructuredGenerator struct {
	calls    int
	failWith error
}

func (m *mockStructuredGenerator) GenerateStructured(_ context.Context, _ string, schema *llm.Schema) (llm.ContentResponse, error) {
	m.calls++
	if m.failWith != nil {
		return llm.ContentResponse{}, m.failWith
	}
	if _, ok := schema.Properties["days"]; !ok {
		return llm.ContentResponse{}, fmt.Errorf("only whole-plan requests expected in this test")
	}

	plan := planner.Plan{Kind: planner.KindMeal}
	for _, day := range planner.Weekdays {
		plan.Days = append(plan.Days, planner.PlanDay{
			Day: day,
			Units: []planner.Unit{
				{Slot: "breakfast", Name: "Oats " + day, Calories: 400, ProteinG: 20, CarbsG: 60, FatG: 10},
				{Slot: "lunch", Name: "Bowl " + day, Calories: 600, ProteinG: 35, CarbsG: 70, FatG: 18},
				{Slot: "dinner", Name: "Stew " + day, Calories: 700, ProteinG: 40, CarbsG: 65, FatG: 22},
			},
		})
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return llm.ContentResponse{}, err
	}
	return llm.ContentResponse{
		Content: string(data),
		Usage:   shared.TokenUsage{PromptTokens: 100, CompletionTokens: 200, TotalTokens: 300, Model: "mock"},
	}, nil
}

type mockTextGenerator struct{}

func (m *mockTextGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: `{"items": []}`}, nil
}

type mockEmbeddingGenerator struct{}

func (m *mockEmbeddingGenerator) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestApp(t *testing.T, dbPath string, gen llm.StructuredGenerator, sync profile.SyncClient) (*app.App, *database.DB) {
	t.Helper()

	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{DatabasePath: dbPath}
	application := app.NewApp(
		cfg,
		logger.NewNop(),
		sync,
		profile.NewRepository(db.SQL),
		planner.NewRepository(db.SQL),
		library.NewRepository(db.SQL),
		metrics.NewStore(db.SQL),
		ratelimit.NewGuard(ratelimit.NewSQLStore(db.SQL)),
		gen,
		&mockTextGenerator{},
		&mockEmbeddingGenerator{},
	)
	return application, db
}

func TestFullGenerationWorkflow(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	meals := 3
	sync := &mockSyncClient{profiles: []profile.StoredProfile{
		{UserID: "user-1", DietType: "vegetarian", MealsPerDay: &meals},
	}}
	gen := &mockStructuredGenerator{}
	application, _ := newTestApp(t, dbPath, gen, sync)

	// Step 1: pull profiles from the (mocked) remote service.
	n, err := application.SyncProfiles(ctx)
	if err != nil {
		t.Fatalf("Profile sync failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 synced profile, got %d", n)
	}

	// Step 2: generate a meal plan.
	plan, err := application.GeneratePlan(ctx, "user-1", planner.KindMeal)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("Expected a single model call, got %d", gen.calls)
	}
	if len(plan.Days) != 7 {
		t.Errorf("Expected 7 days, got %d", len(plan.Days))
	}

	// Step 3: the plan is persisted and retrievable.
	stored, err := application.LastPlan(ctx, "user-1", planner.KindMeal)
	if err != nil {
		t.Fatalf("LastPlan failed: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected a stored plan")
	}
	if stored.Plan.Days[0].Units[0].Name != "Oats Monday" {
		t.Errorf("Stored plan does not match: %+v", stored.Plan.Days[0].Units[0])
	}

	// Step 4: metrics were recorded.
	usage, err := application.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("DailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalExecution != 1 {
		t.Errorf("Expected one recorded execution, got %+v", usage)
	}
}

func TestRateLimitFlagSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	sync := &mockSyncClient{}

	// First "process": the model rejects for quota.
	gen := &mockStructuredGenerator{failWith: &llm.APIError{StatusCode: 429, Body: "quota"}}
	application, db := newTestApp(t, dbPath, gen, sync)

	plan, err := application.GeneratePlan(ctx, "user-1", planner.KindMeal)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if plan.Source != planner.StaticFallbackSource {
		t.Fatalf("Expected static fallback, got source %q", plan.Source)
	}
	if gen.calls != 1 {
		t.Fatalf("Expected 1 model call before the quota stop, got %d", gen.calls)
	}
	db.Close()

	// Second "process" over the same database file: the flag persists and
	// no model call is made at all.
	gen2 := &mockStructuredGenerator{}
	application2, _ := newTestApp(t, dbPath, gen2, sync)

	plan2, err := application2.GeneratePlan(ctx, "user-1", planner.KindMeal)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if plan2.Source != planner.StaticFallbackSource {
		t.Errorf("Expected static fallback while flagged, got %q", plan2.Source)
	}
	if gen2.calls != 0 {
		t.Errorf("Expected zero model calls while flagged, got %d", gen2.calls)
	}

	// Operator reset re-enables remote generation.
	if err := application2.ResetRateLimit(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	plan3, err := application2.GeneratePlan(ctx, "user-1", planner.KindMeal)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if plan3.Source != string(planner.StrategyWholePlan) {
		t.Errorf("Expected whole-plan generation after reset, got %q", plan3.Source)
	}
	if gen2.calls != 1 {
		t.Errorf("Expected 1 model call after reset, got %d", gen2.calls)
	}
}

func TestGenerateWithoutProfileUsesDefaults(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	gen := &mockStructuredGenerator{failWith: fmt.Errorf("model down")}
	application, _ := newTestApp(t, dbPath, gen, &mockSyncClient{})

	plan, err := application.GeneratePlan(ctx, "unknown-user", planner.KindWorkout)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if plan.Source != planner.StaticFallbackSource {
		t.Errorf("Expected static fallback, got %q", plan.Source)
	}
	if len(plan.Days) != 7 {
		t.Errorf("Expected a full week, got %d days", len(plan.Days))
	}
}
