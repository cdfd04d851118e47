package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logger"
	"ai-fitness-planner/internal/profile"
	"ai-fitness-planner/internal/ratelimit"
	"ai-fitness-planner/internal/shared"
)

// fakeStructuredGenerator scripts responses per call. Each call records the
// prompt and the shape of the requested schema.
type fakeStructuredGenerator struct {
	respond func(call int, prompt string, shape string) (string, error)

	calls   int
	prompts []string
	shapes  []string
}

func (f *fakeStructuredGenerator) GenerateStructured(_ context.Context, prompt string, schema *llm.Schema) (llm.ContentResponse, error) {
	call := f.calls
	f.calls++
	shape := schemaShape(schema)
	f.prompts = append(f.prompts, prompt)
	f.shapes = append(f.shapes, shape)

	content, err := f.respond(call, prompt, shape)
	if err != nil {
		return llm.ContentResponse{}, err
	}
	return llm.ContentResponse{
		Content: content,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "fake"},
	}, nil
}

// schemaShape names which of the four response schemas was requested.
func schemaShape(s *llm.Schema) string {
	if s == nil {
		return "none"
	}
	if _, ok := s.Properties["days"]; ok {
		return "plan"
	}
	if _, ok := s.Properties["day"]; ok {
		return "day"
	}
	if _, ok := s.Properties["units"]; ok {
		return "unit-list"
	}
	return "unit"
}

type memFlagStore struct {
	flags map[string]string
}

func newMemFlagStore() *memFlagStore {
	return &memFlagStore{flags: map[string]string{}}
}

func (s *memFlagStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.flags[key]
	return v, ok, nil
}

func (s *memFlagStore) Set(_ context.Context, key, value string) error {
	s.flags[key] = value
	return nil
}

func (s *memFlagStore) Delete(_ context.Context, key string) error {
	delete(s.flags, key)
	return nil
}

func mealPrefs() profile.Preferences {
	return profile.Preferences{
		UserID: "user-1",
		Meal: profile.MealPreferences{
			DietType:      "balanced",
			MealsPerDay:   3,
			CalorieTarget: 2000,
		},
		Workout: profile.WorkoutPreferences{
			Level:          "intermediate",
			DaysPerWeek:    3,
			SessionMinutes: 45,
		},
	}
}

func mealUnitJSON(name string) string {
	return fmt.Sprintf(`{"slot": "breakfast", "name": %q, "description": "test meal", "calories": 400, "protein_g": 25, "carbs_g": 40, "fat_g": 12}`, name)
}

func mealDayJSON(day string, n int) string {
	units := make([]string, 0, 3)
	for _, slot := range []string{"breakfast", "lunch", "dinner"} {
		units = append(units, fmt.Sprintf(
			`{"slot": %q, "name": "%s %s %d", "calories": 500, "protein_g": 30, "carbs_g": 50, "fat_g": 15}`,
			slot, slot, day, n,
		))
	}
	return fmt.Sprintf(`{"day": %q, "units": [%s]}`, day, strings.Join(units, ","))
}

func wholeMealPlanJSON() string {
	days := make([]string, 0, len(Weekdays))
	for i, day := range Weekdays {
		days = append(days, mealDayJSON(day, i))
	}
	return fmt.Sprintf(`{"days": [%s]}`, strings.Join(days, ","))
}

func newTestGenerator(fake *fakeStructuredGenerator, store ratelimit.Store) (*Generator, *ratelimit.Guard) {
	guard := ratelimit.NewGuard(store)
	return NewGenerator(fake, guard, nil, logger.NewNop()), guard
}

func TestGenerateWholePlanFirstTry(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			return wholeMealPlanJSON(), nil
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, metas, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 remote call, got %d", fake.calls)
	}
	if plan.Source != string(StrategyWholePlan) {
		t.Errorf("expected source %q, got %q", StrategyWholePlan, plan.Source)
	}
	req := RequirementsFor(KindMeal, mealPrefs())
	if !req.Satisfied(plan) {
		t.Error("plan does not satisfy its requirements")
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 meta, got %d", len(metas))
	}
	if metas[0].Strategy != string(StrategyWholePlan) || metas[0].Usage.TotalTokens != 30 {
		t.Errorf("unexpected meta: %+v", metas[0])
	}
}

func TestGenerateSkipsRemoteWhenRateLimited(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			return wholeMealPlanJSON(), nil
		},
	}
	store := newMemFlagStore()
	gen, guard := newTestGenerator(fake, store)
	if err := guard.RecordQuotaError(context.Background()); err != nil {
		t.Fatal(err)
	}

	plan, metas, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("expected zero remote calls, got %d", fake.calls)
	}
	if plan.Source != StaticFallbackSource {
		t.Errorf("expected static fallback, got source %q", plan.Source)
	}
	if len(metas) != 0 {
		t.Errorf("expected no metas, got %d", len(metas))
	}
}

func TestGenerateQuotaErrorSetsFlagAndStops(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			return "", &llm.APIError{StatusCode: 429, Body: "rate limited"}
		},
	}
	store := newMemFlagStore()
	gen, guard := newTestGenerator(fake, store)

	plan, _, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected the cascade to stop after 1 call, got %d", fake.calls)
	}
	if plan.Source != StaticFallbackSource {
		t.Errorf("expected static fallback, got source %q", plan.Source)
	}
	if !guard.ShouldSkipRemote(context.Background()) {
		t.Error("quota error did not persist the rate limit flag")
	}
}

func TestGenerateQuotaErrorMidCascadeStops(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			if call == 0 {
				return "not json", nil
			}
			return "", &llm.APIError{StatusCode: 429, Body: "rate limited"}
		},
	}
	store := newMemFlagStore()
	gen, guard := newTestGenerator(fake, store)

	plan, _, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("expected 2 calls (failed whole plan, quota on first day), got %d", fake.calls)
	}
	if plan.Source != StaticFallbackSource {
		t.Errorf("expected static fallback, got source %q", plan.Source)
	}
	if !guard.ShouldSkipRemote(context.Background()) {
		t.Error("quota error did not persist the rate limit flag")
	}
}

func TestGenerateFallsBackToDayByDay(t *testing.T) {
	dayCalls := 0
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			if shape == "plan" {
				return "not json at all", nil
			}
			if shape != "day" {
				t.Errorf("unexpected schema shape %q", shape)
			}
			dayCalls++
			return mealDayJSON("ignored", dayCalls), nil
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, metas, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if fake.calls != 1+len(Weekdays) {
		t.Errorf("expected %d calls, got %d", 1+len(Weekdays), fake.calls)
	}
	if plan.Source != string(StrategyDayByDay) {
		t.Errorf("expected source %q, got %q", StrategyDayByDay, plan.Source)
	}
	req := RequirementsFor(KindMeal, mealPrefs())
	if !req.Satisfied(plan) {
		t.Error("plan does not satisfy its requirements")
	}
	// Day names follow the requirement, not whatever the model answered.
	for i, day := range plan.Days {
		if day.Day != Weekdays[i] {
			t.Errorf("day %d: expected %s, got %s", i, Weekdays[i], day.Day)
		}
	}
	if len(metas) != 1+len(Weekdays) {
		t.Errorf("expected a meta per call, got %d", len(metas))
	}
}

func TestDayByDayPromptCarriesPriorDays(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			if shape == "plan" {
				return "not json", nil
			}
			return mealDayJSON("ignored", call), nil
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	if _, _, err := gen.Generate(context.Background(), KindMeal, mealPrefs()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// Call 1 generated Monday with units named "... 1"; call 2 (Tuesday)
	// must carry those names as context to avoid repeats.
	if len(fake.prompts) < 3 {
		t.Fatalf("expected at least 3 calls, got %d", len(fake.prompts))
	}
	tuesdayPrompt := fake.prompts[2]
	if !strings.Contains(tuesdayPrompt, "breakfast ignored 1") {
		t.Errorf("second day prompt does not mention the first day's units:\n%s", tuesdayPrompt)
	}
}

func TestGenerateRecoversFailedDaysViaSlotBatch(t *testing.T) {
	failedDays := map[string]bool{"Wednesday": true, "Friday": true}
	dayCalls := 0
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			switch shape {
			case "plan":
				return "not json", nil
			case "day":
				dayCalls++
				for day := range failedDays {
					if strings.Contains(prompt, day) {
						return "", fmt.Errorf("model unavailable")
					}
				}
				return mealDayJSON("ignored", dayCalls), nil
			case "unit":
				// Unit-by-unit degradation for the failed days also fails.
				return "", fmt.Errorf("model unavailable")
			case "unit-list":
				units := []string{mealUnitJSON("Batch Meal A"), mealUnitJSON("Batch Meal B")}
				return fmt.Sprintf(`{"units": [%s]}`, strings.Join(units, ",")), nil
			}
			return "", fmt.Errorf("unexpected shape %q", shape)
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, _, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if plan.Source != string(StrategySlotBatch) {
		t.Errorf("expected source %q, got %q", StrategySlotBatch, plan.Source)
	}
	req := RequirementsFor(KindMeal, mealPrefs())
	if !req.Satisfied(plan) {
		t.Fatal("plan does not satisfy its requirements")
	}

	// Wednesday and Friday were filled from the batches, positionally.
	for i, day := range plan.Days {
		if day.Day != Weekdays[i] {
			t.Fatalf("day %d out of order: %s", i, day.Day)
		}
		if failedDays[day.Day] {
			for _, u := range day.Units {
				if !strings.HasPrefix(u.Name, "Batch Meal") {
					t.Errorf("%s unit %q did not come from the slot batch", day.Day, u.Name)
				}
			}
		}
	}
}

func TestGenerateRepairsPartialPlan(t *testing.T) {
	planCalls := 0
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			if shape == "plan" {
				planCalls++
				if planCalls == 1 {
					return "not json", nil
				}
				// The repair prompt includes the partial plan.
				if !strings.Contains(prompt, `"kind"`) {
					t.Error("repair prompt does not embed the partial plan")
				}
				return wholeMealPlanJSON(), nil
			}
			return "", fmt.Errorf("model unavailable")
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, _, err := gen.Generate(context.Background(), KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if plan.Source != string(StrategyRepair) {
		t.Errorf("expected source %q, got %q", StrategyRepair, plan.Source)
	}
	if planCalls != 2 {
		t.Errorf("expected 2 whole-plan-shaped calls, got %d", planCalls)
	}
}

func TestGenerateNeverFails(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	for _, kind := range []Kind{KindMeal, KindWorkout} {
		plan, _, err := gen.Generate(context.Background(), kind, mealPrefs())
		if err != nil {
			t.Fatalf("%s: Generate returned error: %v", kind, err)
		}
		if plan.Source != StaticFallbackSource {
			t.Errorf("%s: expected static fallback, got source %q", kind, plan.Source)
		}
		req := RequirementsFor(kind, mealPrefs())
		if !req.Satisfied(plan) {
			t.Errorf("%s: fallback plan does not satisfy its requirements", kind)
		}
	}
}

func TestGenerateWorkoutPlan(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			req := RequirementsFor(KindWorkout, mealPrefs())
			plan := Plan{Kind: KindWorkout}
			for _, dr := range req.Days {
				day := PlanDay{Day: dr.Day, Rest: len(dr.Slots) == 0}
				for _, slot := range dr.Slots {
					day.Units = append(day.Units, Unit{
						Slot: slot, Name: "Block " + slot, DurationMinutes: 15,
						Sets: 3, Reps: 10, Intensity: "moderate",
					})
				}
				plan.Days = append(plan.Days, day)
			}
			data, err := json.Marshal(plan)
			return string(data), err
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, _, err := gen.Generate(context.Background(), KindWorkout, mealPrefs())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	req := RequirementsFor(KindWorkout, mealPrefs())
	if !req.Satisfied(plan) {
		t.Fatal("plan does not satisfy its requirements")
	}
	// 3 training days, 45 min sessions: warmup, strength, cooldown.
	monday := plan.Days[0]
	if len(monday.Units) != 3 {
		t.Fatalf("expected 3 units on Monday, got %d", len(monday.Units))
	}
	if monday.TotalMinutes != 45 {
		t.Errorf("expected recomputed total of 45 minutes, got %d", monday.TotalMinutes)
	}
	if !plan.Days[1].Rest {
		t.Error("Tuesday should be a rest day at 3 days per week")
	}
}

func TestRunStrategyStatic(t *testing.T) {
	fake := &fakeStructuredGenerator{
		respond: func(call int, prompt, shape string) (string, error) {
			t.Error("static strategy must not call the model")
			return "", nil
		},
	}
	gen, _ := newTestGenerator(fake, newMemFlagStore())

	plan, metas, err := gen.RunStrategy(context.Background(), StrategyStatic, KindMeal, mealPrefs())
	if err != nil {
		t.Fatalf("RunStrategy returned error: %v", err)
	}
	if plan.Source != StaticFallbackSource {
		t.Errorf("unexpected source %q", plan.Source)
	}
	if len(metas) != 0 {
		t.Errorf("expected no metas, got %d", len(metas))
	}
}

func TestRunStrategyUnknown(t *testing.T) {
	gen, _ := newTestGenerator(&fakeStructuredGenerator{}, newMemFlagStore())
	if _, _, err := gen.RunStrategy(context.Background(), Strategy("bogus"), KindMeal, mealPrefs()); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}
