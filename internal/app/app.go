// Package app wires the repositories, clients and the generation cascade
// into the operations exposed by the CLI and the bot.
package app

import (
	"context"
	"fmt"
	"time"

	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/library"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logger"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/profile"
	"ai-fitness-planner/internal/ratelimit"
)

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	log *logger.Logger

	syncClient   profile.SyncClient
	profileRepo  *profile.Repository
	planRepo     *planner.Repository
	libraryRepo  *library.Repository
	metricsStore *metrics.Store
	guard        *ratelimit.Guard

	generator *planner.Generator
	extractor *library.Extractor
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	log *logger.Logger,
	syncClient profile.SyncClient,
	profileRepo *profile.Repository,
	planRepo *planner.Repository,
	libraryRepo *library.Repository,
	metricsStore *metrics.Store,
	guard *ratelimit.Guard,
	structuredGen llm.StructuredGenerator,
	textGen llm.TextGenerator,
	embedGen llm.EmbeddingGenerator,
) *App {
	return &App{
		cfg:          cfg,
		log:          log,
		syncClient:   syncClient,
		profileRepo:  profileRepo,
		planRepo:     planRepo,
		libraryRepo:  libraryRepo,
		metricsStore: metricsStore,
		guard:        guard,
		generator:    planner.NewGenerator(structuredGen, guard, libraryRepo, log),
		extractor:    library.NewExtractor(textGen, embedGen, libraryRepo),
	}
}

// SyncProfiles pulls all onboarding profiles from the remote service and
// upserts them locally. Returns how many profiles were stored.
func (a *App) SyncProfiles(ctx context.Context) (int, error) {
	profiles, err := a.syncClient.FetchProfiles()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch profiles: %w", err)
	}

	stored := 0
	for _, p := range profiles {
		if p.UserID == "" {
			a.log.Warnw("skipping profile without user id")
			continue
		}
		if err := a.profileRepo.Save(ctx, p); err != nil {
			return stored, fmt.Errorf("failed to store profile %s: %w", p.UserID, err)
		}
		stored++
	}

	a.log.Infow("profile sync complete", "fetched", len(profiles), "stored", stored)
	return stored, nil
}

// GeneratePlan produces and persists a plan for one user. The stored
// onboarding profile is normalized first; a user with no profile gets a
// plan built entirely from defaults. Execution metrics are recorded for
// every remote call the cascade made.
func (a *App) GeneratePlan(ctx context.Context, userID string, kind planner.Kind) (*planner.Plan, error) {
	prefs, err := a.preferencesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, metas, err := a.generator.Generate(ctx, kind, prefs)
	if recErr := a.metricsStore.RecordAll(ctx, metas); recErr != nil {
		a.log.Warnw("failed to record execution metrics", "error", recErr)
	}
	if err != nil {
		return nil, err
	}

	if _, err := a.planRepo.Save(ctx, userID, plan); err != nil {
		return nil, fmt.Errorf("failed to persist plan: %w", err)
	}

	a.log.Infow("plan generated", "user", userID, "kind", kind, "source", plan.Source, "remote_calls", len(metas))
	return plan, nil
}

// RunStrategy runs a single cascade strategy in isolation. Debug surface:
// the result is returned but not persisted.
func (a *App) RunStrategy(ctx context.Context, userID string, strategy planner.Strategy, kind planner.Kind) (*planner.Plan, error) {
	prefs, err := a.preferencesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, metas, err := a.generator.RunStrategy(ctx, strategy, kind, prefs)
	if recErr := a.metricsStore.RecordAll(ctx, metas); recErr != nil {
		a.log.Warnw("failed to record execution metrics", "error", recErr)
	}
	return plan, err
}

// LastPlan returns the most recently generated plan of the given kind, or
// nil if the user has none.
func (a *App) LastPlan(ctx context.Context, userID string, kind planner.Kind) (*planner.StoredPlan, error) {
	return a.planRepo.Latest(ctx, userID, kind)
}

// IngestLibrary fetches the given URLs and adds the items they describe to
// the catalog. Failures on one URL do not stop the rest.
func (a *App) IngestLibrary(ctx context.Context, urls []string, kind string) (saved, skipped int, err error) {
	var firstErr error
	for _, url := range urls {
		result, err := a.extractor.IngestURL(ctx, url, kind)
		if recErr := a.metricsStore.RecordMeta(ctx, result.Meta); recErr != nil {
			a.log.Warnw("failed to record extraction metrics", "error", recErr)
		}
		if err != nil {
			a.log.Warnw("ingestion failed", "url", url, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", url, err)
			}
			continue
		}
		saved += result.Saved
		skipped += result.Skipped
		a.log.Infow("ingested", "url", url, "saved", result.Saved, "skipped", result.Skipped)
	}
	return saved, skipped, firstErr
}

// RateLimitStatus reports whether the advisory flag is set and since when.
func (a *App) RateLimitStatus(ctx context.Context) (bool, time.Time) {
	since, ok := a.guard.LimitedSince(ctx)
	return ok, since
}

// ResetRateLimit clears the advisory flag. Operator action: the flag is
// never cleared automatically.
func (a *App) ResetRateLimit(ctx context.Context) error {
	return a.guard.Reset(ctx)
}

// DailyUsage returns token usage totals for the last N days.
func (a *App) DailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// CleanupMetrics deletes metric rows older than the given number of days.
func (a *App) CleanupMetrics(ctx context.Context, olderThanDays int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, olderThanDays)
}

func (a *App) preferencesFor(ctx context.Context, userID string) (profile.Preferences, error) {
	stored, err := a.profileRepo.Get(ctx, userID)
	if err != nil {
		return profile.Preferences{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if stored == nil {
		a.log.Warnw("no profile found, using defaults", "user", userID)
		stored = &profile.StoredProfile{UserID: userID}
	}
	return profile.Normalize(*stored), nil
}
