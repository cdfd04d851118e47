package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

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
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Close()

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	groqClient := llm.NewGroqClient(cfg)

	var embedGen llm.EmbeddingGenerator = geminiClient
	var cachedGen *llm.CachedEmbeddingGenerator
	if cfg.EmbeddingCachePath != "" {
		cachedGen, err = llm.NewCachedEmbeddingGenerator(geminiClient, cfg.EmbeddingCachePath)
		if err != nil {
			log.Fatalf("Failed to initialize embedding cache: %v", err)
		}
		embedGen = cachedGen
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	application := app.NewApp(
		cfg,
		appLog,
		profile.NewSyncClient(cfg),
		profile.NewRepository(db.SQL),
		planner.NewRepository(db.SQL),
		library.NewRepository(db.SQL),
		metrics.NewStore(db.SQL),
		ratelimit.NewGuard(ratelimit.NewSQLStore(db.SQL)),
		geminiClient,
		groqClient,
		embedGen,
	)

	switch os.Args[1] {
	case "generate-workout":
		runGenerate(ctx, application, planner.KindWorkout)
	case "generate-mealplan":
		runGenerate(ctx, application, planner.KindMeal)
	case "sync-profiles":
		n, err := application.SyncProfiles(ctx)
		if err != nil {
			log.Fatalf("Profile sync failed: %v", err)
		}
		fmt.Printf("Synced %d profiles.\n", n)
	case "ingest-library":
		runIngest(ctx, application)
	case "ratelimit-reset":
		if err := application.ResetRateLimit(ctx); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		fmt.Println("Rate limit flag cleared.")
	case "ratelimit-status":
		limited, since := application.RateLimitStatus(ctx)
		if limited {
			fmt.Printf("Rate limited since %s.\n", since.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Not rate limited.")
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := application.CleanupMetrics(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Removed %d old metric records.\n", affected)
	case "debug-strategy":
		runDebugStrategy(ctx, application)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if cachedGen != nil {
		if err := cachedGen.SaveCache(); err != nil {
			appLog.Warnw("failed to save embedding cache", "error", err)
		}
	}
}

func runGenerate(ctx context.Context, application *app.App, kind planner.Kind) {
	genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	userID := genCmd.String("user", "", "User ID to generate for (required)")
	asJSON := genCmd.Bool("json", false, "Print the plan as JSON")
	genCmd.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal("-user is required")
	}

	plan, err := application.GeneratePlan(ctx, *userID, kind)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	printPlan(plan, *asJSON)
}

func runIngest(ctx context.Context, application *app.App) {
	ingestCmd := flag.NewFlagSet("ingest-library", flag.ExitOnError)
	kind := ingestCmd.String("kind", "meal", "Item kind: meal or workout")
	ingestCmd.Parse(os.Args[2:])

	urls := ingestCmd.Args()
	if len(urls) == 0 {
		log.Fatal("at least one URL is required")
	}
	if *kind != "meal" && *kind != "workout" {
		log.Fatalf("invalid kind %q: want meal or workout", *kind)
	}

	saved, skipped, err := application.IngestLibrary(ctx, urls, *kind)
	fmt.Printf("Saved %d items, skipped %d near-duplicates.\n", saved, skipped)
	if err != nil {
		log.Fatalf("Some URLs failed, first error: %v", err)
	}
}

func runDebugStrategy(ctx context.Context, application *app.App) {
	debugCmd := flag.NewFlagSet("debug-strategy", flag.ExitOnError)
	userID := debugCmd.String("user", "", "User ID to generate for (required)")
	kindFlag := debugCmd.String("kind", "workout", "Plan kind: workout or mealplan")
	strategyFlag := debugCmd.String("strategy", "", "Strategy to run (required)")
	debugCmd.Parse(os.Args[2:])

	if *userID == "" || *strategyFlag == "" {
		log.Fatalf("-user and -strategy are required; strategies: %v", planner.Strategies())
	}

	kind := planner.KindWorkout
	if *kindFlag == "mealplan" || *kindFlag == "meal" {
		kind = planner.KindMeal
	}

	plan, err := application.RunStrategy(ctx, *userID, planner.Strategy(*strategyFlag), kind)
	if err != nil {
		log.Fatalf("Strategy %s failed: %v", *strategyFlag, err)
	}
	printPlan(plan, true)
}

func printPlan(plan *planner.Plan, asJSON bool) {
	if asJSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode plan: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("%s plan (source: %s)\n", plan.Kind, plan.Source)
	for _, day := range plan.Days {
		if day.Rest {
			fmt.Printf("  %-10s rest\n", day.Day)
			continue
		}
		fmt.Printf("  %s\n", day.Day)
		for _, u := range day.Units {
			fmt.Printf("    %-12s %s\n", u.Slot, u.Name)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: ai-fitness-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate-workout   Generate a weekly workout plan   (-user, -json)")
	fmt.Println("  generate-mealplan  Generate a weekly meal plan      (-user, -json)")
	fmt.Println("  sync-profiles      Pull onboarding profiles from the profile service")
	fmt.Println("  ingest-library     Extract items from URLs           (-kind) <url>...")
	fmt.Println("  ratelimit-reset    Clear the persisted rate limit flag")
	fmt.Println("  ratelimit-status   Show the rate limit flag state")
	fmt.Println("  metrics-cleanup    Remove old metric records         (-days)")
	fmt.Println("  debug-strategy     Run a single generation strategy  (-user, -kind, -strategy)")
}
