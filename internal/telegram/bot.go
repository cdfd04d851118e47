// Package telegram exposes plan generation over a webhook-driven bot.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/logger"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
)

// Commands understood by the bot.
const (
	cmdWorkout        = "/workout"
	cmdMealPlan       = "/mealplan"
	cmdLastWorkout    = "/lastworkout"
	cmdLastMealPlan   = "/lastmealplan"
	cmdStatus         = "/status"
	cmdRateLimitReset = "/ratelimit_reset"
)

// Bot wraps the Telegram API and the application operations.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config
	log *logger.Logger
}

// NewBot initializes the Telegram Bot and sets the webhook.
func NewBot(cfg *config.Config, application *app.App, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Infow("authorized on telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Infow("webhook set", "response", resp.Description)

	return &Bot{api: api, app: application, cfg: cfg, log: log}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warnw("failed to parse update", "error", err)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if update.Message.From.ID != b.cfg.TelegramAllowUserID {
		b.log.Warnw("unauthorized access attempt",
			"user_id", update.Message.From.ID, "username", update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch command(msg.Text) {
	case cmdWorkout:
		b.handleGenerate(msg, planner.KindWorkout)
	case cmdMealPlan:
		b.handleGenerate(msg, planner.KindMeal)
	case cmdLastWorkout:
		b.handleLastPlan(msg, planner.KindWorkout)
	case cmdLastMealPlan:
		b.handleLastPlan(msg, planner.KindMeal)
	case cmdStatus:
		b.handleStatus(msg)
	case cmdRateLimitReset:
		b.handleRateLimitReset(msg)
	default:
		b.send(msg.Chat.ID, helpText())
	}
}

// command extracts the leading command, tolerating bot-name suffixes and
// trailing arguments.
func command(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

func (b *Bot) handleGenerate(msg *tgbotapi.Message, kind planner.Kind) {
	working := "🏋️ *Generating your workout plan...*"
	if kind == planner.KindMeal {
		working = "🥗 *Generating your meal plan...*"
	}
	sentMsg, err := b.send(msg.Chat.ID, working)
	if err != nil {
		b.log.Warnw("failed to send initial reply", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	userID := fmt.Sprintf("%d", msg.From.ID)
	plan, err := b.app.GeneratePlan(ctx, userID, kind)
	if err != nil {
		b.edit(msg.Chat.ID, sentMsg.MessageID, fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", sanitize(err.Error())))
		return
	}

	b.edit(msg.Chat.ID, sentMsg.MessageID, formatPlanMarkdown(plan))
}

func (b *Bot) handleLastPlan(msg *tgbotapi.Message, kind planner.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := fmt.Sprintf("%d", msg.From.ID)
	stored, err := b.app.LastPlan(ctx, userID, kind)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Error loading your last plan.")
		return
	}
	if stored == nil {
		b.send(msg.Chat.ID, fmt.Sprintf("No %s plan yet. Use %s to generate one.", kind, generateCommand(kind)))
		return
	}

	header := fmt.Sprintf("_Generated %s_\n\n", stored.CreatedAt.Format("2006-01-02 15:04"))
	b.send(msg.Chat.ID, header+formatPlanMarkdown(stored.Plan))
}

func (b *Bot) handleStatus(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("📊 *Status Report*\n\n")

	limited, since := b.app.RateLimitStatus(ctx)
	if limited {
		sb.WriteString(fmt.Sprintf("⛔ *Rate limited* since %s\n", since.Format("2006-01-02 15:04")))
		sb.WriteString("Plans fall back to the built-in templates until " + cmdRateLimitReset + ".\n\n")
	} else {
		sb.WriteString("✅ Model API available\n\n")
	}

	usage, err := b.app.DailyUsage(ctx, 7)
	sb.WriteString("🗓 *Recent Model Activity*\n")
	if err != nil || len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d calls)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	health := metrics.GetSysHealth(b.cfg.DatabasePath)
	sb.WriteString("\n🧠 *Process Health*\n")
	sb.WriteString(fmt.Sprintf("• Heap: %d MB\n", health.HeapMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", health.DBSize))

	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleRateLimitReset(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.app.ResetRateLimit(ctx); err != nil {
		b.send(msg.Chat.ID, "❌ Failed to reset the rate limit flag.")
		return
	}
	b.send(msg.Chat.ID, "✅ Rate limit flag cleared. Remote generation re-enabled.")
}

func (b *Bot) send(chatID int64, text string) (tgbotapi.Message, error) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = "Markdown"
	return b.api.Send(m)
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = "Markdown"
	b.api.Send(e)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

func generateCommand(kind planner.Kind) string {
	if kind == planner.KindMeal {
		return cmdMealPlan
	}
	return cmdWorkout
}

func helpText() string {
	return strings.Join([]string{
		"*Commands*",
		cmdWorkout + " — generate a weekly workout plan",
		cmdMealPlan + " — generate a weekly meal plan",
		cmdLastWorkout + " — show your last workout plan",
		cmdLastMealPlan + " — show your last meal plan",
		cmdStatus + " — usage, health and rate limit state",
		cmdRateLimitReset + " — re-enable remote generation",
	}, "\n")
}

func formatPlanMarkdown(plan *planner.Plan) string {
	var sb strings.Builder
	if plan.Kind == planner.KindMeal {
		sb.WriteString("🥗 *Weekly Meal Plan*")
	} else {
		sb.WriteString("🏋️ *Weekly Workout Plan*")
	}
	if plan.Source == planner.StaticFallbackSource {
		sb.WriteString("\n_Built from templates (model unavailable)_")
	}
	sb.WriteString("\n\n")

	for _, day := range plan.Days {
		if day.Rest {
			sb.WriteString(fmt.Sprintf("*%s*: rest day\n\n", day.Day))
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*", day.Day))
		if plan.Kind == planner.KindMeal {
			sb.WriteString(fmt.Sprintf(" — %d kcal", day.TotalCalories))
		} else if day.TotalMinutes > 0 {
			sb.WriteString(fmt.Sprintf(" — %d min", day.TotalMinutes))
		}
		sb.WriteString("\n")
		for _, u := range day.Units {
			sb.WriteString(fmt.Sprintf("• _%s_: %s", u.Slot, u.Name))
			if plan.Kind == planner.KindMeal && u.Calories > 0 {
				sb.WriteString(fmt.Sprintf(" (%d kcal)", u.Calories))
			}
			if plan.Kind == planner.KindWorkout && u.Sets > 0 {
				sb.WriteString(fmt.Sprintf(" (%d×%d)", u.Sets, u.Reps))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
