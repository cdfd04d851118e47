package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logger"
	"ai-fitness-planner/internal/profile"
	"ai-fitness-planner/internal/ratelimit"
	"ai-fitness-planner/internal/shared"
)

// Strategy names one generation approach. The strategies form a cascade of
// decreasing ambition; Generate walks them in order.
type Strategy string

const (
	StrategyWholePlan Strategy = "whole-plan"
	StrategyDayByDay  Strategy = "day-by-day"
	StrategySlotBatch Strategy = "slot-batch"
	StrategyRepair    Strategy = "repair"
	StrategyStatic    Strategy = "static-fallback"
)

// Strategies returns the cascade's strategy table in attempt order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyWholePlan,
		StrategyDayByDay,
		StrategySlotBatch,
		StrategyRepair,
		StrategyStatic,
	}
}

// How many library item names are cited in the whole-plan prompt.
const varietySampleSize = 12

// VarietySource supplies known unit names for prompt context, to steer the
// model away from repeating the same few items. Optional.
type VarietySource interface {
	SampleNames(ctx context.Context, kind string, n int) ([]string, error)
}

// Generator runs the plan generation cascade. All remote calls go through a
// single StructuredGenerator; the rate-limit guard is consulted before any
// of them and updated when a quota rejection is detected.
type Generator struct {
	gen     llm.StructuredGenerator
	guard   *ratelimit.Guard
	variety VarietySource
	log     *logger.Logger
}

// NewGenerator creates a Generator. variety may be nil.
func NewGenerator(gen llm.StructuredGenerator, guard *ratelimit.Guard, variety VarietySource, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{gen: gen, guard: guard, variety: variety, log: log}
}

// Generate produces a plan satisfying the preferences' requirements. It
// never fails for "the model produced something wrong": every remote error
// degrades to the next strategy and the static fallback backstops the whole
// cascade. The returned metas record token usage per remote attempt.
func (g *Generator) Generate(ctx context.Context, kind Kind, prefs profile.Preferences) (*Plan, []shared.GenerationMeta, error) {
	req := RequirementsFor(kind, prefs)
	var metas []shared.GenerationMeta

	if g.guard.ShouldSkipRemote(ctx) {
		g.log.Infow("rate limit flag set, skipping remote generation", "kind", kind)
		return CreateStaticFallback(kind, prefs), metas, nil
	}

	// Attempt 1: the whole week in one request.
	plan, meta, err := g.generateWholePlan(ctx, kind, prefs, req)
	metas = appendMeta(metas, meta)
	if err == nil {
		g.log.Infow("whole-plan attempt succeeded", "kind", kind)
		return plan, metas, nil
	}
	g.log.Warnw("whole-plan attempt failed", "class", classifyError(err).String(), "error", err)
	if classifyError(err) == ErrorQuota {
		return g.quotaFallback(ctx, kind, prefs, metas)
	}

	// Attempt 2: day by day, degrading to unit by unit inside a failed day.
	days, dayMetas, quotaErr := g.generateDayByDay(ctx, kind, prefs, req)
	metas = append(metas, dayMetas...)
	if quotaErr != nil {
		return g.quotaFallback(ctx, kind, prefs, metas)
	}
	if candidate := assemblePlan(kind, req, days, StrategyDayByDay); req.Satisfied(candidate) {
		g.log.Infow("day-by-day attempt succeeded", "kind", kind)
		return candidate, metas, nil
	}
	g.log.Warnw("day-by-day attempt left gaps", "days_generated", len(days))

	// Attempt 3: one batched request per slot across the remaining days,
	// seeded with attempt 2's output.
	batchDays, batchMetas, quotaErr := g.generateBySlot(ctx, kind, prefs, req, days)
	metas = append(metas, batchMetas...)
	if quotaErr != nil {
		return g.quotaFallback(ctx, kind, prefs, metas)
	}
	for day, pd := range batchDays {
		days[day] = pd
	}
	if candidate := assemblePlan(kind, req, days, StrategySlotBatch); req.Satisfied(candidate) {
		g.log.Infow("slot-batch attempt succeeded", "kind", kind)
		return candidate, metas, nil
	}
	g.log.Warnw("slot-batch attempt left gaps", "days_generated", len(days))

	// Attempt 4: ask the model to repair whatever partial result exists.
	partial := assemblePlan(kind, req, days, StrategyRepair)
	repaired, meta, err := g.repairAndEnrich(ctx, kind, prefs, req, partial)
	metas = appendMeta(metas, meta)
	if err == nil {
		g.log.Infow("repair attempt succeeded", "kind", kind)
		return repaired, metas, nil
	}
	g.log.Warnw("repair attempt failed", "class", classifyError(err).String(), "error", err)
	if classifyError(err) == ErrorQuota {
		return g.quotaFallback(ctx, kind, prefs, metas)
	}

	g.log.Warnw("all remote attempts exhausted, using static fallback", "kind", kind)
	return CreateStaticFallback(kind, prefs), metas, nil
}

// RunStrategy runs a single named strategy directly. This is the supported
// entry point for the debug harness; it bypasses the cascade but not the
// standardization and invariant checks.
func (g *Generator) RunStrategy(ctx context.Context, strategy Strategy, kind Kind, prefs profile.Preferences) (*Plan, []shared.GenerationMeta, error) {
	req := RequirementsFor(kind, prefs)

	switch strategy {
	case StrategyWholePlan:
		plan, meta, err := g.generateWholePlan(ctx, kind, prefs, req)
		return plan, appendMeta(nil, meta), err
	case StrategyDayByDay:
		days, metas, err := g.generateDayByDay(ctx, kind, prefs, req)
		if err != nil {
			return nil, metas, err
		}
		return assemblePlan(kind, req, days, StrategyDayByDay), metas, nil
	case StrategySlotBatch:
		days, metas, err := g.generateBySlot(ctx, kind, prefs, req, nil)
		if err != nil {
			return nil, metas, err
		}
		return assemblePlan(kind, req, days, StrategySlotBatch), metas, nil
	case StrategyRepair:
		empty := assemblePlan(kind, req, nil, StrategyRepair)
		plan, meta, err := g.repairAndEnrich(ctx, kind, prefs, req, empty)
		return plan, appendMeta(nil, meta), err
	case StrategyStatic:
		return CreateStaticFallback(kind, prefs), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func (g *Generator) generateWholePlan(ctx context.Context, kind Kind, prefs profile.Preferences, req Requirements) (*Plan, shared.GenerationMeta, error) {
	var libraryNames []string
	if g.variety != nil {
		names, err := g.variety.SampleNames(ctx, string(kind), varietySampleSize)
		if err != nil {
			g.log.Debugw("variety lookup failed, continuing without it", "error", err)
		} else {
			libraryNames = names
		}
	}

	prompt, err := buildWholePlanPrompt(kind, prefs, req, libraryNames)
	if err != nil {
		return nil, shared.GenerationMeta{}, err
	}

	resp, meta, err := g.call(ctx, StrategyWholePlan, prompt, planSchema(kind))
	if err != nil {
		return nil, meta, err
	}

	// The model client enforced the schema; standardize validates again
	// locally and recomputes aggregates.
	plan, err := Standardize(kind, resp.Content)
	if err != nil {
		return nil, meta, err
	}
	if !req.Satisfied(plan) {
		return nil, meta, &IncompleteError{Day: "week", Got: len(plan.Days), Want: len(req.Days)}
	}
	plan.Source = string(StrategyWholePlan)
	return plan, meta, nil
}

// generateDayByDay generates each active day in calendar order, feeding the
// days generated so far into every subsequent prompt. A failed day degrades
// to unit-by-unit generation for that day only; if it still cannot be
// completed it is dropped rather than included partially. The returned error
// is non-nil only for quota rejections, which abort the remaining days.
func (g *Generator) generateDayByDay(ctx context.Context, kind Kind, prefs profile.Preferences, req Requirements) (map[string]*PlanDay, []shared.GenerationMeta, error) {
	days := make(map[string]*PlanDay)
	var metas []shared.GenerationMeta
	var prior []PlanDay

	for _, dr := range req.ActiveDays() {
		day, meta, err := g.generateSingleDay(ctx, kind, prefs, dr, prior)
		metas = appendMeta(metas, meta)
		if err != nil {
			if classifyError(err) == ErrorQuota {
				return days, metas, err
			}
			g.log.Warnw("day generation failed, degrading to unit-by-unit", "day", dr.Day, "error", err)

			var unitMetas []shared.GenerationMeta
			day, unitMetas, err = g.generateDayUnitByUnit(ctx, kind, prefs, dr, prior)
			metas = append(metas, unitMetas...)
			if err != nil {
				if classifyError(err) == ErrorQuota {
					return days, metas, err
				}
				g.log.Warnw("unit-by-unit generation failed, dropping day", "day", dr.Day, "error", err)
				continue
			}
		}

		if len(day.Units) != len(dr.Slots) {
			g.log.Warnw("day came back incomplete, dropping it", "day", dr.Day, "got", len(day.Units), "want", len(dr.Slots))
			continue
		}

		days[dr.Day] = day
		prior = append(prior, *day)
	}

	return days, metas, nil
}

func (g *Generator) generateSingleDay(ctx context.Context, kind Kind, prefs profile.Preferences, dr DayRequirement, prior []PlanDay) (*PlanDay, shared.GenerationMeta, error) {
	prompt, err := buildSingleDayPrompt(kind, prefs, dr, prior)
	if err != nil {
		return nil, shared.GenerationMeta{}, err
	}

	resp, meta, err := g.call(ctx, StrategyDayByDay, prompt, daySchema(kind))
	if err != nil {
		return nil, meta, err
	}

	day, err := StandardizeDay(kind, resp.Content, dr.Day)
	if err != nil {
		return nil, meta, err
	}
	return day, meta, nil
}

func (g *Generator) generateDayUnitByUnit(ctx context.Context, kind Kind, prefs profile.Preferences, dr DayRequirement, prior []PlanDay) (*PlanDay, []shared.GenerationMeta, error) {
	var metas []shared.GenerationMeta
	day := &PlanDay{Day: dr.Day}

	// Earlier units of the same day join the prior-days context so lunch
	// knows what breakfast was.
	var priorUnits []string
	for _, pd := range prior {
		for _, u := range pd.Units {
			priorUnits = append(priorUnits, u.Name)
		}
	}

	for _, slot := range dr.Slots {
		prompt, err := buildSingleUnitPrompt(kind, prefs, dr.Day, slot, priorUnits)
		if err != nil {
			return nil, metas, err
		}

		resp, meta, err := g.call(ctx, StrategyDayByDay, prompt, unitSchema(kind))
		metas = appendMeta(metas, meta)
		if err != nil {
			return nil, metas, err
		}

		units, err := StandardizeUnits(kind, resp.Content)
		if err != nil {
			return nil, metas, err
		}
		if len(units) == 0 {
			return nil, metas, &IncompleteError{Day: dr.Day, Got: 0, Want: 1}
		}

		unit := units[0]
		unit.Slot = slot
		day.Units = append(day.Units, unit)
		priorUnits = append(priorUnits, unit.Name)
	}

	return day, metas, nil
}

// generateBySlot issues one batched request per slot covering every active
// day not already completed, seeded with the units already generated for
// that slot. Days are reassembled from the batches; a day is kept only if
// every one of its slots came back.
func (g *Generator) generateBySlot(ctx context.Context, kind Kind, prefs profile.Preferences, req Requirements, have map[string]*PlanDay) (map[string]*PlanDay, []shared.GenerationMeta, error) {
	var metas []shared.GenerationMeta

	var missing []DayRequirement
	for _, dr := range req.ActiveDays() {
		if have == nil || have[dr.Day] == nil {
			missing = append(missing, dr)
		}
	}
	if len(missing) == 0 {
		return nil, nil, nil
	}

	// All active days share one slot layout by construction.
	slots := missing[0].Slots
	batchDays := make([]string, len(missing))
	for i, dr := range missing {
		batchDays[i] = dr.Day
	}

	unitsBySlot := make(map[string][]Unit, len(slots))
	for _, slot := range slots {
		var seeds []string
		for _, pd := range have {
			for _, u := range pd.Units {
				if u.Slot == slot {
					seeds = append(seeds, u.Name)
				}
			}
		}

		prompt, err := buildSlotBatchPrompt(kind, prefs, slot, batchDays, seeds)
		if err != nil {
			return nil, metas, err
		}

		resp, meta, err := g.call(ctx, StrategySlotBatch, prompt, unitListSchema(kind))
		metas = appendMeta(metas, meta)
		if err != nil {
			if classifyError(err) == ErrorQuota {
				return nil, metas, err
			}
			g.log.Warnw("slot batch failed", "slot", slot, "error", err)
			continue
		}

		units, err := StandardizeUnits(kind, resp.Content)
		if err != nil {
			g.log.Warnw("slot batch did not standardize", "slot", slot, "error", err)
			continue
		}
		if len(units) < len(missing) {
			g.log.Warnw("slot batch came back short", "slot", slot, "got", len(units), "want", len(missing))
			continue
		}
		unitsBySlot[slot] = units
	}

	// Reassemble: units map onto days positionally, in the order the days
	// were listed in the prompt.
	out := make(map[string]*PlanDay)
	for i, dr := range missing {
		day := &PlanDay{Day: dr.Day}
		complete := true
		for _, slot := range dr.Slots {
			units, ok := unitsBySlot[slot]
			if !ok {
				complete = false
				break
			}
			unit := units[i]
			unit.Slot = slot
			day.Units = append(day.Units, unit)
		}
		if complete {
			recomputeDayAggregates(kind, day)
			out[dr.Day] = day
		}
	}

	return out, metas, nil
}

// repairAndEnrich sends the partial plan back to the model with an explicit
// instruction to complete it, then re-standardizes the result.
func (g *Generator) repairAndEnrich(ctx context.Context, kind Kind, prefs profile.Preferences, req Requirements, partial *Plan) (*Plan, shared.GenerationMeta, error) {
	partialJSON, err := json.Marshal(partial)
	if err != nil {
		return nil, shared.GenerationMeta{}, err
	}

	prompt, err := buildRepairPrompt(kind, prefs, req, string(partialJSON))
	if err != nil {
		return nil, shared.GenerationMeta{}, err
	}

	resp, meta, err := g.call(ctx, StrategyRepair, prompt, planSchema(kind))
	if err != nil {
		return nil, meta, err
	}

	plan, err := Standardize(kind, resp.Content)
	if err != nil {
		return nil, meta, err
	}
	if !req.Satisfied(plan) {
		return nil, meta, &IncompleteError{Day: "week", Got: len(plan.Days), Want: len(req.Days)}
	}
	plan.Source = string(StrategyRepair)
	return plan, meta, nil
}

func (g *Generator) call(ctx context.Context, strategy Strategy, prompt string, schema *llm.Schema) (llm.ContentResponse, shared.GenerationMeta, error) {
	start := time.Now()
	resp, err := g.gen.GenerateStructured(ctx, prompt, schema)
	meta := shared.GenerationMeta{
		Strategy: string(strategy),
		Usage:    resp.Usage,
		Latency:  time.Since(start),
	}
	return resp, meta, err
}

func (g *Generator) quotaFallback(ctx context.Context, kind Kind, prefs profile.Preferences, metas []shared.GenerationMeta) (*Plan, []shared.GenerationMeta, error) {
	if err := g.guard.RecordQuotaError(ctx); err != nil {
		g.log.Errorw("failed to persist rate limit flag", "error", err)
	}
	g.log.Warnw("quota rejection detected, remaining remote attempts skipped", "kind", kind)
	return CreateStaticFallback(kind, prefs), metas, nil
}

// assemblePlan lays the generated days out in canonical order, inserting
// rest days where the requirements have none. Active days with no generated
// content are simply absent; callers check Satisfied before returning the
// plan anywhere.
func assemblePlan(kind Kind, req Requirements, days map[string]*PlanDay, source Strategy) *Plan {
	plan := &Plan{Kind: kind, Source: string(source)}
	for _, dr := range req.Days {
		if len(dr.Slots) == 0 {
			plan.Days = append(plan.Days, PlanDay{Day: dr.Day, Rest: true})
			continue
		}
		if day, ok := days[dr.Day]; ok && day != nil {
			plan.Days = append(plan.Days, *day)
		}
	}
	RecomputeAggregates(plan)
	return plan
}

func appendMeta(metas []shared.GenerationMeta, meta shared.GenerationMeta) []shared.GenerationMeta {
	if meta.Strategy == "" {
		return metas
	}
	return append(metas, meta)
}
