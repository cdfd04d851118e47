package planner

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field-name synonyms seen in model output. Standardization maps all of
// them onto the canonical Plan fields; anything else is dropped.
var (
	daysFields        = []string{"days", "plan", "week", "schedule", "weekly_plan"}
	dayNameFields     = []string{"day", "weekday", "day_of_week", "name"}
	unitsFields       = []string{"units", "meals", "exercises", "blocks", "workouts", "items"}
	unitNameFields    = []string{"name", "title", "meal_name", "exercise_name", "exercise", "meal", "label"}
	slotFields        = []string{"slot", "type", "meal_type", "block", "block_type", "category"}
	descriptionFields = []string{"description", "details", "notes", "instructions"}
	caloriesFields    = []string{"calories", "kcal", "calories_kcal", "energy"}
	proteinFields     = []string{"protein_g", "protein", "protein_grams"}
	carbsFields       = []string{"carbs_g", "carbs", "carbohydrates", "carbohydrates_g"}
	fatFields         = []string{"fat_g", "fat", "fats"}
	durationFields    = []string{"duration_minutes", "minutes", "duration", "time_minutes"}
	setsFields        = []string{"sets"}
	repsFields        = []string{"reps", "repetitions"}
	intensityFields   = []string{"intensity", "effort"}
	restFields        = []string{"rest", "rest_day", "is_rest_day"}
)

// Standardize normalizes a whole-plan model response into a Plan: field-name
// variance is resolved, days are put into canonical weekday order, and all
// aggregates are recomputed from unit-level values. It fails only when
// required unit-level fields are absent; it never invents missing units.
func Standardize(kind Kind, raw string) (*Plan, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	daysValue, ok := pickField(doc, daysFields)
	if !ok {
		return nil, &SchemaError{Reason: "response has no day list"}
	}
	dayList, ok := daysValue.([]interface{})
	if !ok {
		return nil, &SchemaError{Reason: "day list is not an array"}
	}

	byDay := make(map[string]PlanDay, len(dayList))
	var unplaced []PlanDay
	for i, dv := range dayList {
		day, err := standardizeDayValue(kind, dv)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i+1, err)
		}
		if day.Day != "" {
			byDay[day.Day] = *day
		} else {
			unplaced = append(unplaced, *day)
		}
	}

	// Canonical order, with unnamed days filling the remaining gaps in order.
	plan := &Plan{Kind: kind}
	for _, weekday := range Weekdays {
		if day, ok := byDay[weekday]; ok {
			plan.Days = append(plan.Days, day)
			continue
		}
		if len(unplaced) > 0 {
			day := unplaced[0]
			unplaced = unplaced[1:]
			day.Day = weekday
			plan.Days = append(plan.Days, day)
		}
	}

	RecomputeAggregates(plan)
	return plan, nil
}

// StandardizeDay normalizes a single-day response. Accepts either an object
// with a unit list or a bare unit array. The day name is forced to the given
// weekday.
func StandardizeDay(kind Kind, raw string, weekday string) (*PlanDay, error) {
	trimmed := strings.TrimSpace(stripCodeFence(raw))
	if strings.HasPrefix(trimmed, "[") {
		units, err := decodeUnitList(kind, trimmed)
		if err != nil {
			return nil, err
		}
		day := &PlanDay{Day: weekday, Units: units}
		recomputeDayAggregates(kind, day)
		return day, nil
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	day, err := standardizeDayValue(kind, doc)
	if err != nil {
		return nil, err
	}
	day.Day = weekday
	recomputeDayAggregates(kind, day)
	return day, nil
}

// StandardizeUnits normalizes a response holding a flat list of units, as
// returned by the unit-level and slot-batch strategies.
func StandardizeUnits(kind Kind, raw string) ([]Unit, error) {
	trimmed := strings.TrimSpace(stripCodeFence(raw))
	if strings.HasPrefix(trimmed, "[") {
		return decodeUnitList(kind, trimmed)
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	if unitsValue, ok := pickField(doc, unitsFields); ok {
		list, ok := unitsValue.([]interface{})
		if !ok {
			return nil, &SchemaError{Reason: "unit list is not an array"}
		}
		return standardizeUnitList(kind, list)
	}

	// A bare single unit object.
	unit, err := standardizeUnitValue(kind, doc, "")
	if err != nil {
		return nil, err
	}
	return []Unit{unit}, nil
}

func standardizeDayValue(kind Kind, value interface{}) (*PlanDay, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, &SchemaError{Reason: "day entry is not an object"}
	}

	day := &PlanDay{}
	if nameValue, ok := pickField(obj, dayNameFields); ok {
		day.Day = canonicalDay(asString(nameValue))
	}
	if restValue, ok := pickField(obj, restFields); ok {
		if rest, ok := restValue.(bool); ok {
			day.Rest = rest
		}
	}

	unitsValue, ok := pickField(obj, unitsFields)
	if !ok {
		if day.Rest {
			return day, nil
		}
		return nil, &SchemaError{Reason: "day entry has no unit list"}
	}
	list, ok := unitsValue.([]interface{})
	if !ok {
		return nil, &SchemaError{Reason: "unit list is not an array"}
	}

	units, err := standardizeUnitList(kind, list)
	if err != nil {
		return nil, err
	}
	day.Units = units
	return day, nil
}

func standardizeUnitList(kind Kind, list []interface{}) ([]Unit, error) {
	units := make([]Unit, 0, len(list))
	for i, uv := range list {
		unit, err := standardizeUnitValue(kind, uv, "")
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i+1, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

func standardizeUnitValue(kind Kind, value interface{}, fallbackSlot string) (Unit, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return Unit{}, &SchemaError{Reason: "unit entry is not an object"}
	}

	unit := Unit{Slot: fallbackSlot}
	if nameValue, ok := pickField(obj, unitNameFields); ok {
		unit.Name = strings.TrimSpace(asString(nameValue))
	}
	if unit.Name == "" {
		return Unit{}, &SchemaError{Reason: "unit has no name"}
	}

	if slotValue, ok := pickField(obj, slotFields); ok {
		if slot := strings.ToLower(strings.TrimSpace(asString(slotValue))); slot != "" {
			unit.Slot = slot
		}
	}
	if descValue, ok := pickField(obj, descriptionFields); ok {
		unit.Description = strings.TrimSpace(asString(descValue))
	}

	switch kind {
	case KindMeal:
		unit.Calories = pickInt(obj, caloriesFields)
		unit.ProteinG = pickInt(obj, proteinFields)
		unit.CarbsG = pickInt(obj, carbsFields)
		unit.FatG = pickInt(obj, fatFields)
	default:
		unit.DurationMinutes = pickInt(obj, durationFields)
		unit.Sets = pickInt(obj, setsFields)
		unit.Reps = pickInt(obj, repsFields)
		if intensityValue, ok := pickField(obj, intensityFields); ok {
			unit.Intensity = strings.ToLower(strings.TrimSpace(asString(intensityValue)))
		}
	}

	return unit, nil
}

// RecomputeAggregates recalculates every day's totals from its units,
// discarding whatever totals the model reported.
func RecomputeAggregates(p *Plan) {
	for i := range p.Days {
		recomputeDayAggregates(p.Kind, &p.Days[i])
	}
}

func recomputeDayAggregates(kind Kind, day *PlanDay) {
	day.TotalCalories = 0
	day.TotalProteinG = 0
	day.TotalCarbsG = 0
	day.TotalFatG = 0
	day.TotalMinutes = 0

	for _, u := range day.Units {
		switch kind {
		case KindMeal:
			day.TotalCalories += u.Calories
			day.TotalProteinG += u.ProteinG
			day.TotalCarbsG += u.CarbsG
			day.TotalFatG += u.FatG
		default:
			day.TotalMinutes += u.DurationMinutes
		}
	}
}

func decodeObject(raw string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	return doc, nil
}

func decodeUnitList(kind Kind, raw string) ([]Unit, error) {
	var list []interface{}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	return standardizeUnitList(kind, list)
}

// stripCodeFence removes a markdown code fence if the model wrapped its JSON
// in one despite the JSON response mode.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func pickField(obj map[string]interface{}, names []string) (interface{}, bool) {
	for _, name := range names {
		if v, ok := obj[name]; ok && v != nil {
			return v, true
		}
	}
	// Case-insensitive second pass for CamelCase variants.
	for key, v := range obj {
		if v == nil {
			continue
		}
		lower := strings.ToLower(key)
		for _, name := range names {
			if lower == name || strings.ReplaceAll(lower, " ", "_") == name {
				return v, true
			}
		}
	}
	return nil, false
}

func pickInt(obj map[string]interface{}, names []string) int {
	v, ok := pickField(obj, names)
	if !ok {
		return 0
	}
	return asInt(v)
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		// Models sometimes answer "450 kcal" or "12-15".
		fields := strings.FieldsFunc(t, func(r rune) bool {
			return r < '0' || r > '9'
		})
		if len(fields) == 0 {
			return 0
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// canonicalDay maps a model-reported day name onto the canonical weekday, or
// "" when it cannot be placed. "Day 3"-style names map by position.
func canonicalDay(name string) string {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return ""
	}

	for _, weekday := range Weekdays {
		if strings.HasPrefix(trimmed, strings.ToLower(weekday[:3])) {
			return weekday
		}
	}

	digits := strings.TrimPrefix(trimmed, "day")
	digits = strings.TrimSpace(digits)
	if n, err := strconv.Atoi(digits); err == nil && n >= 1 && n <= len(Weekdays) {
		return Weekdays[n-1]
	}

	return ""
}
