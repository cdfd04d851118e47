package planner

import (
	"ai-fitness-planner/internal/profile"
)

// Kind selects the plan variant.
type Kind string

const (
	KindWorkout Kind = "workout"
	KindMeal    Kind = "meal"
)

// Weekdays is the canonical day order. Plans are always assembled in this
// order regardless of the order days were generated in.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Unit is the smallest schedulable item in a plan: one meal or one exercise
// block. Slot identifies its position within the day (breakfast, warmup, ...).
type Unit struct {
	Slot        string `json:"slot"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Meal fields.
	Calories int `json:"calories,omitempty"`
	ProteinG int `json:"protein_g,omitempty"`
	CarbsG   int `json:"carbs_g,omitempty"`
	FatG     int `json:"fat_g,omitempty"`

	// Workout fields.
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Sets            int    `json:"sets,omitempty"`
	Reps            int    `json:"reps,omitempty"`
	Intensity       string `json:"intensity,omitempty"`
}

// PlanDay holds one calendar day's units plus aggregates. Aggregates are
// always recomputed locally from the units; model-reported totals are
// discarded.
type PlanDay struct {
	Day   string `json:"day"`
	Rest  bool   `json:"rest,omitempty"`
	Units []Unit `json:"units"`

	TotalCalories int `json:"total_calories,omitempty"`
	TotalProteinG int `json:"total_protein_g,omitempty"`
	TotalCarbsG   int `json:"total_carbs_g,omitempty"`
	TotalFatG     int `json:"total_fat_g,omitempty"`
	TotalMinutes  int `json:"total_minutes,omitempty"`
}

// Plan is a complete week-structured result. It is only handed to callers
// once it satisfies its Requirements.
type Plan struct {
	Kind   Kind      `json:"kind"`
	Days   []PlanDay `json:"days"`
	Source string    `json:"source,omitempty"`
}

// DayRequirement names the unit slots one calendar day must fill. A rest day
// has no slots.
type DayRequirement struct {
	Day   string
	Slots []string
}

// Requirements is the per-day slot layout a plan must satisfy, derived once
// from the preferences.
type Requirements struct {
	Kind Kind
	Days []DayRequirement
}

var mealSlots = []string{"breakfast", "lunch", "dinner", "snack", "supper"}

// Training days are spread across the week by frequency. Indexes are into
// Weekdays.
var trainingPatterns = map[int][]int{
	1: {0},
	2: {0, 3},
	3: {0, 2, 4},
	4: {0, 1, 3, 4},
	5: {0, 1, 2, 3, 4},
	6: {0, 1, 2, 3, 4, 5},
	7: {0, 1, 2, 3, 4, 5, 6},
}

// RequirementsFor derives the week's slot layout from the preferences.
func RequirementsFor(kind Kind, prefs profile.Preferences) Requirements {
	req := Requirements{Kind: kind}

	switch kind {
	case KindMeal:
		n := prefs.Meal.MealsPerDay
		if n < 1 {
			n = 1
		}
		if n > len(mealSlots) {
			n = len(mealSlots)
		}
		for _, day := range Weekdays {
			req.Days = append(req.Days, DayRequirement{
				Day:   day,
				Slots: append([]string(nil), mealSlots[:n]...),
			})
		}
	default:
		pattern, ok := trainingPatterns[prefs.Workout.DaysPerWeek]
		if !ok {
			pattern = trainingPatterns[3]
		}
		training := make(map[int]bool, len(pattern))
		for _, idx := range pattern {
			training[idx] = true
		}
		slots := workoutSlots(prefs.Workout.SessionMinutes)
		for i, day := range Weekdays {
			dr := DayRequirement{Day: day}
			if training[i] {
				dr.Slots = append([]string(nil), slots...)
			}
			req.Days = append(req.Days, dr)
		}
	}

	return req
}

func workoutSlots(sessionMinutes int) []string {
	switch {
	case sessionMinutes < 30:
		return []string{"warmup", "strength"}
	case sessionMinutes <= 60:
		return []string{"warmup", "strength", "cooldown"}
	default:
		return []string{"warmup", "strength", "conditioning", "cooldown"}
	}
}

// SlotsFor returns the required slots for a day name, or nil for rest days
// and unknown days.
func (r Requirements) SlotsFor(day string) []string {
	for _, dr := range r.Days {
		if dr.Day == day {
			return dr.Slots
		}
	}
	return nil
}

// ActiveDays returns the days that require at least one unit.
func (r Requirements) ActiveDays() []DayRequirement {
	var out []DayRequirement
	for _, dr := range r.Days {
		if len(dr.Slots) > 0 {
			out = append(out, dr)
		}
	}
	return out
}

// Satisfied reports whether the plan covers every required day with the
// required unit count, in canonical day order.
func (r Requirements) Satisfied(p *Plan) bool {
	if p == nil || len(p.Days) != len(r.Days) {
		return false
	}
	for i, dr := range r.Days {
		day := p.Days[i]
		if day.Day != dr.Day {
			return false
		}
		if len(day.Units) != len(dr.Slots) {
			return false
		}
		for _, u := range day.Units {
			if u.Name == "" {
				return false
			}
		}
	}
	return true
}
