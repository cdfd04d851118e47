package planner

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"ai-fitness-planner/internal/profile"
)

//go:embed whole_plan_prompt.md
var wholePlanPrompt string

//go:embed single_day_prompt.md
var singleDayPrompt string

//go:embed single_unit_prompt.md
var singleUnitPrompt string

//go:embed slot_batch_prompt.md
var slotBatchPrompt string

//go:embed repair_prompt.md
var repairPrompt string

type requirementLine struct {
	Day      string
	SlotList string
}

type priorDayLine struct {
	Day      string
	NameList string
}

type promptData struct {
	KindNoun  string // "workout" / "meal"
	KindTitle string
	UnitNoun  string // "exercise block" / "meal"
	UnitTitle string
	CoachNoun string // "strength coach" / "nutritionist"

	Preferences  string
	Requirements []requirementLine
	LibraryNames []string

	Day        string
	Slot       string
	SlotList   string
	PriorDays  []priorDayLine
	PriorUnits []string

	BatchDays  []string
	BatchCount int
	SeedNames  []string

	PartialJSON string
}

func newPromptData(kind Kind, prefs profile.Preferences) promptData {
	data := promptData{Preferences: describePreferences(kind, prefs)}
	if kind == KindMeal {
		data.KindNoun = "meal"
		data.KindTitle = "Meal"
		data.UnitNoun = "meal"
		data.UnitTitle = "Meal"
		data.CoachNoun = "nutritionist"
	} else {
		data.KindNoun = "workout"
		data.KindTitle = "Workout"
		data.UnitNoun = "exercise block"
		data.UnitTitle = "Exercise Block"
		data.CoachNoun = "strength and conditioning coach"
	}
	return data
}

func requirementLines(req Requirements) []requirementLine {
	lines := make([]requirementLine, 0, len(req.Days))
	for _, dr := range req.Days {
		slotList := "rest"
		if len(dr.Slots) > 0 {
			slotList = strings.Join(dr.Slots, ", ")
		}
		lines = append(lines, requirementLine{Day: dr.Day, SlotList: slotList})
	}
	return lines
}

func priorDayLines(prior []PlanDay) []priorDayLine {
	var lines []priorDayLine
	for _, day := range prior {
		if len(day.Units) == 0 {
			continue
		}
		names := make([]string, 0, len(day.Units))
		for _, u := range day.Units {
			names = append(names, u.Name)
		}
		lines = append(lines, priorDayLine{Day: day.Day, NameList: strings.Join(names, ", ")})
	}
	return lines
}

func describePreferences(kind Kind, prefs profile.Preferences) string {
	var sb strings.Builder
	if kind == KindMeal {
		m := prefs.Meal
		fmt.Fprintf(&sb, "- Diet type: %s\n", m.DietType)
		fmt.Fprintf(&sb, "- Meals per day: %d\n", m.MealsPerDay)
		fmt.Fprintf(&sb, "- Daily calorie target: %d kcal\n", m.CalorieTarget)
		if len(m.Allergies) > 0 {
			fmt.Fprintf(&sb, "- Allergies (never include): %s\n", strings.Join(m.Allergies, ", "))
		}
		if len(m.Cuisines) > 0 {
			fmt.Fprintf(&sb, "- Preferred cuisines: %s\n", strings.Join(m.Cuisines, ", "))
		}
		if m.Exclusions != "" {
			fmt.Fprintf(&sb, "- Excluded foods: %s\n", m.Exclusions)
		}
	} else {
		w := prefs.Workout
		fmt.Fprintf(&sb, "- Fitness level: %s\n", w.Level)
		fmt.Fprintf(&sb, "- Training days per week: %d\n", w.DaysPerWeek)
		fmt.Fprintf(&sb, "- Session length: %d minutes\n", w.SessionMinutes)
		fmt.Fprintf(&sb, "- Available equipment: %s\n", strings.Join(w.Equipment, ", "))
		fmt.Fprintf(&sb, "- Focus areas: %s\n", strings.Join(w.FocusAreas, ", "))
		if len(w.Injuries) > 0 {
			fmt.Fprintf(&sb, "- Injuries to work around: %s\n", strings.Join(w.Injuries, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func buildWholePlanPrompt(kind Kind, prefs profile.Preferences, req Requirements, libraryNames []string) (string, error) {
	data := newPromptData(kind, prefs)
	data.Requirements = requirementLines(req)
	data.LibraryNames = libraryNames
	return renderPrompt("whole_plan", wholePlanPrompt, data)
}

func buildSingleDayPrompt(kind Kind, prefs profile.Preferences, dr DayRequirement, prior []PlanDay) (string, error) {
	data := newPromptData(kind, prefs)
	data.Day = dr.Day
	data.SlotList = strings.Join(dr.Slots, ", ")
	data.PriorDays = priorDayLines(prior)
	return renderPrompt("single_day", singleDayPrompt, data)
}

func buildSingleUnitPrompt(kind Kind, prefs profile.Preferences, day, slot string, priorUnits []string) (string, error) {
	data := newPromptData(kind, prefs)
	data.Day = day
	data.Slot = slot
	data.PriorUnits = priorUnits
	return renderPrompt("single_unit", singleUnitPrompt, data)
}

func buildSlotBatchPrompt(kind Kind, prefs profile.Preferences, slot string, batchDays, seedNames []string) (string, error) {
	data := newPromptData(kind, prefs)
	data.Slot = slot
	data.BatchDays = batchDays
	data.BatchCount = len(batchDays)
	data.SeedNames = seedNames
	return renderPrompt("slot_batch", slotBatchPrompt, data)
}

func buildRepairPrompt(kind Kind, prefs profile.Preferences, req Requirements, partialJSON string) (string, error) {
	data := newPromptData(kind, prefs)
	data.Requirements = requirementLines(req)
	data.PartialJSON = partialJSON
	return renderPrompt("repair", repairPrompt, data)
}

func renderPrompt(name, text string, data promptData) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
