package planner

import (
	"errors"
	"strings"
	"testing"
)

func TestStandardizeCanonicalInput(t *testing.T) {
	raw := `{
		"days": [
			{"day": "Monday", "units": [
				{"slot": "breakfast", "name": "Oatmeal", "calories": 400, "protein_g": 20, "carbs_g": 60, "fat_g": 10},
				{"slot": "dinner", "name": "Salmon Bowl", "calories": 600, "protein_g": 40, "carbs_g": 50, "fat_g": 20}
			]}
		]
	}`

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if len(plan.Days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(plan.Days))
	}
	day := plan.Days[0]
	if day.Day != "Monday" || len(day.Units) != 2 {
		t.Fatalf("unexpected day: %+v", day)
	}
	if day.TotalCalories != 1000 || day.TotalProteinG != 60 {
		t.Errorf("aggregates not recomputed: %+v", day)
	}
}

func TestStandardizeFieldSynonyms(t *testing.T) {
	raw := `{
		"plan": [
			{"weekday": "tue", "meals": [
				{"meal_name": "Lentil Soup", "meal_type": "lunch", "kcal": "450 kcal", "protein": 22, "carbohydrates": 55, "fats": 12}
			]}
		]
	}`

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if len(plan.Days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(plan.Days))
	}
	day := plan.Days[0]
	if day.Day != "Tuesday" {
		t.Errorf("expected Tuesday from %q, got %q", "tue", day.Day)
	}
	unit := day.Units[0]
	if unit.Name != "Lentil Soup" || unit.Slot != "lunch" {
		t.Errorf("unexpected unit: %+v", unit)
	}
	if unit.Calories != 450 {
		t.Errorf("expected 450 from %q, got %d", "450 kcal", unit.Calories)
	}
	if unit.ProteinG != 22 || unit.CarbsG != 55 || unit.FatG != 12 {
		t.Errorf("macro synonyms not mapped: %+v", unit)
	}
}

func TestStandardizeDiscardsModelTotals(t *testing.T) {
	raw := `{
		"days": [
			{"day": "Monday", "total_calories": 99999, "units": [
				{"slot": "breakfast", "name": "Toast", "calories": 300, "protein_g": 10, "carbs_g": 40, "fat_g": 8}
			]}
		]
	}`

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if got := plan.Days[0].TotalCalories; got != 300 {
		t.Errorf("expected recomputed total of 300, got %d", got)
	}
}

func TestStandardizePositionalDayNames(t *testing.T) {
	raw := `{
		"days": [
			{"day": "Day 1", "units": [{"name": "A", "slot": "breakfast"}]},
			{"day": "Day 2", "units": [{"name": "B", "slot": "breakfast"}]}
		]
	}`

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if plan.Days[0].Day != "Monday" || plan.Days[1].Day != "Tuesday" {
		t.Errorf("positional day names not mapped: %s, %s", plan.Days[0].Day, plan.Days[1].Day)
	}
}

func TestStandardizeReordersDays(t *testing.T) {
	raw := `{
		"days": [
			{"day": "Friday", "units": [{"name": "A", "slot": "breakfast"}]},
			{"day": "Monday", "units": [{"name": "B", "slot": "breakfast"}]}
		]
	}`

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if plan.Days[0].Day != "Monday" || plan.Days[1].Day != "Friday" {
		t.Errorf("days not in canonical order: %s, %s", plan.Days[0].Day, plan.Days[1].Day)
	}
}

func TestStandardizeStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"days\": [{\"day\": \"Monday\", \"units\": [{\"name\": \"A\", \"slot\": \"breakfast\"}]}]}\n```"

	plan, err := Standardize(KindMeal, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	if len(plan.Days) != 1 {
		t.Errorf("expected 1 day, got %d", len(plan.Days))
	}
}

func TestStandardizeSchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "the model apologizes"},
		{"no day list", `{"greeting": "hello"}`},
		{"day list not array", `{"days": "Monday"}`},
		{"unit without name", `{"days": [{"day": "Monday", "units": [{"slot": "breakfast"}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Standardize(KindMeal, tc.raw)
			if err == nil {
				t.Fatal("expected an error")
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Errorf("expected a SchemaError, got %T: %v", err, err)
			}
			if classifyError(err) != ErrorSchema {
				t.Errorf("expected schema classification, got %s", classifyError(err))
			}
		})
	}
}

func TestStandardizeDayForcesWeekday(t *testing.T) {
	raw := `{"day": "whenever", "units": [{"name": "Oatmeal", "slot": "breakfast", "calories": 400}]}`

	day, err := StandardizeDay(KindMeal, raw, "Thursday")
	if err != nil {
		t.Fatalf("StandardizeDay returned error: %v", err)
	}
	if day.Day != "Thursday" {
		t.Errorf("expected Thursday, got %q", day.Day)
	}
	if day.TotalCalories != 400 {
		t.Errorf("aggregates not recomputed: %d", day.TotalCalories)
	}
}

func TestStandardizeDayAcceptsBareArray(t *testing.T) {
	raw := `[{"name": "Oatmeal", "slot": "breakfast"}, {"name": "Salad", "slot": "lunch"}]`

	day, err := StandardizeDay(KindMeal, raw, "Monday")
	if err != nil {
		t.Fatalf("StandardizeDay returned error: %v", err)
	}
	if len(day.Units) != 2 {
		t.Errorf("expected 2 units, got %d", len(day.Units))
	}
}

func TestStandardizeUnitsShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"wrapped list", `{"units": [{"name": "A", "slot": "breakfast"}, {"name": "B", "slot": "breakfast"}]}`, 2},
		{"bare array", `[{"name": "A", "slot": "breakfast"}]`, 1},
		{"single object", `{"name": "A", "slot": "breakfast"}`, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			units, err := StandardizeUnits(KindMeal, tc.raw)
			if err != nil {
				t.Fatalf("StandardizeUnits returned error: %v", err)
			}
			if len(units) != tc.want {
				t.Errorf("expected %d units, got %d", tc.want, len(units))
			}
		})
	}
}

func TestStandardizeWorkoutFields(t *testing.T) {
	raw := `{
		"days": [
			{"day": "Mon", "exercises": [
				{"exercise_name": "Squats", "block": "strength", "minutes": 15, "sets": 4, "repetitions": 8, "effort": "HIGH"}
			]}
		]
	}`

	plan, err := Standardize(KindWorkout, raw)
	if err != nil {
		t.Fatalf("Standardize returned error: %v", err)
	}
	unit := plan.Days[0].Units[0]
	if unit.Name != "Squats" || unit.Slot != "strength" {
		t.Errorf("unexpected unit: %+v", unit)
	}
	if unit.DurationMinutes != 15 || unit.Sets != 4 || unit.Reps != 8 {
		t.Errorf("workout synonyms not mapped: %+v", unit)
	}
	if unit.Intensity != "high" {
		t.Errorf("intensity not lowercased: %q", unit.Intensity)
	}
	if plan.Days[0].TotalMinutes != 15 {
		t.Errorf("minutes not aggregated: %d", plan.Days[0].TotalMinutes)
	}
}

func TestClassifyError(t *testing.T) {
	if got := classifyError(&SchemaError{Reason: "x"}); got != ErrorSchema {
		t.Errorf("SchemaError classified as %s", got)
	}
	if got := classifyError(&IncompleteError{Day: "Monday", Got: 1, Want: 3}); got != ErrorIncomplete {
		t.Errorf("IncompleteError classified as %s", got)
	}
	if got := classifyError(errors.New("connection reset")); got != ErrorTransport {
		t.Errorf("plain error classified as %s", got)
	}
	wrapped := &SchemaError{Reason: "missing field"}
	if got := classifyError(wrapAsUnitError(wrapped)); got != ErrorSchema {
		t.Errorf("wrapped SchemaError classified as %s", got)
	}
}

func wrapAsUnitError(err error) error {
	return &wrappingError{err: err}
}

type wrappingError struct{ err error }

func (w *wrappingError) Error() string { return "unit 1: " + w.err.Error() }
func (w *wrappingError) Unwrap() error { return w.err }

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"{\"a\": 1}":                     `{"a": 1}`,
		"```json\n{\"a\": 1}\n```":       `{"a": 1}`,
		"```\n{\"a\": 1}\n```":           `{"a": 1}`,
		"  \n```json\n{\"a\": 1}\n```\n": `{"a": 1}`,
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
	if got := stripCodeFence("plain text"); !strings.Contains(got, "plain") {
		t.Errorf("unexpected: %q", got)
	}
}
