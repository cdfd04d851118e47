package profile

import "strings"

// Defaults applied when the stored profile is missing a field. These mirror
// the most common onboarding answers.
const (
	DefaultLevel          = "beginner"
	DefaultDaysPerWeek    = 3
	DefaultSessionMinutes = 45
	DefaultDietType       = "balanced"
	DefaultMealsPerDay    = 3
	DefaultCalorieTarget  = 2000
)

var knownLevels = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

var knownDietTypes = map[string]bool{
	"balanced":   true,
	"vegetarian": true,
	"vegan":      true,
	"keto":       true,
	"paleo":      true,
}

// Normalize converts a raw stored profile into a fully-defaulted Preferences
// value. This is the only place legacy field names and missing values are
// resolved; downstream code can rely on every field being populated.
func Normalize(raw StoredProfile) Preferences {
	return Preferences{
		UserID: raw.UserID,
		Workout: WorkoutPreferences{
			Level:          normalizeLevel(raw.FitnessLevel, raw.Level),
			DaysPerWeek:    clampInt(raw.WorkoutFrequency, 1, 7, DefaultDaysPerWeek),
			SessionMinutes: clampInt(raw.SessionMinutes, 15, 120, DefaultSessionMinutes),
			Equipment:      defaultSlice(raw.Equipment, "bodyweight"),
			FocusAreas:     defaultSlice(raw.FocusAreas, "full_body"),
			Injuries:       cloneSlice(raw.Injuries),
		},
		Meal: MealPreferences{
			DietType:      normalizeDietType(raw.DietType, raw.Diet),
			MealsPerDay:   clampInt(raw.MealsPerDay, 1, 5, DefaultMealsPerDay),
			CalorieTarget: clampInt(raw.CalorieTarget, 1200, 5000, DefaultCalorieTarget),
			Allergies:     cloneSlice(raw.Allergies),
			Cuisines:      cloneSlice(raw.Cuisines),
			Exclusions:    strings.TrimSpace(raw.Exclusions),
		},
	}
}

func normalizeLevel(current, legacy string) string {
	for _, candidate := range []string{current, legacy} {
		v := strings.ToLower(strings.TrimSpace(candidate))
		if knownLevels[v] {
			return v
		}
	}
	return DefaultLevel
}

func normalizeDietType(current, legacy string) string {
	for _, candidate := range []string{current, legacy} {
		v := strings.ToLower(strings.TrimSpace(candidate))
		if knownDietTypes[v] {
			return v
		}
	}
	return DefaultDietType
}

func clampInt(v *int, min, max, fallback int) int {
	if v == nil || *v == 0 {
		return fallback
	}
	if *v < min {
		return min
	}
	if *v > max {
		return max
	}
	return *v
}

func defaultSlice(values []string, fallback string) []string {
	cleaned := cloneSlice(values)
	if len(cleaned) == 0 {
		return []string{fallback}
	}
	return cleaned
}

func cloneSlice(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
