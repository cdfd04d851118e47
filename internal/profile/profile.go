package profile

// StoredProfile is the raw onboarding record as it comes back from the
// remote profile service. Nearly everything is optional: old clients wrote
// different field names and omitted fields that were added later. It is
// never consumed directly by the planner; Normalize turns it into a
// fully-defaulted Preferences value at the boundary.
type StoredProfile struct {
	UserID string `json:"user_id"`

	// Workout onboarding answers.
	FitnessLevel     string   `json:"fitness_level,omitempty"`
	Level            string   `json:"level,omitempty"` // legacy clients wrote "level"
	WorkoutFrequency *int     `json:"workout_frequency,omitempty"`
	SessionMinutes   *int     `json:"session_minutes,omitempty"`
	Equipment        []string `json:"equipment,omitempty"`
	FocusAreas       []string `json:"focus_areas,omitempty"`
	Injuries         []string `json:"injuries,omitempty"`

	// Diet onboarding answers.
	DietType      string   `json:"diet_type,omitempty"`
	Diet          string   `json:"diet,omitempty"` // legacy clients wrote "diet"
	MealsPerDay   *int     `json:"meals_per_day,omitempty"`
	CalorieTarget *int     `json:"calorie_target,omitempty"`
	Allergies     []string `json:"allergies,omitempty"`
	Cuisines      []string `json:"cuisine_preferences,omitempty"`
	Exclusions    string   `json:"exclusions,omitempty"`

	UpdatedAt string `json:"updated_at,omitempty"`
}

// WorkoutPreferences are the fully-defaulted workout inputs to a generation run.
type WorkoutPreferences struct {
	Level          string
	DaysPerWeek    int
	SessionMinutes int
	Equipment      []string
	FocusAreas     []string
	Injuries       []string
}

// MealPreferences are the fully-defaulted diet inputs to a generation run.
type MealPreferences struct {
	DietType      string
	MealsPerDay   int
	CalorieTarget int
	Allergies     []string
	Cuisines      []string
	Exclusions    string
}

// Preferences is the immutable, fully-populated input to a generation run.
// Construct it with Normalize; never build it from a StoredProfile by hand.
type Preferences struct {
	UserID  string
	Workout WorkoutPreferences
	Meal    MealPreferences
}
