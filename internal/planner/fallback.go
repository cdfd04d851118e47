package planner

import (
	"strings"

	"ai-fitness-planner/internal/profile"
)

// StaticFallbackSource marks plans produced without any remote call.
const StaticFallbackSource = "static-fallback"

// fallbackMeal is one template meal with macros at a 2000 kcal baseline.
type fallbackMeal struct {
	name     string
	calories int
	protein  int
	carbs    int
	fat      int
}

// Three rotating menus per diet type, one template meal per slot
// (breakfast, lunch, dinner, snack, supper).
var fallbackMenus = map[string][][]fallbackMeal{
	"balanced": {
		{
			{"Oatmeal with Berries and Yogurt", 420, 18, 62, 11},
			{"Grilled Chicken Salad with Quinoa", 540, 42, 44, 19},
			{"Baked Salmon with Rice and Broccoli", 620, 40, 58, 22},
			{"Apple with Peanut Butter", 230, 7, 24, 12},
			{"Cottage Cheese with Honey", 190, 20, 16, 5},
		},
		{
			{"Scrambled Eggs on Wholegrain Toast", 430, 24, 38, 18},
			{"Turkey and Avocado Wrap", 520, 34, 48, 20},
			{"Beef Stir-Fry with Noodles", 640, 38, 62, 23},
			{"Greek Yogurt with Granola", 240, 14, 30, 7},
			{"Handful of Mixed Nuts", 200, 6, 8, 17},
		},
		{
			{"Banana Protein Smoothie", 400, 28, 52, 9},
			{"Lentil Soup with Bread Roll", 510, 26, 66, 13},
			{"Chicken Fajita Bowl", 610, 44, 56, 20},
			{"Carrot Sticks with Hummus", 180, 6, 20, 9},
			{"Dark Chocolate and Almonds", 210, 5, 14, 15},
		},
	},
	"vegetarian": {
		{
			{"Greek Yogurt Parfait with Granola", 410, 20, 56, 12},
			{"Caprese Sandwich with Side Salad", 530, 22, 58, 22},
			{"Vegetable Curry with Basmati Rice", 620, 18, 82, 21},
			{"Banana with Almond Butter", 240, 6, 30, 11},
			{"Cheese and Wholegrain Crackers", 220, 10, 20, 11},
		},
		{
			{"Spinach and Feta Omelette", 420, 26, 12, 28},
			{"Halloumi and Roast Vegetable Wrap", 540, 24, 52, 24},
			{"Black Bean Chili with Cornbread", 600, 28, 74, 17},
			{"Trail Mix", 220, 7, 22, 13},
			{"Cottage Cheese with Pineapple", 180, 18, 18, 4},
		},
		{
			{"Overnight Oats with Chia Seeds", 430, 16, 60, 13},
			{"Falafel Bowl with Tahini", 550, 20, 62, 24},
			{"Mushroom Risotto", 590, 18, 76, 20},
			{"Fruit Salad", 160, 2, 38, 1},
			{"Peanut Butter on Rice Cakes", 230, 9, 22, 12},
		},
	},
	"vegan": {
		{
			{"Tofu Scramble with Toast", 410, 24, 40, 17},
			{"Chickpea and Avocado Salad", 520, 18, 54, 25},
			{"Lentil Bolognese with Pasta", 630, 28, 86, 15},
			{"Edamame Beans", 180, 16, 12, 7},
			{"Dates with Almond Butter", 230, 5, 34, 9},
		},
		{
			{"Peanut Butter Banana Porridge", 440, 15, 62, 15},
			{"Buddha Bowl with Tempeh", 560, 26, 58, 24},
			{"Black Bean Tacos", 590, 22, 76, 18},
			{"Apple with Walnuts", 210, 4, 26, 11},
			{"Hummus with Pita", 220, 8, 28, 9},
		},
		{
			{"Berry Soy Yogurt Bowl", 390, 18, 56, 10},
			{"Quinoa Tabbouleh with Falafel", 540, 20, 66, 21},
			{"Vegetable and Tofu Stir-Fry", 600, 30, 64, 22},
			{"Roasted Chickpeas", 190, 9, 24, 6},
			{"Banana Oat Cookies", 220, 5, 36, 7},
		},
	},
	"keto": {
		{
			{"Bacon and Eggs with Avocado", 520, 26, 6, 44},
			{"Chicken Caesar Salad (no croutons)", 540, 40, 8, 38},
			{"Ribeye Steak with Buttered Greens", 680, 45, 6, 52},
			{"Macadamia Nuts", 220, 3, 4, 22},
			{"Cheese Slices with Olives", 210, 11, 3, 17},
		},
		{
			{"Cheese Omelette with Spinach", 480, 30, 5, 37},
			{"Tuna Salad Lettuce Wraps", 500, 38, 6, 35},
			{"Baked Salmon with Asparagus", 640, 44, 8, 47},
			{"Pork Rinds", 180, 18, 0, 11},
			{"Celery with Cream Cheese", 160, 4, 5, 14},
		},
		{
			{"Keto Pancakes with Butter", 510, 22, 9, 43},
			{"Cobb Salad with Ranch", 560, 36, 9, 41},
			{"Chicken Thighs with Cauliflower Mash", 630, 46, 10, 43},
			{"Hard-Boiled Eggs", 150, 12, 1, 10},
			{"Pecans and Brie", 230, 6, 4, 21},
		},
	},
	"paleo": {
		{
			{"Sweet Potato Hash with Eggs", 450, 24, 40, 22},
			{"Grilled Chicken with Roast Vegetables", 540, 42, 34, 26},
			{"Beef and Vegetable Skewers", 620, 44, 28, 36},
			{"Mixed Berries", 120, 2, 26, 1},
			{"Almonds and Dried Apricots", 230, 7, 20, 14},
		},
		{
			{"Banana Almond Pancakes", 460, 18, 44, 24},
			{"Tuna Stuffed Avocado", 520, 36, 14, 36},
			{"Roast Pork with Apple and Squash", 640, 46, 38, 32},
			{"Beef Jerky", 160, 22, 6, 5},
			{"Coconut Chips", 200, 2, 10, 17},
		},
		{
			{"Smoked Salmon with Scrambled Eggs", 440, 32, 4, 32},
			{"Chicken and Mango Salad", 530, 38, 40, 22},
			{"Bison Burger (no bun) with Sweet Potato Fries", 650, 42, 48, 30},
			{"Hard-Boiled Eggs", 150, 12, 1, 10},
			{"Walnuts and Grapes", 220, 5, 18, 15},
		},
	},
}

// fallbackExercise is one template exercise block.
type fallbackExercise struct {
	name      string
	minutes   int
	sets      int
	reps      int
	intensity string
}

var warmupBlocks = []fallbackExercise{
	{"Dynamic Stretching and Arm Circles", 8, 0, 0, "low"},
	{"Jump Rope and Mobility Drills", 8, 0, 0, "low"},
	{"Brisk Incline Walk", 10, 0, 0, "low"},
}

var cooldownBlocks = []fallbackExercise{
	{"Static Stretching", 8, 0, 0, "low"},
	{"Foam Rolling", 8, 0, 0, "low"},
	{"Slow Walk and Breathing", 8, 0, 0, "low"},
}

// Strength blocks keyed by focus area, one list per equipment bucket.
var strengthBlocks = map[string]map[string][]fallbackExercise{
	"gym": {
		"upper_body": {
			{"Bench Press", 15, 4, 8, "high"},
			{"Bent-Over Rows", 15, 4, 10, "high"},
			{"Overhead Press", 12, 3, 10, "moderate"},
		},
		"lower_body": {
			{"Barbell Squats", 18, 4, 8, "high"},
			{"Romanian Deadlifts", 15, 4, 8, "high"},
			{"Walking Lunges with Dumbbells", 12, 3, 12, "moderate"},
		},
		"core": {
			{"Cable Crunches", 10, 3, 15, "moderate"},
			{"Hanging Leg Raises", 10, 3, 12, "moderate"},
			{"Weighted Planks", 10, 3, 0, "moderate"},
		},
		"full_body": {
			{"Deadlifts", 18, 4, 6, "high"},
			{"Dumbbell Clean and Press", 15, 4, 8, "high"},
			{"Kettlebell Swings", 12, 4, 15, "moderate"},
		},
	},
	"bodyweight": {
		"upper_body": {
			{"Push-Ups", 12, 4, 12, "moderate"},
			{"Pike Push-Ups", 10, 3, 10, "moderate"},
			{"Chair Dips", 10, 3, 12, "moderate"},
		},
		"lower_body": {
			{"Bodyweight Squats", 12, 4, 15, "moderate"},
			{"Reverse Lunges", 12, 3, 12, "moderate"},
			{"Glute Bridges", 10, 3, 15, "low"},
		},
		"core": {
			{"Plank Circuit", 10, 3, 0, "moderate"},
			{"Bicycle Crunches", 10, 3, 20, "moderate"},
			{"Mountain Climbers", 8, 3, 20, "high"},
		},
		"full_body": {
			{"Burpees", 10, 4, 10, "high"},
			{"Squat to Press Reach", 12, 3, 12, "moderate"},
			{"Bear Crawls", 8, 3, 0, "moderate"},
		},
	},
}

var conditioningBlocks = map[string][]fallbackExercise{
	"gym": {
		{"Rowing Machine Intervals", 12, 0, 0, "high"},
		{"Assault Bike Sprints", 10, 0, 0, "high"},
		{"Incline Treadmill Intervals", 12, 0, 0, "moderate"},
	},
	"bodyweight": {
		{"High-Knee Intervals", 10, 0, 0, "high"},
		{"Shadow Boxing Rounds", 12, 0, 0, "moderate"},
		{"Stair Climbs", 12, 0, 0, "moderate"},
	},
}

var gymEquipment = map[string]bool{
	"full_gym":   true,
	"gym":        true,
	"barbell":    true,
	"dumbbells":  true,
	"kettlebell": true,
	"machines":   true,
}

// CreateStaticFallback builds a deterministic plan from the fixed template
// library, with no I/O. It always satisfies the plan's Requirements and is
// the cascade's availability guarantee.
func CreateStaticFallback(kind Kind, prefs profile.Preferences) *Plan {
	req := RequirementsFor(kind, prefs)
	plan := &Plan{Kind: kind, Source: StaticFallbackSource}

	switch kind {
	case KindMeal:
		plan.Days = fallbackMealDays(req, prefs.Meal)
	default:
		plan.Days = fallbackWorkoutDays(req, prefs.Workout)
	}

	RecomputeAggregates(plan)
	return plan
}

func fallbackMealDays(req Requirements, prefs profile.MealPreferences) []PlanDay {
	menus, ok := fallbackMenus[prefs.DietType]
	if !ok {
		menus = fallbackMenus[profile.DefaultDietType]
	}
	scale := float64(prefs.CalorieTarget) / 2000.0

	var days []PlanDay
	for i, dr := range req.Days {
		menu := menus[i%len(menus)]
		day := PlanDay{Day: dr.Day}
		for slotIdx, slot := range dr.Slots {
			meal := menu[slotIdx%len(menu)]
			day.Units = append(day.Units, Unit{
				Slot:     slot,
				Name:     meal.name,
				Calories: int(float64(meal.calories) * scale),
				ProteinG: int(float64(meal.protein) * scale),
				CarbsG:   int(float64(meal.carbs) * scale),
				FatG:     int(float64(meal.fat) * scale),
			})
		}
		days = append(days, day)
	}
	return days
}

func fallbackWorkoutDays(req Requirements, prefs profile.WorkoutPreferences) []PlanDay {
	bucket := equipmentBucket(prefs.Equipment)
	focusAreas := prefs.FocusAreas
	if len(focusAreas) == 0 {
		focusAreas = []string{"full_body"}
	}

	var days []PlanDay
	trainingIdx := 0
	for _, dr := range req.Days {
		day := PlanDay{Day: dr.Day}
		if len(dr.Slots) == 0 {
			day.Rest = true
			days = append(days, day)
			continue
		}

		focus := normalizeFocusArea(focusAreas[trainingIdx%len(focusAreas)])
		for _, slot := range dr.Slots {
			day.Units = append(day.Units, fallbackWorkoutUnit(slot, bucket, focus, prefs.Level, trainingIdx))
		}
		trainingIdx++
		days = append(days, day)
	}
	return days
}

func fallbackWorkoutUnit(slot, bucket, focus, level string, rotation int) Unit {
	var ex fallbackExercise
	switch slot {
	case "warmup":
		ex = warmupBlocks[rotation%len(warmupBlocks)]
	case "cooldown":
		ex = cooldownBlocks[rotation%len(cooldownBlocks)]
	case "conditioning":
		list := conditioningBlocks[bucket]
		ex = list[rotation%len(list)]
	default:
		list := strengthBlocks[bucket][focus]
		ex = list[rotation%len(list)]
	}

	unit := Unit{
		Slot:            slot,
		Name:            ex.name,
		DurationMinutes: ex.minutes,
		Sets:            scaleSets(ex.sets, level),
		Reps:            ex.reps,
		Intensity:       ex.intensity,
	}
	if level == "beginner" && unit.Intensity == "high" {
		unit.Intensity = "moderate"
	}
	return unit
}

func scaleSets(sets int, level string) int {
	if sets == 0 {
		return 0
	}
	switch level {
	case "beginner":
		if sets > 3 {
			return 3
		}
		return sets
	case "advanced":
		return sets + 1
	default:
		return sets
	}
}

func equipmentBucket(equipment []string) string {
	for _, e := range equipment {
		if gymEquipment[strings.ToLower(strings.TrimSpace(e))] {
			return "gym"
		}
	}
	return "bodyweight"
}

func normalizeFocusArea(focus string) string {
	f := strings.ToLower(strings.TrimSpace(focus))
	if _, ok := strengthBlocks["gym"][f]; ok {
		return f
	}
	return "full_body"
}
