package planner

import (
	"ai-fitness-planner/internal/llm"
)

// Response schemas handed to the model client. The model enforces these on
// its side; Standardize validates again locally.

func unitSchema(kind Kind) *llm.Schema {
	properties := map[string]*llm.Schema{
		"slot":        llm.String("The slot this unit fills, e.g. breakfast or warmup."),
		"name":        llm.String("Short name of the meal or exercise block."),
		"description": llm.String("One or two sentences of preparation or execution detail."),
	}

	if kind == KindMeal {
		properties["calories"] = llm.Integer("Estimated calories for this meal.")
		properties["protein_g"] = llm.Integer("Protein in grams.")
		properties["carbs_g"] = llm.Integer("Carbohydrates in grams.")
		properties["fat_g"] = llm.Integer("Fat in grams.")
	} else {
		properties["duration_minutes"] = llm.Integer("Duration of the block in minutes.")
		properties["sets"] = llm.Integer("Number of sets, 0 for timed work.")
		properties["reps"] = llm.Integer("Repetitions per set, 0 for timed work.")
		properties["intensity"] = &llm.Schema{
			Type:        llm.TypeString,
			Description: "Perceived intensity of the block.",
			Enum:        []string{"low", "moderate", "high"},
		}
	}

	return llm.Object("One plan unit.", properties, "name", "slot")
}

func daySchema(kind Kind) *llm.Schema {
	return llm.Object("One calendar day of the plan.", map[string]*llm.Schema{
		"day":   llm.String("Weekday name, Monday through Sunday."),
		"units": llm.Array("The day's units in slot order.", unitSchema(kind)),
	}, "day", "units")
}

func planSchema(kind Kind) *llm.Schema {
	return llm.Object("A full weekly plan.", map[string]*llm.Schema{
		"days": llm.Array("Seven days in Monday-to-Sunday order.", daySchema(kind)),
	}, "days")
}

func unitListSchema(kind Kind) *llm.Schema {
	return llm.Object("A flat list of plan units.", map[string]*llm.Schema{
		"units": llm.Array("The generated units in order.", unitSchema(kind)),
	}, "units")
}
