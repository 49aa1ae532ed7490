package plangen

import "fmt"

// The templates pair the instruction with a worked example of the exact
// literal shape. This maximises the chance of schema-conformant output from
// a non-deterministic generator; it is not a guarantee, which is why the
// validators in validate.go exist.

const workoutTemplate = `You are an experienced fitness coach creating a personalized workout plan based on:
Age: %d
Height: %.1f
Weight: %.1f
Injuries or limitations: %s
Available days for workout: %d
Fitness goal: %s
Fitness level: %s

As a professional coach:
- Consider muscle group splits to avoid overtraining the same muscles on consecutive days
- Design exercises that match the fitness level and account for any injuries
- Structure the workouts to specifically work toward the user's fitness goal

CRITICAL SCHEMA INSTRUCTIONS:
- Your output MUST contain ONLY a valid JSON object with NO additional text
- "sets" and "reps" MUST ALWAYS be NUMBERS, never strings
- For example: "sets": 3, "reps": 10
- DO NOT use text like "reps": "As many as possible" or "reps": "To failure"
- NEVER include markdown formatting

Return a JSON object with this EXACT structure:
{
  "schedule": ["Monday", "Wednesday", "Friday"],
  "exercises": [
    {
      "day": "Monday",
      "routines": [
        {
          "name": "Exercise Name",
          "sets": 3,
          "reps": 10
        }
      ]
    }
  ]
}

DO NOT add any fields that are not in this structure. Your response must be a valid JSON object with no other text.`

const dietTemplate = `You are an experienced nutrition coach creating a personalized diet plan based on:
Age: %d
Height: %.1f
Weight: %.1f
Fitness goal: %s
Dietary restrictions: %s

As a professional nutrition coach:
- Calculate appropriate daily calorie intake based on the person's stats and goals
- Create a balanced meal plan with proper macronutrient distribution
- Include a variety of nutrient-dense foods while respecting dietary restrictions

CRITICAL SCHEMA INSTRUCTIONS:
- Your output MUST contain ONLY a valid JSON object with NO additional text
- "dailyCalories" MUST be a NUMBER, not a string
- DO NOT add fields like "supplements", "macros", "notes", or ANYTHING else
- ONLY include the EXACT fields shown in the example below
- Each meal should include ONLY a "name" and "foods" array

Return a JSON object with this EXACT structure and no other fields:
{
  "dailyCalories": 2000,
  "meals": [
    {
      "name": "Breakfast",
      "foods": ["Oatmeal with berries", "Greek yogurt", "Black coffee"]
    }
  ]
}

Your response must be a valid JSON object with no other text.`

// WorkoutPrompt renders the workout-facet prompt for a validated request.
func WorkoutPrompt(req PlanRequest) string {
	return fmt.Sprintf(workoutTemplate,
		req.Age, req.Height, req.Weight, req.Injuries,
		req.WorkoutDays, req.FitnessGoal, req.FitnessLevel)
}

// DietPrompt renders the diet-facet prompt for a validated request.
func DietPrompt(req PlanRequest) string {
	return fmt.Sprintf(dietTemplate,
		req.Age, req.Height, req.Weight, req.FitnessGoal, req.DietaryRestrictions)
}
