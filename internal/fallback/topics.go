package fallback

// DefaultTopics is the built-in fat-loss knowledge used when no topics file
// is configured. Each citation list starts with the topic title.
func DefaultTopics() []Topic {
	return []Topic{
		{
			Key:   "caloric_deficit",
			Order: 10,
			Title: "Caloric Deficit",
			Content: "The fundamental principle of fat loss is a caloric deficit: consuming fewer calories than you expend. " +
				"A deficit of 3,500 calories theoretically equals about one pound of fat. " +
				"A moderate deficit of 500-750 calories per day typically yields 1-2 pounds of fat loss per week, " +
				"while very large deficits increase muscle loss and metabolic slowdown.",
			Triggers:  []string{"热量", "卡路里", "deficit", "calorie"},
			Citations: []string{"Caloric Deficit", "JAMA", "American Journal of Clinical Nutrition"},
		},
		{
			Key:   "protein_intake",
			Order: 20,
			Title: "Protein Intake",
			Content: "Higher protein intake (0.8-1.2 g per pound of body weight) helps preserve lean muscle during fat loss " +
				"and increases satiety. Protein has a higher thermic effect of food than carbohydrates and fats, " +
				"so more calories are burned during its digestion.",
			Triggers:  []string{"蛋白", "protein"},
			Citations: []string{"Protein Intake", "International Journal of Obesity", "Journal of Nutrition"},
		},
		{
			Key:   "exercise",
			Order: 30,
			Title: "Exercise Strategies",
			Content: "Resistance training is crucial during fat loss to preserve muscle mass and metabolic rate. " +
				"HIIT is time efficient, and combining resistance training with moderate cardio yields the best " +
				"body composition changes.",
			Triggers:  []string{"运动", "锻炼", "exercise", "workout", "training", "cardio", "hiit"},
			Citations: []string{"Exercise Strategies", "Journal of Applied Physiology", "Sports Medicine"},
		},
		{
			Key:   "metabolic_adaptation",
			Order: 40,
			Title: "Metabolic Adaptation and Plateaus",
			Content: "Prolonged caloric restriction lowers metabolic rate. Diet breaks, refeed days and continued " +
				"resistance training reduce the effect, and rapid weight loss causes more slowdown than a gradual approach.",
			Triggers:  []string{"平台期", "代谢", "plateau", "metabolism", "metabolic"},
			Citations: []string{"Metabolic Adaptation and Plateaus", "Obesity Reviews", "International Journal of Obesity"},
		},
		{
			Key:   "meal_timing",
			Order: 50,
			Title: "Meal Timing and Intermittent Fasting",
			Content: "Total caloric intake matters most; meal timing has modest effects. Intermittent fasting works " +
				"mainly by reducing total intake. Adequate protein at each meal supports satiety and muscle protein synthesis.",
			Triggers:  []string{"断食", "进餐", "meal timing", "fasting", "breakfast"},
			Citations: []string{"Meal Timing and Intermittent Fasting", "Annual Review of Nutrition", "Cell Metabolism"},
		},
	}
}
