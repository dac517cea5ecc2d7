package prompts

// Input carries every field any generation prompt may reference.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	Topic         string
	Focus         string
	Level         string
	MinutesPerDay int
	Locale        string

	// Retrieved grounding context, already numbered.
	Context string

	// Lesson-family prompts only.
	DayIndex          int
	PlanTitle         string
	PlanDayTitle      string
	PlanDayObjectives string
}
