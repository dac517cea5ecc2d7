package prompts

type PromptName string

const (
	PromptPlan       PromptName = "plan"
	PromptLesson     PromptName = "lesson"
	PromptQuiz       PromptName = "quiz"
	PromptFlashcards PromptName = "flashcards"
)
