package prompts

import (
	"fmt"

	"github.com/yungbote/lessongen/internal/modules/generation/content"
)

const groundingRules = `
Ground every claim in CONTEXT when it is relevant. If CONTEXT says no reference
material was found, rely on well-established fundamentals and avoid niche claims.
Write for the learner's level. Respond in the locale given.
Return JSON only.`

const learnerBlock = `
TOPIC: {{.Topic}}
FOCUS: {{.Focus}}
LEVEL: {{.Level}}
MINUTES_PER_DAY: {{.MinutesPerDay}}
LOCALE: {{.Locale}}`

const dayBlock = `
DAY: {{.DayIndex}}
PLAN: {{.PlanTitle}}
TODAY_TITLE: {{.PlanDayTitle}}
TODAY_OBJECTIVES: {{.PlanDayObjectives}}`

const contextBlock = `
CONTEXT:
{{.Context}}`

func topicRequired() Validator {
	return RequireNonEmpty("Topic", func(in Input) string { return in.Topic })
}

func dayRequired() Validator {
	return RequirePositive("DayIndex", func(in Input) int { return in.DayIndex })
}

// RegisterAll registers every generation prompt. Build calls it lazily.
func RegisterAll() {
	RegisterSpec(Spec{
		Name:       PromptPlan,
		Version:    1,
		SchemaName: "learning_plan",
		Schema:     PlanSchema,
		System: `
You design day-by-day learning plans that fit a fixed daily time budget.
Each day must be achievable within MINUTES_PER_DAY and build on the previous day.` + groundingRules,
		User: learnerBlock + contextBlock + fmt.Sprintf(`

Output rules:
- title: short plan title.
- summary: 2-4 sentences.
- days: 1-%d entries numbered from 1 with no gaps.
- each day: a title and 1-%d concrete objectives.`, content.PlanMaxDays, content.PlanMaxObjectives),
		Validators: []Validator{topicRequired()},
	})

	RegisterSpec(Spec{
		Name:       PromptLesson,
		Version:    1,
		SchemaName: "daily_lesson",
		Schema:     LessonSchema,
		System: `
You write one focused lesson for a single day of a learning plan.
Stay inside today's objectives; do not preview later days.` + groundingRules,
		User: learnerBlock + dayBlock + contextBlock + fmt.Sprintf(`

Output rules:
- title and a 1-2 sentence summary.
- sections: 1-%d entries, each with a heading and a markdown body.
- key_points: 1-%d one-line takeaways.`, content.LessonMaxSections, content.LessonMaxKeyPoints),
		Validators: []Validator{topicRequired(), dayRequired()},
	})

	RegisterSpec(Spec{
		Name:       PromptQuiz,
		Version:    1,
		SchemaName: "daily_quiz",
		Schema:     QuizSchema,
		System: `
You write multiple-choice quizzes that check today's objectives.
Exactly one option is correct. Distractors must be plausible and distinct.` + groundingRules,
		User: learnerBlock + dayBlock + contextBlock + fmt.Sprintf(`

Output rules:
- questions: exactly %d.
- each question: prompt, exactly %d options, answer_index (0-based), explanation.`, content.QuizQuestionCount, content.QuizOptionCount),
		Validators: []Validator{topicRequired(), dayRequired()},
	})

	RegisterSpec(Spec{
		Name:       PromptFlashcards,
		Version:    1,
		SchemaName: "daily_flashcards",
		Schema:     FlashcardsSchema,
		System: `
You write flashcards for spaced review of today's material.
Fronts are short cues; backs are precise answers.` + groundingRules,
		User: learnerBlock + dayBlock + contextBlock + fmt.Sprintf(`

Output rules:
- cards: %d-%d entries with front and back.`, content.FlashcardsMinCards, content.FlashcardsMaxCards),
		Validators: []Validator{topicRequired(), dayRequired()},
	})
}
