package prompts

import "github.com/yungbote/lessongen/internal/modules/generation/content"

func object(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func arrayOf(items map[string]any, minItems, maxItems int) map[string]any {
	return map[string]any{
		"type":     "array",
		"items":    items,
		"minItems": minItems,
		"maxItems": maxItems,
	}
}

// BoundedString is a string schema with a maxLength matching the validator.
func BoundedString(maxLength int) map[string]any {
	return map[string]any{"type": "string", "maxLength": maxLength}
}

func IntSchema() map[string]any {
	return map[string]any{"type": "integer"}
}

func PlanSchema() map[string]any {
	day := object(map[string]any{
		"day":        IntSchema(),
		"title":      BoundedString(content.MaxTitleLen),
		"objectives": arrayOf(BoundedString(content.MaxObjectiveLen), 1, content.PlanMaxObjectives),
	}, "day", "title", "objectives")
	return object(map[string]any{
		"title":   BoundedString(content.MaxTitleLen),
		"summary": BoundedString(content.MaxSummaryLen),
		"days":    arrayOf(day, 1, content.PlanMaxDays),
	}, "title", "summary", "days")
}

func LessonSchema() map[string]any {
	section := object(map[string]any{
		"heading": BoundedString(content.MaxHeadingLen),
		"body":    BoundedString(content.MaxBodyLen),
	}, "heading", "body")
	return object(map[string]any{
		"title":      BoundedString(content.MaxTitleLen),
		"summary":    BoundedString(content.MaxSummaryLen),
		"sections":   arrayOf(section, 1, content.LessonMaxSections),
		"key_points": arrayOf(BoundedString(content.MaxKeyPointLen), 1, content.LessonMaxKeyPoints),
	}, "title", "summary", "sections", "key_points")
}

func QuizSchema() map[string]any {
	question := object(map[string]any{
		"prompt":       BoundedString(content.MaxPromptLen),
		"options":      arrayOf(BoundedString(content.MaxOptionLen), content.QuizOptionCount, content.QuizOptionCount),
		"answer_index": map[string]any{"type": "integer", "minimum": 0, "maximum": content.QuizOptionCount - 1},
		"explanation":  BoundedString(content.MaxExplanationLen),
	}, "prompt", "options", "answer_index", "explanation")
	return object(map[string]any{
		"title":     BoundedString(content.MaxTitleLen),
		"questions": arrayOf(question, content.QuizQuestionCount, content.QuizQuestionCount),
	}, "title", "questions")
}

func FlashcardsSchema() map[string]any {
	card := object(map[string]any{
		"front": BoundedString(content.MaxCardSideLen),
		"back":  BoundedString(content.MaxCardSideLen),
	}, "front", "back")
	return object(map[string]any{
		"title": BoundedString(content.MaxTitleLen),
		"cards": arrayOf(card, content.FlashcardsMinCards, content.FlashcardsMaxCards),
	}, "title", "cards")
}
