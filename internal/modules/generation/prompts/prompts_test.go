package prompts

import (
	"strings"
	"testing"

	"github.com/yungbote/lessongen/internal/modules/generation/content"
)

func TestBuildRendersLearnerAndContext(t *testing.T) {
	p, err := Build(PromptLesson, Input{
		Topic:         "python",
		Focus:         "loops",
		Level:         "beginner",
		MinutesPerDay: 20,
		Locale:        "en",
		Context:       "[1] python › loops: for and while (pack:py)",
		DayIndex:      3,
		PlanDayTitle:  "While loops",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{"TOPIC: python", "DAY: 3", "TODAY_TITLE: While loops", "[1] python › loops"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if p.SchemaName != "daily_lesson" || p.Schema["type"] != "object" {
		t.Fatalf("unexpected schema: %s %#v", p.SchemaName, p.Schema)
	}
	if p.Version != Version(PromptLesson) {
		t.Fatalf("version mismatch: %d vs %d", p.Version, Version(PromptLesson))
	}
}

func TestBuildValidatesInput(t *testing.T) {
	if _, err := Build(PromptPlan, Input{}); err == nil {
		t.Fatalf("expected missing topic error")
	}
	if _, err := Build(PromptQuiz, Input{Topic: "go"}); err == nil {
		t.Fatalf("expected missing day error")
	}
	if _, err := Build(PromptName("essay"), Input{Topic: "go"}); err == nil {
		t.Fatalf("expected unknown prompt error")
	}
}

func TestFingerprintStable(t *testing.T) {
	in := Input{Topic: "go", Context: "ctx"}
	a, err := Build(PromptPlan, in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, _ := Build(PromptPlan, in)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprint not stable")
	}
	in.Context = "other"
	c, _ := Build(PromptPlan, in)
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("fingerprint should change with context")
	}
}

func TestQuizSchemaPinsQuestionCount(t *testing.T) {
	q := QuizSchema()
	questions := q["properties"].(map[string]any)["questions"].(map[string]any)
	if questions["minItems"] != 5 || questions["maxItems"] != 5 {
		t.Fatalf("quiz schema bounds: %#v", questions)
	}
}

func TestSchemasBoundTextLength(t *testing.T) {
	lesson := LessonSchema()["properties"].(map[string]any)
	section := lesson["sections"].(map[string]any)["items"].(map[string]any)["properties"].(map[string]any)
	if section["body"].(map[string]any)["maxLength"] != content.MaxBodyLen {
		t.Fatalf("lesson body schema: %#v", section["body"])
	}
	if lesson["title"].(map[string]any)["maxLength"] != content.MaxTitleLen {
		t.Fatalf("lesson title schema: %#v", lesson["title"])
	}
	card := FlashcardsSchema()["properties"].(map[string]any)["cards"].(map[string]any)["items"].(map[string]any)["properties"].(map[string]any)
	if card["back"].(map[string]any)["maxLength"] != content.MaxCardSideLen {
		t.Fatalf("flashcard back schema: %#v", card["back"])
	}
}
