package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	KindPlan       = "plan"
	KindLesson     = "lesson"
	KindQuiz       = "quiz"
	KindFlashcards = "flashcards"
)

const (
	PlanMaxDays        = 60
	PlanMaxObjectives  = 6
	LessonMaxSections  = 8
	LessonMaxKeyPoints = 8
	QuizQuestionCount  = 5
	QuizOptionCount    = 4
	FlashcardsMinCards = 4
	FlashcardsMaxCards = 20
)

// Text bounds, in runes.
const (
	MaxTitleLen       = 200
	MaxSummaryLen     = 1000
	MaxObjectiveLen   = 300
	MaxHeadingLen     = 200
	MaxBodyLen        = 6000
	MaxKeyPointLen    = 300
	MaxPromptLen      = 600
	MaxOptionLen      = 200
	MaxExplanationLen = 1000
	MaxCardSideLen    = 500
)

// Kinds lists every generation kind in a stable order.
func Kinds() []string {
	return []string{KindPlan, KindLesson, KindQuiz, KindFlashcards}
}

func KnownKind(kind string) bool {
	switch kind {
	case KindPlan, KindLesson, KindQuiz, KindFlashcards:
		return true
	}
	return false
}

// Validate checks obj against the strict schema for kind and returns the typed
// value together with its canonical JSON encoding.
func Validate(kind string, obj map[string]any) (any, json.RawMessage, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrOutputParse, err)
	}
	var (
		out   any
		check func() error
	)
	switch kind {
	case KindPlan:
		p := &Plan{}
		out, check = p, func() error { return validatePlan(p) }
	case KindLesson:
		l := &Lesson{}
		out, check = l, func() error { return validateLesson(l) }
	case KindQuiz:
		q := &Quiz{}
		out, check = q, func() error { return validateQuiz(q) }
	case KindFlashcards:
		f := &Flashcards{}
		out, check = f, func() error { return validateFlashcards(f) }
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := strictDecode(kind, raw, out); err != nil {
		return nil, nil, err
	}
	if err := check(); err != nil {
		return nil, nil, err
	}
	canonical, mErr := json.Marshal(out)
	if mErr != nil {
		return nil, nil, fmt.Errorf("canonical encode: %w", mErr)
	}
	return out, canonical, nil
}

// DecodePlan decodes stored plan content without re-validating it.
func DecodePlan(raw []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func strictDecode(kind string, raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalid(kind, "", "decode: %v", err)
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// text checks presence (when required) and the rune bound of one field.
func text(kind, field, s string, max int, required bool) error {
	if required && blank(s) {
		return invalid(kind, field, "required")
	}
	if n := utf8.RuneCountInString(s); n > max {
		return invalid(kind, field, "too long: %d > %d characters", n, max)
	}
	return nil
}

func validatePlan(p *Plan) error {
	const k = KindPlan
	if err := text(k, "title", p.Title, MaxTitleLen, true); err != nil {
		return err
	}
	if err := text(k, "summary", p.Summary, MaxSummaryLen, false); err != nil {
		return err
	}
	if n := len(p.Days); n < 1 || n > PlanMaxDays {
		return invalid(k, "days", "want 1..%d entries, got %d", PlanMaxDays, n)
	}
	for i, d := range p.Days {
		field := fmt.Sprintf("days[%d]", i)
		if d.Day != i+1 {
			return invalid(k, field+".day", "want %d, got %d", i+1, d.Day)
		}
		if err := text(k, field+".title", d.Title, MaxTitleLen, true); err != nil {
			return err
		}
		if n := len(d.Objectives); n < 1 || n > PlanMaxObjectives {
			return invalid(k, field+".objectives", "want 1..%d entries, got %d", PlanMaxObjectives, n)
		}
		for j, o := range d.Objectives {
			if err := text(k, fmt.Sprintf("%s.objectives[%d]", field, j), o, MaxObjectiveLen, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateLesson(l *Lesson) error {
	const k = KindLesson
	if err := text(k, "title", l.Title, MaxTitleLen, true); err != nil {
		return err
	}
	if err := text(k, "summary", l.Summary, MaxSummaryLen, false); err != nil {
		return err
	}
	if n := len(l.Sections); n < 1 || n > LessonMaxSections {
		return invalid(k, "sections", "want 1..%d entries, got %d", LessonMaxSections, n)
	}
	for i, s := range l.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		if blank(s.Heading) || blank(s.Body) {
			return invalid(k, field, "heading and body required")
		}
		if err := text(k, field+".heading", s.Heading, MaxHeadingLen, true); err != nil {
			return err
		}
		if err := text(k, field+".body", s.Body, MaxBodyLen, true); err != nil {
			return err
		}
	}
	if n := len(l.KeyPoints); n < 1 || n > LessonMaxKeyPoints {
		return invalid(k, "key_points", "want 1..%d entries, got %d", LessonMaxKeyPoints, n)
	}
	for i, p := range l.KeyPoints {
		if err := text(k, fmt.Sprintf("key_points[%d]", i), p, MaxKeyPointLen, true); err != nil {
			return err
		}
	}
	return nil
}

func validateQuiz(q *Quiz) error {
	const k = KindQuiz
	if err := text(k, "title", q.Title, MaxTitleLen, false); err != nil {
		return err
	}
	if n := len(q.Questions); n != QuizQuestionCount {
		return invalid(k, "questions", "want exactly %d, got %d", QuizQuestionCount, n)
	}
	for i, qq := range q.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if err := text(k, field+".prompt", qq.Prompt, MaxPromptLen, true); err != nil {
			return err
		}
		if len(qq.Options) != QuizOptionCount {
			return invalid(k, field+".options", "want exactly %d, got %d", QuizOptionCount, len(qq.Options))
		}
		seen := make(map[string]bool, len(qq.Options))
		for j, o := range qq.Options {
			key := strings.ToLower(strings.TrimSpace(o))
			if err := text(k, fmt.Sprintf("%s.options[%d]", field, j), o, MaxOptionLen, true); err != nil {
				return err
			}
			if seen[key] {
				return invalid(k, fmt.Sprintf("%s.options[%d]", field, j), "duplicate option")
			}
			seen[key] = true
		}
		if qq.AnswerIndex == nil {
			return invalid(k, field+".answer_index", "required")
		}
		if idx := *qq.AnswerIndex; idx < 0 || idx >= QuizOptionCount {
			return invalid(k, field+".answer_index", "out of range: %d", idx)
		}
		if err := text(k, field+".explanation", qq.Explanation, MaxExplanationLen, true); err != nil {
			return err
		}
	}
	return nil
}

func validateFlashcards(f *Flashcards) error {
	const k = KindFlashcards
	if err := text(k, "title", f.Title, MaxTitleLen, false); err != nil {
		return err
	}
	if n := len(f.Cards); n < FlashcardsMinCards || n > FlashcardsMaxCards {
		return invalid(k, "cards", "want %d..%d entries, got %d", FlashcardsMinCards, FlashcardsMaxCards, n)
	}
	for i, c := range f.Cards {
		field := fmt.Sprintf("cards[%d]", i)
		if blank(c.Front) || blank(c.Back) {
			return invalid(k, field, "front and back required")
		}
		if err := text(k, field+".front", c.Front, MaxCardSideLen, true); err != nil {
			return err
		}
		if err := text(k, field+".back", c.Back, MaxCardSideLen, true); err != nil {
			return err
		}
	}
	return nil
}
