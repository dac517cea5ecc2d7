// Package mockllm is a deterministic, offline model engine for local runs
// and tests. Embeddings are hashed from the input; completions are valid
// generation payloads for the request's purpose.
package mockllm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/lessongen/internal/platform/openai"
)

const DefaultModel = "mock-1"

type Engine struct {
	EmbeddingDims int
	Model         string
	PlanDays      int
}

func New() *Engine {
	return &Engine{EmbeddingDims: 16, Model: DefaultModel, PlanDays: 7}
}

var _ openai.Client = (*Engine)(nil)

func (e *Engine) DefaultModel() string { return e.Model }

func (e *Engine) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = HashVector(e.Model, s, e.EmbeddingDims)
	}
	return out, nil
}

// HashVector derives a stable pseudo-embedding from text.
func HashVector(model, text string, dims int) []float32 {
	h := sha256.Sum256([]byte(model + "\n" + strings.ToLower(strings.TrimSpace(text))))
	vec := make([]float32, dims)
	for j := 0; j < dims; j++ {
		u := binary.LittleEndian.Uint32(h[(j*4)%(len(h)-3):])
		vec[j] = float32(u%10_000)/10_000.0 - 0.5
	}
	return vec
}

func (e *Engine) Complete(ctx context.Context, req openai.CompletionRequest) (openai.Completion, error) {
	if err := ctx.Err(); err != nil {
		return openai.Completion{}, err
	}
	var user string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if strings.EqualFold(req.Messages[i].Role, "user") {
			user = req.Messages[i].Content
			break
		}
	}
	topic := field(user, "TOPIC")
	if topic == "" {
		topic = "the topic"
	}
	day, _ := strconv.Atoi(field(user, "DAY"))

	var payload any
	switch req.Purpose {
	case "plan":
		payload = e.plan(topic)
	case "lesson":
		payload = lesson(topic, day)
	case "quiz":
		payload = quiz(topic, day)
	case "flashcards":
		payload = flashcards(topic, day)
	default:
		payload = map[string]any{"ok": true, "purpose": req.Purpose}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return openai.Completion{}, err
	}
	model := req.Model
	if model == "" {
		model = e.Model
	}
	prompt := 0
	for _, m := range req.Messages {
		prompt += len(m.Content)/4 + 1
	}
	return openai.Completion{
		Text:             string(b),
		Model:            model,
		PromptTokens:     prompt,
		CompletionTokens: len(b)/4 + 1,
	}, nil
}

// field reads "NAME: value" from a rendered prompt.
func field(text, name string) string {
	prefix := name + ":"
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func (e *Engine) plan(topic string) map[string]any {
	n := e.PlanDays
	if n <= 0 {
		n = 7
	}
	days := make([]map[string]any, 0, n)
	for d := 1; d <= n; d++ {
		days = append(days, map[string]any{
			"day":        d,
			"title":      fmt.Sprintf("%s: part %d", topic, d),
			"objectives": []string{fmt.Sprintf("Understand %s concept %d", topic, d)},
		})
	}
	return map[string]any{
		"title":   "Learning " + topic,
		"summary": fmt.Sprintf("A %d-day introduction to %s.", n, topic),
		"days":    days,
	}
}

func lesson(topic string, day int) map[string]any {
	return map[string]any{
		"title":   fmt.Sprintf("%s, day %d", topic, day),
		"summary": "Today's focused lesson.",
		"sections": []map[string]any{
			{"heading": "Overview", "body": "What " + topic + " is about."},
			{"heading": "Practice", "body": "Try a small exercise."},
		},
		"key_points": []string{"Start small", "Practice daily"},
	}
}

func quiz(topic string, day int) map[string]any {
	qs := make([]map[string]any, 0, 5)
	for i := 0; i < 5; i++ {
		qs = append(qs, map[string]any{
			"prompt":       fmt.Sprintf("Question %d about %s (day %d)?", i+1, topic, day),
			"options":      []string{"Option A", "Option B", "Option C", "Option D"},
			"answer_index": i % 4,
			"explanation":  "Covered in today's lesson.",
		})
	}
	return map[string]any{"title": topic + " quiz", "questions": qs}
}

func flashcards(topic string, day int) map[string]any {
	cards := make([]map[string]any, 0, 6)
	for i := 1; i <= 6; i++ {
		cards = append(cards, map[string]any{
			"front": fmt.Sprintf("%s term %d", topic, i),
			"back":  fmt.Sprintf("Definition %d from day %d", i, day),
		})
	}
	return map[string]any{"title": topic + " flashcards", "cards": cards}
}
