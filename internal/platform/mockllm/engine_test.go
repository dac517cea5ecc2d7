package mockllm

import (
	"context"
	"testing"

	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/platform/openai"
)

func TestCompleteProducesValidContentPerKind(t *testing.T) {
	e := New()
	for _, kind := range content.Kinds() {
		out, err := e.Complete(context.Background(), openai.CompletionRequest{
			Purpose:  kind,
			Messages: []openai.Message{{Role: "user", Content: "TOPIC: python\nDAY: 2"}},
		})
		if err != nil {
			t.Fatalf("%s: Complete: %v", kind, err)
		}
		obj, _, err := content.Parse(out.Text)
		if err != nil {
			t.Fatalf("%s: Parse: %v", kind, err)
		}
		if _, _, err := content.Validate(kind, obj); err != nil {
			t.Fatalf("%s: Validate: %v", kind, err)
		}
		if out.PromptTokens <= 0 || out.CompletionTokens <= 0 {
			t.Fatalf("%s: token usage missing: %#v", kind, out)
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e := New()
	a, _ := e.Embed(context.Background(), []string{"Loops", "loops "})
	if len(a[0]) != e.EmbeddingDims {
		t.Fatalf("dims: %d", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatalf("normalized inputs should embed identically")
		}
	}
}
