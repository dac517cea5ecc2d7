package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/lessongen/internal/platform/pinecone"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &testVectorStore{}
	vs := instrumentVectorStore("qdrant", inner)
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}

	if err := vs.Upsert(context.Background(), "corpus", []pinecone.Vector{{ID: "v1", Values: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := vs.QueryMatches(context.Background(), "corpus", []float32{1, 2, 3}, 3, nil)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "v1" {
		t.Fatalf("matches: %+v", matches)
	}
	if inner.upsertCalls != 1 || inner.queryCalls != 1 {
		t.Fatalf("unexpected call counts: upsert=%d query=%d", inner.upsertCalls, inner.queryCalls)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("query failed")
	vs := instrumentVectorStore("pinecone", &testVectorStore{queryErr: want})

	if _, err := vs.QueryMatches(context.Background(), "corpus", []float32{1}, 1, nil); !errors.Is(err, want) {
		t.Fatalf("QueryMatches: expected %v, got=%v", want, err)
	}
	if instrumentVectorStore("pinecone", nil) != nil {
		t.Fatalf("nil inner should stay nil")
	}
}

type testVectorStore struct {
	upsertCalls int
	queryCalls  int
	queryErr    error
}

func (f *testVectorStore) Upsert(_ context.Context, _ string, _ []pinecone.Vector) error {
	f.upsertCalls++
	return nil
}

func (f *testVectorStore) QueryMatches(_ context.Context, _ string, _ []float32, _ int, _ map[string]any) ([]pinecone.VectorMatch, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []pinecone.VectorMatch{{ID: "v1", Score: 0.9}}, nil
}

func TestVectorOpStatus(t *testing.T) {
	cases := map[string]error{
		"success":  nil,
		"timeout":  context.DeadlineExceeded,
		"canceled": context.Canceled,
		"error":    errors.New("boom"),
	}
	for want, err := range cases {
		if got := vectorOpStatus(err); got != want {
			t.Fatalf("vectorOpStatus(%v) = %q, want %q", err, got, want)
		}
	}
}
