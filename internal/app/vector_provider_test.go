package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
	"github.com/yungbote/lessongen/internal/platform/qdrant"
)

func stubVectorConstructors(t *testing.T) {
	t.Helper()
	origQdrant := newQdrantVectorStore
	origQdrantCfg := qdrantConfigFromEnv
	origPineconeClient := newPineconeClient
	origPineconeStore := newPineconeVectorStore
	origPineconeCfg := pineconeConfigFromEnv
	t.Cleanup(func() {
		newQdrantVectorStore = origQdrant
		qdrantConfigFromEnv = origQdrantCfg
		newPineconeClient = origPineconeClient
		newPineconeVectorStore = origPineconeStore
		pineconeConfigFromEnv = origPineconeCfg
	})
}

func TestResolveVectorStoreQdrantSelected(t *testing.T) {
	stubVectorConstructors(t)
	stub := &testVectorStore{}
	var captured qdrant.Config
	qdrantConfigFromEnv = func() (qdrant.Config, error) {
		return qdrant.Config{URL: "http://qdrant:6333", Collection: "lessongen_corpus", NamespacePrefix: "lg", VectorDim: 1536}, nil
	}
	newQdrantVectorStore = func(_ context.Context, _ *logger.Logger, cfg qdrant.Config, _ *http.Client) (pinecone.VectorStore, error) {
		captured = cfg
		return stub, nil
	}
	newPineconeClient = func(*logger.Logger, pinecone.Config) (pinecone.Client, error) {
		t.Fatalf("pinecone must not be initialised in qdrant mode")
		return nil, nil
	}

	vs, err := resolveVectorStore(context.Background(), logger.NewNop(), "qdrant")
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if err := vs.Upsert(context.Background(), "corpus", []pinecone.Vector{{ID: "c1", Values: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stub.upsertCalls != 1 {
		t.Fatalf("underlying qdrant store not called")
	}
	if captured.Collection != "lessongen_corpus" || captured.VectorDim != 1536 {
		t.Fatalf("qdrant config: %+v", captured)
	}
}

func TestResolveVectorStoreQdrantConfigErrorClassified(t *testing.T) {
	stubVectorConstructors(t)
	qdrantConfigFromEnv = func() (qdrant.Config, error) {
		return qdrant.Config{}, &qdrant.ConfigError{Code: qdrant.ConfigErrorMissingURL}
	}

	_, err := resolveVectorStore(context.Background(), logger.NewNop(), "qdrant")
	if got := vectorProviderBootstrapErrorCode(err); got != VectorProviderBootstrapErrorMissingQdrantURL {
		t.Fatalf("code: want=%q got=%q (%v)", VectorProviderBootstrapErrorMissingQdrantURL, got, err)
	}
}

func TestResolveVectorStoreQdrantConnectFailure(t *testing.T) {
	stubVectorConstructors(t)
	qdrantConfigFromEnv = func() (qdrant.Config, error) { return qdrant.Config{URL: "http://qdrant:6333", Collection: "c"}, nil }
	newQdrantVectorStore = func(context.Context, *logger.Logger, qdrant.Config, *http.Client) (pinecone.VectorStore, error) {
		return nil, errors.New("dial tcp 10.0.0.1:6333: connect: connection refused")
	}

	_, err := resolveVectorStore(context.Background(), logger.NewNop(), "qdrant")
	if got := vectorProviderBootstrapErrorCode(err); got != VectorProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: got=%q (%v)", got, err)
	}
}

func TestResolveVectorStorePineconeWithoutKeyDegrades(t *testing.T) {
	stubVectorConstructors(t)
	pineconeConfigFromEnv = func() pinecone.Config { return pinecone.Config{IndexName: "corpus"} }
	newPineconeClient = func(*logger.Logger, pinecone.Config) (pinecone.Client, error) {
		t.Fatalf("client should not be built without an API key")
		return nil, nil
	}

	vs, err := resolveVectorStore(context.Background(), logger.NewNop(), "pinecone")
	if err != nil || vs != nil {
		t.Fatalf("want nil store and nil error, got %v %v", vs, err)
	}
}

func TestResolveVectorStorePineconeSelected(t *testing.T) {
	stubVectorConstructors(t)
	pineconeConfigFromEnv = func() pinecone.Config { return pinecone.Config{APIKey: "k", IndexHost: "idx.example"} }
	newPineconeClient = func(*logger.Logger, pinecone.Config) (pinecone.Client, error) { return nil, nil }
	stub := &testVectorStore{}
	newPineconeVectorStore = func(_ context.Context, _ *logger.Logger, _ pinecone.Client, cfg pinecone.Config) (pinecone.VectorStore, error) {
		if cfg.IndexHost != "idx.example" {
			t.Fatalf("index host not forwarded: %+v", cfg)
		}
		return stub, nil
	}

	vs, err := resolveVectorStore(context.Background(), logger.NewNop(), "pinecone")
	if err != nil || vs == nil {
		t.Fatalf("resolveVectorStore: %v %v", vs, err)
	}
}

func TestResolveVectorStoreNoneAndInvalid(t *testing.T) {
	vs, err := resolveVectorStore(context.Background(), logger.NewNop(), "none")
	if err != nil || vs != nil {
		t.Fatalf("none: %v %v", vs, err)
	}
	_, err = resolveVectorStore(context.Background(), logger.NewNop(), "milvus")
	if got := vectorProviderBootstrapErrorCode(err); got != VectorProviderBootstrapErrorInvalidProvider {
		t.Fatalf("invalid provider: got=%q", got)
	}
}
