package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
	"github.com/yungbote/lessongen/internal/platform/qdrant"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
	qdrantConfigFromEnv    = qdrant.ConfigFromEnv
	pineconeConfigFromEnv  = pinecone.ConfigFromEnv
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore returns the corpus index for provider, or nil for
// "none". Pinecone without an API key degrades to nil with a warning.
func resolveVectorStore(ctx context.Context, log *logger.Logger, provider string) (pinecone.VectorStore, error) {
	provider = strings.TrimSpace(strings.ToLower(provider))

	switch provider {
	case "", VectorProviderNone:
		log.Info("No vector index configured; retrieval uses the in-memory fallback")
		return nil, nil

	case VectorProviderQdrant:
		qcfg, err := qdrantConfigFromEnv()
		if err != nil {
			return nil, bootstrapFailed(log, provider, err)
		}
		log.Info("Selecting vector store provider",
			"provider", provider,
			"qdrant_url", qcfg.URL,
			"qdrant_collection", qcfg.Collection,
			"qdrant_namespace_prefix", qcfg.NamespacePrefix,
			"qdrant_vector_dim", qcfg.VectorDim,
		)
		vs, err := newQdrantVectorStore(ctx, log, qcfg, nil)
		if err != nil {
			return nil, bootstrapFailed(log, provider, err)
		}
		return instrumentVectorStore(provider, vs), nil

	case VectorProviderPinecone:
		pcfg := pineconeConfigFromEnv()
		if strings.TrimSpace(pcfg.APIKey) == "" {
			log.Warn("PINECONE_API_KEY not set; vector search disabled")
			return nil, nil
		}
		log.Info("Selecting vector store provider", "provider", provider, "index_name", pcfg.IndexName)
		pc, err := newPineconeClient(log, pcfg)
		if err != nil {
			return nil, bootstrapFailed(log, provider, err)
		}
		vs, err := newPineconeVectorStore(ctx, log, pc, pcfg)
		if err != nil {
			return nil, bootstrapFailed(log, provider, err)
		}
		return instrumentVectorStore(provider, vs), nil

	default:
		err := &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
		log.Error("Vector store provider selection failed", "provider", provider, "error_code", err.Code, "error", err)
		return nil, err
	}
}

func bootstrapFailed(log *logger.Logger, provider string, err error) error {
	classified := classifyVectorProviderBootstrapError(provider, err)
	log.Error("Vector store provider bootstrap failed",
		"provider", provider,
		"error_code", vectorProviderBootstrapErrorCode(classified),
		"error", classified,
	)
	return classified
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		}
	}

	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) && (opErr.Code == qdrant.OperationErrorTransportFailed || opErr.Code == qdrant.OperationErrorTimeout) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
