package jobapp

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/janngomaa/ai-job-application/internal/docindex"
	"github.com/janngomaa/ai-job-application/internal/docparse"
	"github.com/janngomaa/ai-job-application/internal/llm"
)

// Default OpenAI models, matching what the workflow was tuned against.
const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Parser turns a document on disk into plain text.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
}

// FieldExtractor lists the fields an application form expects, in order.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, formText string) ([]string, error)
}

// Index answers questions against an indexed document.
type Index interface {
	Query(ctx context.Context, question string) (string, error)
}

// Indexer builds a queryable Index over documents.
type Indexer interface {
	Index(ctx context.Context, documents []string) (Index, error)
}

// Completer produces a completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Services bundles the collaborators the form-filling workflow depends on.
// Each field can be swapped for a fake in tests.
type Services struct {
	Parser    Parser
	Fields    FieldExtractor
	Indexer   Indexer
	Completer Completer
}

// DefaultServices wires Services to OpenAI with the default models.
func DefaultServices(apiKey string) (Services, error) {
	return OpenAIServices(apiKey, DefaultModel, DefaultEmbeddingModel)
}

// OpenAIServices wires Services to OpenAI with explicit model choices.
func OpenAIServices(apiKey, model, embeddingModel string) (Services, error) {
	client := openai.NewClient(apiKey)

	completer, err := llm.New(llm.Options{Client: client, Model: model})
	if err != nil {
		return Services{}, err
	}
	embedder, err := docindex.NewOpenAIEmbedder(client, embeddingModel)
	if err != nil {
		return Services{}, err
	}
	indexSvc, err := docindex.NewService(embedder, completer, 0)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Parser:    docparse.NewTextParser(),
		Fields:    docparse.NewLLMFieldExtractor(completer),
		Indexer:   indexerAdapter{svc: indexSvc},
		Completer: completer,
	}, nil
}

// indexerAdapter narrows *docindex.Service to the Indexer interface. The
// concrete Index return type keeps Go from satisfying the interface directly.
type indexerAdapter struct {
	svc *docindex.Service
}

func (a indexerAdapter) Index(ctx context.Context, documents []string) (Index, error) {
	idx, err := a.svc.Index(ctx, documents)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
