// Package docindex provides the document-indexing collaborator: it chunks and
// embeds documents into an in-memory vector index and answers questions about
// them by retrieving the closest chunks and synthesizing a reply through a
// text-completion service.
package docindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/janngomaa/ai-job-application/internal/llm"
)

const defaultTopK = 5

// chunk is one embedded slice of an indexed document.
type chunk struct {
	text      string
	embedding []float64
}

// Index is a queryable handle over a set of indexed documents. It is
// immutable after construction and safe for concurrent queries.
type Index struct {
	embedder  Embedder
	completer llm.Completer
	chunks    []chunk
	topK      int
}

// Service builds indexes. It implements the document-indexing collaborator
// interface consumed by workflow steps.
type Service struct {
	embedder  Embedder
	completer llm.Completer
	topK      int
}

// NewService creates an indexing service. topK <= 0 selects the default of 5
// retrieved chunks per query.
func NewService(embedder Embedder, completer llm.Completer, topK int) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{embedder: embedder, completer: completer, topK: topK}, nil
}

// Index chunks and embeds the given documents and returns a queryable handle.
func (s *Service) Index(ctx context.Context, documents []string) (*Index, error) {
	var texts []string
	for _, doc := range documents {
		texts = append(texts, splitChunks(doc)...)
	}
	if len(texts) == 0 {
		return nil, errors.New("no indexable content")
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("index documents: %w", err)
	}

	chunks := make([]chunk, len(texts))
	for i := range texts {
		chunks[i] = chunk{text: texts[i], embedding: vectors[i]}
	}
	return &Index{
		embedder:  s.embedder,
		completer: s.completer,
		chunks:    chunks,
		topK:      s.topK,
	}, nil
}

// Query embeds the question, retrieves the topK most similar chunks and asks
// the completer to answer from them.
func (ix *Index) Query(ctx context.Context, question string) (string, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	top := ix.retrieve(vectors[0])
	prompt := fmt.Sprintf(
		"Answer the question using only the context below.\n\n<context>\n%s\n</context>\n\nQuestion: %s",
		strings.Join(top, "\n---\n"),
		question,
	)
	answer, err := ix.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return answer, nil
}

// retrieve returns the texts of the topK chunks ranked by cosine similarity.
func (ix *Index) retrieve(query []float64) []string {
	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		ranked = append(ranked, scored{text: c.text, score: cosineSimilarity(query, c.embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := ix.topK
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].text
	}
	return out
}

// splitChunks breaks a document into paragraph-sized chunks, dropping blanks.
func splitChunks(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
