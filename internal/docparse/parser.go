// Package docparse provides the document-parsing and form-field-extraction
// collaborators. Parsing is deliberately simple: documents are expected as
// plain text or markdown; richer formats are converted upstream.
package docparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/janngomaa/ai-job-application/internal/llm"
)

// TextParser reads a document from disk as UTF-8 text.
type TextParser struct{}

func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Parse(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("document %s is empty", path)
	}
	return text, nil
}

const extractFieldsPrompt = `This is a parsed form. Convert it into a JSON object containing only the list of fields to be filled in, in the form { "fields": [...] }. <form>%s</form>. Return JSON ONLY, no markdown.`

// LLMFieldExtractor asks a completion service which fields an application
// form expects, preserving their order of appearance.
type LLMFieldExtractor struct {
	completer llm.Completer
}

func NewLLMFieldExtractor(completer llm.Completer) *LLMFieldExtractor {
	return &LLMFieldExtractor{completer: completer}
}

func (x *LLMFieldExtractor) ExtractFields(ctx context.Context, formText string) ([]string, error) {
	raw, err := x.completer.Complete(ctx, fmt.Sprintf(extractFieldsPrompt, formText))
	if err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	var parsed struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("extract fields: malformed response: %w", err)
	}
	if len(parsed.Fields) == 0 {
		return nil, errors.New("extract fields: form has no fields")
	}
	return parsed.Fields, nil
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence despite
// being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
