package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"helder/internal/core"
	"helder/internal/llm"
)

type scriptedProvider struct {
	name     string
	response string
	err      error
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Generate(ctx context.Context, task llm.Task, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestChain(providers ...llm.Provider) *llm.Chain {
	return llm.NewChain(providers, llm.ChainOptions{AttemptTimeout: time.Second})
}

func TestSummarizeUsesModelResponse(t *testing.T) {
	chain := newTestChain(&scriptedProvider{name: "gemini", response: "  De regering heeft een plan gemaakt. Dat plan gaat over geld.  "})
	summarizer := NewSummarizer(chain)

	summary, provider := summarizer.Summarize(context.Background(), core.Item{
		Title:       "Begroting gepresenteerd",
		Description: "Het kabinet presenteerde de begroting.",
	})

	if summary != "De regering heeft een plan gemaakt. Dat plan gaat over geld." {
		t.Errorf("Expected trimmed model summary, got %q", summary)
	}
	if provider != "gemini" {
		t.Errorf("Expected provider gemini, got %q", provider)
	}
}

func TestSummarizeExtractionFallback(t *testing.T) {
	chain := newTestChain(&scriptedProvider{name: "gemini", err: errors.New("down")})
	summarizer := NewSummarizer(chain)

	summary, provider := summarizer.Summarize(context.Background(), core.Item{
		Title:       "Begroting gepresenteerd",
		Description: "Het kabinet presenteerde vandaag de begroting. De oppositie reageerde kritisch. Later volgt een debat.",
	})

	if provider != FallbackProvider {
		t.Errorf("Expected %q provenance, got %q", FallbackProvider, provider)
	}
	want := "Het kabinet presenteerde vandaag de begroting. De oppositie reageerde kritisch."
	if summary != want {
		t.Errorf("Expected first two sentences %q, got %q", want, summary)
	}
}

func TestSummarizeFailsOnlyWithoutAnyText(t *testing.T) {
	chain := newTestChain(&scriptedProvider{name: "gemini", err: errors.New("down")})
	summarizer := NewSummarizer(chain)

	summary, provider := summarizer.Summarize(context.Background(), core.Item{})
	if provider != FailedProvider {
		t.Errorf("Expected %q provenance, got %q", FailedProvider, provider)
	}
	if summary != "" {
		t.Errorf("Expected empty summary, got %q", summary)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		item core.Item
		want string
	}{
		{
			name: "first two sentences of description",
			item: core.Item{Description: "Eerste zin. Tweede zin! Derde zin."},
			want: "Eerste zin. Tweede zin.",
		},
		{
			name: "single sentence keeps terminator",
			item: core.Item{Description: "Er is maar één zin."},
			want: "Er is maar één zin.",
		},
		{
			name: "body when description empty",
			item: core.Item{Body: "De inhoud begint hier. En gaat verder. Nog meer tekst."},
			want: "De inhoud begint hier. En gaat verder.",
		},
		{
			name: "title as last resort",
			item: core.Item{Title: "Alleen een titel"},
			want: "Alleen een titel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.item); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractCapsLength(t *testing.T) {
	long := strings.Repeat("heel ", 100) + "lang verhaal zonder punt"
	got := Extract(core.Item{Description: long})

	if len([]rune(got)) > 203 {
		t.Errorf("Expected extraction capped around 200 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis on truncated extraction, got %q", got)
	}
}
