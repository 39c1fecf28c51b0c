// Package summarize produces simplified Dutch summaries for news items.
// The provider chain is asked first; when it is exhausted the package
// degrades to extracting the opening sentences of the article so the
// item still gets a readable summary.
package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"helder/internal/core"
	"helder/internal/llm"
	"helder/internal/logger"
)

const (
	// FallbackProvider marks summaries produced by sentence extraction.
	FallbackProvider = "extract-fallback"
	// FailedProvider is the sentinel recorded when neither the chain nor
	// the extraction fallback produced a summary. Items carrying it are
	// picked up again by later backfill passes.
	FailedProvider = "generation-failed"

	// maxPromptRunes caps how much article text goes into the prompt.
	maxPromptRunes = 2000
	// maxExtractRunes caps the extraction fallback output.
	maxExtractRunes = 200
)

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// Summarizer generates child-level explanations of news items.
type Summarizer struct {
	chain *llm.Chain
}

// NewSummarizer creates a summarizer backed by the given provider chain.
func NewSummarizer(chain *llm.Chain) *Summarizer {
	return &Summarizer{chain: chain}
}

// Summarize produces a summary for the item and reports which provider
// made it. When the chain is exhausted it extracts the opening
// sentences instead (FallbackProvider); when the item has no usable
// text at all it returns the title with FallbackProvider, and only an
// entirely empty item yields FailedProvider with an empty summary.
func (s *Summarizer) Summarize(ctx context.Context, item core.Item) (string, string) {
	prompt := buildPrompt(item)

	validate := func(text string) error {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty summary")
		}
		return nil
	}

	text, provider, err := s.chain.Execute(ctx, llm.TaskSummarize, prompt, validate)
	if err == nil {
		return strings.TrimSpace(text), provider
	}

	logger.Warn("Summary chain exhausted, using extraction fallback",
		"fingerprint", item.Fingerprint, "error", err)

	if extracted := Extract(item); extracted != "" {
		return extracted, FallbackProvider
	}
	return "", FailedProvider
}

// buildPrompt renders the Dutch explain-it-simply prompt.
func buildPrompt(item core.Item) string {
	text := item.Body
	if text == "" {
		text = item.Description
	}
	text = truncateRunes(strings.TrimSpace(text), maxPromptRunes)

	return fmt.Sprintf(`Leg dit nieuwsartikel uit alsof ik 5 jaar ben. Gebruik heel eenvoudige Nederlandse woorden die een 5-jarige begrijpt. Gebruik korte zinnen (2-3 zinnen).

BELANGRIJK: Als je namen of woorden met een hoofdletter gebruikt (zoals Mark Rutte, of bedrijfsnamen), leg dan in een paar simpele woorden uit wat dat is. Bijvoorbeeld: "Mark Rutte (dat is de baas van Nederland)". Landen zoals Nederland, Frankrijk, Duitsland hoef je niet uit te leggen.

Titel: %s

Inhoud: %s

Samenvatting:`, item.Title, text)
}

// Extract derives a summary from the item text without a model: the
// first two sentences of the description, or of the body when the
// description is empty, capped to a fixed length. When the item has no
// text the title stands in.
func Extract(item core.Item) string {
	text := strings.TrimSpace(item.Description)
	if text == "" {
		text = strings.TrimSpace(item.Body)
	}
	if text == "" {
		return strings.TrimSpace(item.Title)
	}

	sentences := sentenceSplit.Split(text, -1)
	var kept []string
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		kept = append(kept, sentence)
		if len(kept) == 2 {
			break
		}
	}

	summary := strings.Join(kept, ". ")
	if summary != "" && !strings.ContainsAny(summary[len(summary)-1:], ".!?") {
		summary += "."
	}

	runes := []rune(summary)
	if len(runes) > maxExtractRunes {
		summary = string(runes[:maxExtractRunes]) + "..."
	}
	return summary
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
