// Package classify assigns category labels to news items. It asks the
// provider chain first and falls back to keyword matching when every
// provider fails, so an item never goes unclassified.
package classify

import (
	"context"
	"fmt"
	"strings"

	"helder/internal/core"
	"helder/internal/llm"
	"helder/internal/logger"
)

// FallbackProvider is the provenance value recorded when keyword
// matching produced the labels instead of a model.
const FallbackProvider = "keyword-fallback"

// maxPromptRunes caps how much article text goes into the prompt.
const maxPromptRunes = 1500

// Classifier labels items against a closed vocabulary.
type Classifier struct {
	chain *llm.Chain
	vocab *Vocabulary
}

// NewClassifier creates a classifier backed by the given provider chain.
func NewClassifier(chain *llm.Chain, vocab *Vocabulary) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{chain: chain, vocab: vocab}
}

// Classify determines the categories for an entry. It returns the
// labels together with the name of the provider that produced them;
// the keyword fallback reports FallbackProvider. Classify never fails:
// exhaustion of the chain degrades to keyword matching.
func (c *Classifier) Classify(ctx context.Context, entry core.FeedEntry) ([]string, string) {
	prompt := c.buildPrompt(entry)

	validate := func(text string) error {
		if len(c.parseResponse(text)) == 0 {
			return fmt.Errorf("no valid categories in response")
		}
		return nil
	}

	text, provider, err := c.chain.Execute(ctx, llm.TaskClassify, prompt, validate)
	if err != nil {
		logger.Warn("Classification chain exhausted, using keyword fallback",
			"title", entry.Title, "error", err)
		fallbackText := entry.Title + " " + entry.Description + " " + entry.Body
		return c.vocab.MatchKeywords(fallbackText), FallbackProvider
	}

	return c.parseResponse(text), provider
}

// Vocabulary returns the vocabulary the classifier labels against.
func (c *Classifier) Vocabulary() *Vocabulary {
	return c.vocab
}

// buildPrompt renders the Dutch classification prompt with the
// vocabulary and its per-category hints.
func (c *Classifier) buildPrompt(entry core.FeedEntry) string {
	var hints strings.Builder
	for _, cat := range c.vocab.Categories {
		hints.WriteString(fmt.Sprintf("- %s: %s\n", cat.Name, cat.Hint))
	}

	content := entry.Description
	if entry.Body != "" {
		content = content + " " + entry.Body
	}
	content = truncateRunes(strings.TrimSpace(content), maxPromptRunes)

	return fmt.Sprintf(`Categoriseer dit nieuwsartikel nauwkeurig. Kies ALLEEN categorieën die echt van toepassing zijn. Wees precies en vermijd foutieve categorisatie.

BELANGRIJKE REGELS:
- "Sport - Voetbal": ALLEEN artikelen die SPECIFIEK over voetbal gaan (wedstrijden, spelers, clubs, competities). NIET voor andere sporten of algemeen sportnieuws.
- "Sport - Wielrennen": ALLEEN artikelen over wielrennen (Tour de France, Giro, wielrenners, koersen). NIET voor andere sporten.
- "overige sport": Alleen als het over sport gaat maar NIET voetbal of wielrennen.

Beschikbare categorieën met uitleg:
%s
Artikel:
Titel: %s
Inhoud: %s

Analyseer het artikel zorgvuldig. Kies alleen categorieën die ECHT van toepassing zijn.
Geef alleen de categorieën terug, gescheiden door komma's. Bijvoorbeeld: "binnenland, Nationale Politiek"
Als geen specifieke categorie past, geef dan "%s" terug.

Categorieën:`, hints.String(), entry.Title, content, c.vocab.CatchAll)
}

// parseResponse extracts canonical labels from a model response.
// Labels outside the vocabulary are dropped; duplicates collapse to
// their first occurrence.
func (c *Classifier) parseResponse(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'`")

	seen := make(map[string]bool)
	var labels []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' }) {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "\"'")
		if part == "" {
			continue
		}
		name, ok := c.vocab.Canonical(part)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		labels = append(labels, name)
	}
	return labels
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
