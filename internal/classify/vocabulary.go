package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one entry of the classification vocabulary.
type Category struct {
	// Name is the canonical label, stored verbatim on items.
	Name string `yaml:"name"`
	// Hint describes the category for the model prompt.
	Hint string `yaml:"hint"`
	// Keywords trigger the category in the keyword fallback. Matching is
	// case-insensitive substring matching against title plus text.
	Keywords []string `yaml:"keywords"`
	// SuppressedBy lists categories that, when already matched, block this
	// one in the keyword fallback. It keeps broad buckets from doubling up
	// with their specific siblings.
	SuppressedBy []string `yaml:"suppressed_by"`
}

// Vocabulary is the closed set of categories items can carry. Order
// matters for the keyword fallback: specific categories come before
// broad ones.
type Vocabulary struct {
	Categories []Category `yaml:"categories"`
	// CatchAll is assigned when the keyword fallback matches nothing.
	CatchAll string `yaml:"catch_all"`

	byLower map[string]string
}

// CatchAllCategory is the default bucket for Dutch general news.
const CatchAllCategory = "binnenland"

// DefaultVocabulary returns the built-in Dutch news vocabulary.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		CatchAll: CatchAllCategory,
		Categories: []Category{
			{
				Name:     "Internationale conflicten",
				Hint:     "Oorlogen, conflicten (Rusland-Oekraïne, Gaza-Israël, Soedan, etc.)",
				Keywords: []string{"rusland", "oekraïne", "oekraine", "ukraine", "gaza", "israël", "israel", "palestina", "soedan", "sudan", "conflict", "oorlog", "aanval"},
			},
			{
				Name:     "Buitenland - Europa",
				Hint:     "Nieuws over Europese landen (behalve conflicten)",
				Keywords: []string{"europa", "eu", "europese unie", "brussel", "frankrijk", "duitsland", "spanje", "italië", "belgië", "polen", "eurozone"},
			},
			{
				Name:         "buitenland - overig",
				Hint:         "Nieuws over landen buiten Europa (behalve conflicten)",
				Keywords:     []string{"amerika", "verenigde staten", "vs", "china", "japan", "australië", "canada", "buitenland"},
				SuppressedBy: []string{"Buitenland - Europa"},
			},
			{
				Name:     "Sport - Voetbal",
				Hint:     "ALLEEN specifiek over voetbal (wedstrijden, clubs, spelers, competities)",
				Keywords: []string{"voetbal", "ajax", "psv", "feyenoord", "eredivisie", "champions league", "ek", "wk voetbal", "voetballer"},
			},
			{
				Name:     "Sport - Wielrennen",
				Hint:     "ALLEEN specifiek over wielrennen (koersen, wielrenners)",
				Keywords: []string{"wielrennen", "tour de france", "giro", "vuelta", "wielrenner", "koers", "fietsen"},
			},
			{
				Name:         "overige sport",
				Hint:         "Andere sporten (tennis, zwemmen, atletiek, etc.) maar NIET voetbal of wielrennen",
				Keywords:     []string{"sport", "olympische", "atletiek", "zwemmen", "tennis", "hockey", "basketbal"},
				SuppressedBy: []string{"Sport - Voetbal", "Sport - Wielrennen"},
			},
			{
				Name:     "Koningshuis",
				Hint:     "Koning, koningin, prins(es), Oranje",
				Keywords: []string{"koning", "koningin", "prins", "prinses", "beatrix", "willem-alexander", "maxima", "amalia", "koningshuis", "oranje"},
			},
			{
				Name:     "bekende Nederlanders",
				Hint:     "Acteurs, zangers, artiesten, celebrities",
				Keywords: []string{"acteur", "actrice", "zanger", "zangeres", "artiest", "presentator", "bekende nederlander"},
			},
			{
				Name:     "Nationale Politiek",
				Hint:     "Kabinet, ministers, Tweede Kamer, regering",
				Keywords: []string{"kabinet", "minister", "premier", "tweede kamer", "eerste kamer", "regering", "oppositie", "coalitie", "den haag", "binnenhof"},
			},
			{
				Name:     "Lokale Politiek",
				Hint:     "Gemeente, burgemeester, gemeenteraad",
				Keywords: []string{"gemeente", "burgemeester", "wethouder", "gemeenteraad", "lokaal", "gemeentelijk"},
			},
			{
				Name:     "Misdaad",
				Hint:     "Criminaliteit, moord, diefstal, rechtspraak",
				Keywords: []string{"moord", "diefstal", "inbraak", "geweld", "crimineel", "politie", "rechter", "rechtbank", "cel", "gevangenis"},
			},
			{
				Name:     "Huizenmarkt",
				Hint:     "Woningen, huur, koop, hypotheken, vastgoed",
				Keywords: []string{"huis", "woning", "huur", "koop", "hypotheek", "vastgoed", "huizenmarkt", "woningmarkt", "huurprijs", "koopprijs"},
			},
			{
				Name:     "Economie",
				Hint:     "Economisch nieuws, inflatie, bedrijven, werkgelegenheid",
				Keywords: []string{"economie", "economisch", "inflatie", "prijzen", "geld", "bank", "beurs", "bedrijf", "werkgelegenheid", "werkloosheid"},
			},
			{
				Name:     "Technologie",
				Hint:     "Tech, computers, AI, software, digitale ontwikkelingen",
				Keywords: []string{"technologie", "tech", "computer", "internet", "app", "software", "ai", "artificiële intelligentie", "robot", "digitale"},
			},
			{
				Name: "binnenland",
				Hint: "Algemeen Nederlands nieuws zonder specifieke categorie",
			},
		},
	}
	v.buildIndex()
	return v
}

// LoadVocabulary reads a vocabulary override from a YAML file. An empty
// path returns the built-in vocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	v := &Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}
	if len(v.Categories) == 0 {
		return nil, fmt.Errorf("vocabulary file %s defines no categories", path)
	}
	if v.CatchAll == "" {
		v.CatchAll = v.Categories[len(v.Categories)-1].Name
	}
	v.buildIndex()
	return v, nil
}

func (v *Vocabulary) buildIndex() {
	v.byLower = make(map[string]string, len(v.Categories))
	for _, c := range v.Categories {
		v.byLower[strings.ToLower(c.Name)] = c.Name
	}
}

// Names returns the canonical category names in vocabulary order.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.Categories))
	for _, c := range v.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Canonical maps a case-insensitive label to its canonical form. The
// second return value reports whether the label is in the vocabulary.
func (v *Vocabulary) Canonical(label string) (string, bool) {
	name, ok := v.byLower[strings.ToLower(strings.TrimSpace(label))]
	return name, ok
}

// MatchKeywords assigns categories by keyword matching. Categories are
// evaluated in vocabulary order so specific ones can suppress broad
// ones. When nothing matches, the catch-all category is returned.
func (v *Vocabulary) MatchKeywords(text string) []string {
	lowered := strings.ToLower(text)
	matched := make(map[string]bool)
	var categories []string

	for _, c := range v.Categories {
		if len(c.Keywords) == 0 {
			continue
		}
		hit := false
		for _, kw := range c.Keywords {
			if strings.Contains(lowered, kw) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		suppressed := false
		for _, blocker := range c.SuppressedBy {
			if matched[blocker] {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		matched[c.Name] = true
		categories = append(categories, c.Name)
	}

	if len(categories) == 0 {
		categories = append(categories, v.CatchAll)
	}
	return categories
}
