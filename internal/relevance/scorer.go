// Package relevance applies a weighted keyword model to candidate text.
// Matching is case-insensitive, diacritics-normalized and phrase-aware;
// every distinct keyword counts once no matter how often it repeats.
package relevance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"RegSonar/internal/domain"
)

// Keyword is one weighted phrase in the relevance model.
type Keyword struct {
	Term     string
	Weight   float64
	Category string
}

type entry struct {
	term     string
	tokens   []string
	weight   float64
	category string
}

// Table is the immutable keyword model handed to the scorer. Passing it
// explicitly keeps scoring deterministic and parallel-safe.
type Table struct {
	entries []entry
	// first token -> candidate entries, for phrase scanning
	byFirst map[string][]int
}

// NewTable normalizes and indexes the keyword phrases. Empty terms and
// non-positive weights are configuration defects.
func NewTable(keywords []Keyword) (*Table, error) {
	t := &Table{byFirst: make(map[string][]int)}

	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		tokens := Tokenize(kw.Term)
		if len(tokens) == 0 {
			return nil, domain.NewConfigError("keyword %q normalizes to nothing", kw.Term)
		}
		if kw.Weight <= 0 {
			return nil, domain.NewConfigError("keyword %q has non-positive weight %v", kw.Term, kw.Weight)
		}

		key := strings.Join(tokens, " ")
		if _, dup := seen[key]; dup {
			return nil, domain.NewConfigError("duplicate keyword %q", kw.Term)
		}
		seen[key] = struct{}{}

		idx := len(t.entries)
		t.entries = append(t.entries, entry{
			term:     kw.Term,
			tokens:   tokens,
			weight:   kw.Weight,
			category: kw.Category,
		})
		t.byFirst[tokens[0]] = append(t.byFirst[tokens[0]], idx)
	}

	return t, nil
}

// Scorer turns candidate items into scored items against one keyword table.
type Scorer struct {
	table    *Table
	minScore float64
	maxScore float64
}

// NewScorer wires a keyword table with the admission threshold and score cap.
func NewScorer(table *Table, minScore, maxScore float64) *Scorer {
	if maxScore <= 0 {
		maxScore = 100
	}
	return &Scorer{table: table, minScore: minScore, maxScore: maxScore}
}

// Score evaluates title, summary and any extracted document text. A source
// bias multiplier below or equal to zero is treated as neutral. The result
// is capped so an item stuffed with terms cannot dominate.
func (s *Scorer) Score(item domain.CandidateItem, doc domain.ExtractedDocument, bias float64) domain.ScoredItem {
	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteByte('\n')
	b.WriteString(item.Summary)
	if doc.Status == domain.ExtractionOK {
		b.WriteByte('\n')
		b.WriteString(doc.FullText)
	}
	text := b.String()

	tokens := Tokenize(text)
	matches := s.table.match(tokens)

	total := 0.0
	for _, m := range matches {
		total += m.Weight
	}
	if bias > 0 {
		total *= bias
	}
	if total > s.maxScore {
		total = s.maxScore
	}

	return domain.ScoredItem{
		Item:     item,
		Document: doc,
		Score:    total,
		Matches:  matches,
		Deadline: ExtractDeadline(text),
	}
}

// Relevant reports whether the item clears the hard admission threshold.
func (s *Scorer) Relevant(item domain.ScoredItem) bool {
	return item.Score >= s.minScore
}

// match finds every distinct table phrase occurring as a contiguous token
// run. A phrase matches at most once.
func (t *Table) match(tokens []string) []domain.MatchedKeyword {
	matched := make(map[int]struct{})
	var out []domain.MatchedKeyword

	for pos, tok := range tokens {
		for _, idx := range t.byFirst[tok] {
			if _, done := matched[idx]; done {
				continue
			}
			e := t.entries[idx]
			if pos+len(e.tokens) > len(tokens) {
				continue
			}
			hit := true
			for i, want := range e.tokens {
				if tokens[pos+i] != want {
					hit = false
					break
				}
			}
			if hit {
				matched[idx] = struct{}{}
				out = append(out, domain.MatchedKeyword{
					Term:     e.term,
					Category: e.category,
					Weight:   e.weight,
				})
			}
		}
	}

	return out
}

// Tokenize lowercases, strips diacritics and splits on anything that is not
// a letter or digit. Hyphenated terms like "eos-avtalen" therefore match
// both hyphenated and spaced spellings.
func Tokenize(text string) []string {
	normalized := strings.ToLower(removeAccents(text))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
