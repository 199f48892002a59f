// Package linguistics implements the in-process text analysis used by the
// linguistic-analysis stage: keyword extraction, auto-summary, sentiment
// scoring, and named-entity tagging.
package linguistics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rkovacs/bookworm/internal/domain"
)

const (
	maxKeywords      = 10
	maxSummaryRunes  = 400
	maxEntities      = 15
	minKeywordLength = 3
)

// Result carries only the requested analysis outputs. Fields for features
// that were not requested stay at their zero values and are omitted from
// the document update, so re-runs are additive.
type Result struct {
	Keywords  []string
	Summary   string
	Sentiment string
	Entities  []string
}

// Analyze runs the requested features over the text. An empty feature list
// produces an empty result.
func Analyze(text, language string, features []domain.AnalysisFeature) *Result {
	res := &Result{}
	for _, f := range features {
		switch f {
		case domain.FeatureKeywords:
			res.Keywords = Keywords(text, language)
		case domain.FeatureSummary:
			res.Summary = Summary(text)
		case domain.FeatureSentiment:
			res.Sentiment = Sentiment(text)
		case domain.FeatureEntities:
			res.Entities = Entities(text)
		}
	}
	return res
}

// Keywords returns the most frequent content words, stopwords excluded,
// ordered by descending frequency with alphabetical tie-break.
func Keywords(text, language string) []string {
	stop := stopwordsFor(language)
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		if len(tok) < minKeywordLength {
			continue
		}
		if _, ok := stop[tok]; ok {
			continue
		}
		counts[tok]++
	}

	type entry struct {
		word string
		n    int
	}
	entries := make([]entry, 0, len(counts))
	for w, n := range counts {
		entries = append(entries, entry{w, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].word < entries[j].word
	})

	limit := maxKeywords
	if len(entries) < limit {
		limit = len(entries)
	}
	out := make([]string, 0, limit)
	for _, e := range entries[:limit] {
		out = append(out, e.word)
	}
	return out
}

// Summary returns the leading sentences of the text up to a rune budget.
func Summary(text string) string {
	sentences := splitSentences(text)
	var sb strings.Builder
	for _, s := range sentences {
		if sb.Len() > 0 && len([]rune(sb.String()))+len([]rune(s))+1 > maxSummaryRunes {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s)
		if len([]rune(sb.String())) >= maxSummaryRunes {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

// Sentiment classifies the overall tone as positive, negative, or neutral
// by lexicon hit counts.
func Sentiment(text string) string {
	var pos, neg int
	for _, tok := range tokenize(text) {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// Entities collects capitalized word runs that do not open a sentence,
// deduplicated in order of first appearance.
func Entities(text string) []string {
	var entities []string
	seen := make(map[string]struct{})

	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		var run []string
		flush := func() {
			if len(run) == 0 {
				return
			}
			name := strings.Join(run, " ")
			run = nil
			if _, ok := seen[name]; ok {
				return
			}
			seen[name] = struct{}{}
			entities = append(entities, name)
		}
		for i, w := range words {
			clean := strings.TrimFunc(w, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			})
			// The first word of a sentence is capitalized regardless of
			// being a name, so it never starts a run on its own.
			if clean != "" && isCapitalized(clean) && i > 0 {
				run = append(run, clean)
				continue
			}
			flush()
		}
		flush()
		if len(entities) >= maxEntities {
			break
		}
	}

	if len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}
	return entities
}

func isCapitalized(word string) bool {
	runes := []rune(word)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsUpper(runes[0])
}

// tokenize lowercases the text and splits on non-letter boundaries.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// splitSentences breaks text on terminal punctuation, keeping the
// punctuation attached.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range strings.TrimSpace(text) {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
