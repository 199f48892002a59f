package extract

import "strings"

// Stopword samples per supported language. Detection counts hits of each
// language's most frequent function words; the language with the most hits
// wins. Short or ambiguous texts fall back to English.
var languageMarkers = map[string][]string{
	"en": {"the", "and", "of", "to", "in", "is", "that", "it", "was", "for", "with", "as", "his", "they"},
	"fr": {"le", "la", "les", "de", "des", "et", "est", "un", "une", "que", "qui", "dans", "pour", "pas"},
	"es": {"el", "la", "los", "las", "de", "que", "y", "en", "un", "una", "es", "por", "con", "para"},
	"de": {"der", "die", "das", "und", "ist", "in", "den", "von", "zu", "mit", "sich", "auf", "nicht", "ein"},
}

// detectLanguage guesses the dominant language of the text by stopword
// frequency. Returns an ISO 639-1 code.
func detectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "en"
	}
	// Cap the sample; function-word ratios stabilize quickly.
	if len(words) > 2000 {
		words = words[:2000]
	}

	markers := make(map[string]map[string]struct{}, len(languageMarkers))
	for lang, list := range languageMarkers {
		set := make(map[string]struct{}, len(list))
		for _, w := range list {
			set[w] = struct{}{}
		}
		markers[lang] = set
	}

	scores := make(map[string]int, len(languageMarkers))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]«»")
		for lang, set := range markers {
			if _, ok := set[w]; ok {
				scores[lang]++
			}
		}
	}

	best, bestScore := "en", 0
	for lang, score := range scores {
		if score > bestScore || (score == bestScore && lang == "en") {
			best, bestScore = lang, score
		}
	}
	return best
}
