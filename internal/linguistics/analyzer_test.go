package linguistics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkovacs/bookworm/internal/domain"
)

func TestAnalyzeRunsOnlyRequestedFeatures(t *testing.T) {
	text := "The brilliant engineer built a wonderful machine. Ada Lovelace wrote the first program."

	res := Analyze(text, "en", []domain.AnalysisFeature{domain.FeatureKeywords, domain.FeatureSentiment})

	assert.NotEmpty(t, res.Keywords)
	assert.NotEmpty(t, res.Sentiment)
	assert.Empty(t, res.Summary)
	assert.Empty(t, res.Entities)
}

func TestAnalyzeEmptyFeatureList(t *testing.T) {
	res := Analyze("some text here", "en", nil)
	assert.Equal(t, &Result{}, res)
}

func TestKeywords(t *testing.T) {
	t.Run("ranks by frequency", func(t *testing.T) {
		text := "machine machine machine engine engine wheel"
		got := Keywords(text, "en")
		assert.Equal(t, []string{"machine", "engine", "wheel"}, got)
	})

	t.Run("excludes stopwords and short tokens", func(t *testing.T) {
		text := "the the the of of ox is in a big pen"
		got := Keywords(text, "en")
		assert.NotContains(t, got, "the")
		assert.NotContains(t, got, "of")
		assert.NotContains(t, got, "ox", "tokens shorter than three letters are skipped")
		assert.Contains(t, got, "big")
		assert.Contains(t, got, "pen")
	})

	t.Run("uses the language's stopword set", func(t *testing.T) {
		text := "les machines les machines dans la ville"
		got := Keywords(text, "fr")
		assert.NotContains(t, got, "les")
		assert.NotContains(t, got, "dans")
		assert.Contains(t, got, "machines")
	})

	t.Run("caps the list at ten", func(t *testing.T) {
		var words []string
		for _, w := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliett", "kilo", "lima"} {
			words = append(words, w)
		}
		got := Keywords(strings.Join(words, " "), "en")
		assert.Len(t, got, 10)
	})
}

func TestSummary(t *testing.T) {
	t.Run("keeps leading sentences", func(t *testing.T) {
		text := "First sentence. Second sentence. Third sentence."
		assert.Equal(t, text, Summary(text))
	})

	t.Run("respects the rune budget", func(t *testing.T) {
		long := strings.Repeat("This sentence pads the summary out toward its limit. ", 30)
		got := Summary(long)
		assert.NotEmpty(t, got)
		assert.LessOrEqual(t, len([]rune(got)), 460, "summary stops near the budget")
		assert.Less(t, len([]rune(got)), len([]rune(long)))
	})
}

func TestSentiment(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want string
	}{
		{"positive", "What a wonderful, brilliant, excellent success this was.", "positive"},
		{"negative", "A terrible, horrible failure and a complete disaster.", "negative"},
		{"neutral", "The train departs at nine and arrives at noon.", "neutral"},
		{"french positive", "Un succès magnifique et formidable.", "positive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sentiment(tc.text))
		})
	}
}

func TestEntities(t *testing.T) {
	t.Run("collects capitalized runs", func(t *testing.T) {
		text := "The museum in New York exhibits work by Ada Lovelace this winter."
		got := Entities(text)
		assert.Contains(t, got, "New York")
		assert.Contains(t, got, "Ada Lovelace")
	})

	t.Run("ignores sentence-initial capitals", func(t *testing.T) {
		got := Entities("Winter came early. Snow covered everything.")
		assert.NotContains(t, got, "Winter")
		assert.NotContains(t, got, "Snow")
	})

	t.Run("deduplicates by first appearance", func(t *testing.T) {
		text := "We visited Paris in spring. We loved Paris."
		got := Entities(text)
		count := 0
		for _, e := range got {
			if e == "Paris" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	require.Len(t, got, 4)
	assert.Equal(t, "One.", got[0])
	assert.Equal(t, "Two!", got[1])
	assert.Equal(t, "Three?", got[2])
	assert.Equal(t, "Four", got[3])
}
