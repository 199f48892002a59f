package linguistics

// Stopword and sentiment lexicons. Small by design: the pipeline needs
// stable, deterministic analysis, not linguistic completeness.

var stopwordsEN = wordSet(
	"the", "a", "an", "and", "or", "but", "of", "to", "in", "on", "at", "by",
	"for", "with", "about", "against", "between", "into", "through", "during",
	"is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "shall", "should", "may", "might",
	"can", "could", "must", "this", "that", "these", "those", "it", "its",
	"he", "she", "they", "them", "his", "her", "their", "we", "you", "your",
	"i", "me", "my", "not", "no", "nor", "so", "than", "too", "very", "just",
	"as", "from", "up", "down", "out", "over", "under", "again", "then",
	"once", "here", "there", "when", "where", "why", "how", "all", "any",
	"both", "each", "few", "more", "most", "other", "some", "such", "what",
	"which", "who", "whom", "if", "because", "while", "also",
)

var stopwordsFR = wordSet(
	"le", "la", "les", "un", "une", "des", "de", "du", "et", "ou", "mais",
	"dans", "sur", "sous", "avec", "sans", "pour", "par", "en", "au", "aux",
	"est", "sont", "était", "étaient", "être", "avoir", "a", "ont", "avait",
	"ce", "cette", "ces", "cet", "il", "elle", "ils", "elles", "on", "nous",
	"vous", "je", "tu", "me", "te", "se", "son", "sa", "ses", "leur", "leurs",
	"ne", "pas", "plus", "moins", "très", "trop", "que", "qui", "quoi", "dont",
	"où", "quand", "comme", "si", "tout", "tous", "toute", "toutes", "autre",
	"même", "aussi", "bien", "encore", "alors", "donc", "car", "été", "fait",
)

var stopwordsES = wordSet(
	"el", "la", "los", "las", "un", "una", "unos", "unas", "de", "del", "y",
	"o", "pero", "en", "con", "sin", "por", "para", "sobre", "entre", "es",
	"son", "era", "eran", "ser", "estar", "ha", "han", "había", "este",
	"esta", "estos", "estas", "ese", "esa", "que", "quien", "como", "cuando",
	"donde", "no", "ni", "más", "menos", "muy", "se", "su", "sus", "lo", "le",
	"les", "yo", "tú", "él", "ella", "nosotros", "ellos", "todo", "todos",
)

var stopwordsDE = wordSet(
	"der", "die", "das", "ein", "eine", "einen", "einem", "und", "oder",
	"aber", "in", "im", "an", "auf", "mit", "ohne", "für", "von", "vom",
	"zu", "zum", "zur", "ist", "sind", "war", "waren", "sein", "haben",
	"hat", "hatte", "dies", "diese", "dieser", "dieses", "er", "sie", "es",
	"wir", "ihr", "ich", "du", "sich", "nicht", "kein", "mehr", "sehr",
	"auch", "als", "wie", "wenn", "dann", "denn", "doch", "nur", "noch",
)

var positiveWords = wordSet(
	"good", "great", "excellent", "wonderful", "beautiful", "love", "happy",
	"joy", "success", "win", "best", "brilliant", "delight", "pleasant",
	"hope", "inspiring", "remarkable", "positive", "favorable", "superb",
	"bon", "bonne", "excellent", "merveilleux", "beau", "belle", "heureux",
	"heureuse", "succès", "magnifique", "formidable", "agréable",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "hate", "sad", "fear", "fail",
	"failure", "worst", "pain", "ugly", "wrong", "problem", "crisis",
	"negative", "poor", "disaster", "tragic", "death",
	"mauvais", "mauvaise", "terrible", "affreux", "triste", "peur", "échec",
	"pire", "douleur", "problème", "crise", "mort",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// stopwordsFor returns the stopword set for an ISO 639-1 language code,
// defaulting to English.
func stopwordsFor(language string) map[string]struct{} {
	switch language {
	case "fr":
		return stopwordsFR
	case "es":
		return stopwordsES
	case "de":
		return stopwordsDE
	default:
		return stopwordsEN
	}
}
