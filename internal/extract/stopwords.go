package extract

var stopWords = makeSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
	"but", "by", "can", "could", "did", "do", "does", "doing", "down", "during", "each", "either",
	"etc", "even", "ever", "every", "few", "for", "from", "further", "get", "gets", "got", "had",
	"has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "however", "i", "if", "in", "into", "is", "it", "its", "itself", "just", "let", "like",
	"made", "make", "many", "may", "me", "might", "more", "most", "much", "must", "my", "myself",
	"neither", "no", "nor", "not", "now", "of", "off", "often", "on", "once", "one", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "per", "rather", "same", "says",
	"shall", "she", "should", "since", "so", "some", "such", "than", "that", "the", "their",
	"theirs", "them", "themselves", "then", "there", "these", "they", "this", "those", "though",
	"through", "thus", "to", "too", "under", "until", "up", "upon", "us", "use", "used", "uses",
	"using", "very", "via", "was", "we", "well", "were", "what", "when", "where", "whether",
	"which", "while", "who", "whom", "whose", "why", "will", "with", "within", "without", "would",
	"yet", "you", "your", "yours", "yourself", "yourselves",
)

func makeSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether token is in the stop-word list
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// IsStopWordHeavy rejects n-grams made mostly of stop words: three or more
// tokens may carry at most one stop word, shorter n-grams need at least
// half of their tokens to be content words
func IsStopWordHeavy(tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}

	stops := 0
	for _, t := range tokens {
		if IsStopWord(t) {
			stops++
		}
	}

	if len(tokens) >= 3 {
		return stops > 1
	}
	content := len(tokens) - stops
	return content*2 < len(tokens)
}
