package textsearch

// englishStopWords are common English function words excluded from the
// vocabulary before n-gram formation.
var englishStopWords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "also",
		"am", "among", "amongst", "an", "and", "any", "are", "around", "as",
		"at", "be", "became", "because", "been", "before", "behind", "being",
		"below", "between", "beyond", "both", "but", "by", "can", "cannot",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"either", "else", "ever", "every", "few", "for", "from", "further",
		"had", "has", "have", "having", "he", "her", "here", "hers",
		"herself", "him", "himself", "his", "how", "however", "i", "if",
		"in", "into", "is", "it", "its", "itself", "just", "least", "less",
		"many", "may", "me", "might", "more", "most", "much", "must", "my",
		"myself", "neither", "never", "no", "nor", "not", "now", "of",
		"off", "on", "once", "only", "onto", "or", "other", "our", "ours",
		"ourselves", "out", "over", "own", "per", "same", "she", "should",
		"since", "so", "some", "still", "such", "than", "that", "the",
		"their", "theirs", "them", "themselves", "then", "there", "these",
		"they", "this", "those", "through", "thus", "to", "too", "under",
		"until", "up", "upon", "us", "very", "was", "we", "were", "what",
		"when", "where", "whether", "which", "while", "who", "whom", "why",
		"will", "with", "within", "without", "would", "yet", "you", "your",
		"yours", "yourself", "yourselves",
	} {
		englishStopWords[w] = true
	}
}
