package tagger

// stopWords is the built-in English stop-word list. Entries are lowercase.
var stopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am",
	"an", "and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "even", "ever", "every",
	"few", "for", "from", "further", "get", "got", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "i", "if", "in", "into", "is", "it", "its", "itself", "just",
	"like", "may", "me", "might", "more", "most", "much", "must", "my",
	"myself", "no", "nor", "not", "now", "of", "off", "on", "once", "one",
	"only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "us",
	"very", "was", "we", "were", "what", "when", "where", "which", "while",
	"who", "whom", "why", "will", "with", "would", "you", "your", "yours",
	"yourself", "yourselves",
	// contraction fragments left behind by the tokenizer ("don't" -> "don")
	"don", "doesn", "didn", "isn", "wasn", "aren", "weren", "won", "wouldn",
	"couldn", "shouldn", "ll", "re", "ve",
}
