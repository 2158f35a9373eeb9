package mind

import "strings"

// maxTopicWords caps the extracted topic length.
const maxTopicWords = 5

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "shall": true, "can": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true, "by": true,
	"from": true, "about": true, "as": true, "into": true, "that": true,
	"this": true, "these": true, "those": true, "it": true, "its": true,
	"i": true, "my": true, "we": true, "our": true, "you": true, "your": true,
	"they": true, "their": true, "he": true, "she": true, "not": true, "no": true,
	"so": true, "if": true, "then": true, "than": true, "there": true,
	"what": true, "which": true, "who": true, "how": true, "when": true,
	"where": true, "why": true, "all": true, "some": true, "just": true,
	"very": true, "also": true, "more": true, "most": true, "am": true,
}

// ExtractTopic reduces text to its first few significant lowercased words.
// Punctuation is stripped; stopwords and single characters are skipped.
func ExtractTopic(text string) string {
	var words []string
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, ".,;:!?\"'()[]{}@#")
		if len(word) < 2 || stopwords[word] {
			continue
		}
		words = append(words, word)
		if len(words) == maxTopicWords {
			break
		}
	}
	return strings.Join(words, " ")
}

// TopicsRelated reports whether two topics share at least one word.
func TopicsRelated(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	set := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		set[w] = true
	}
	for _, w := range strings.Fields(b) {
		if set[w] {
			return true
		}
	}
	return false
}
