// Package textsearch builds an ephemeral TF-IDF index over complaint
// narratives and ranks them by cosine similarity to a free-text query. The
// index is a per-session structure: rebuilding is the only way to reflect a
// corpus change, and nothing is persisted.
package textsearch

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// maxDocFreq drops terms that appear in more than this fraction of the
// corpus; they carry no discriminating weight.
const maxDocFreq = 0.98

// tokenRe matches word tokens of two or more characters.
var tokenRe = regexp.MustCompile(`[a-z0-9]{2,}`)

// Match is one ranked search hit: the document's position in the original
// text slice and its cosine similarity in [0, 1].
type Match struct {
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// Index holds the fitted vocabulary, IDF weights, and L2-normalized
// document vectors.
type Index struct {
	vocab map[string]int
	idf   []float64
	docs  []map[int]float64
	texts []string
}

// Len returns the corpus size.
func (ix *Index) Len() int { return len(ix.texts) }

// Text returns the original narrative at position i.
func (ix *Index) Text(i int) string { return ix.texts[i] }

// tokenize lowercases, extracts word tokens, removes stop words, and forms
// unigrams plus bigrams over the remaining tokens.
func tokenize(text string) []string {
	words := tokenRe.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if !englishStopWords[w] {
			kept = append(kept, w)
		}
	}
	terms := make([]string, 0, len(kept)*2)
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// Build fits a TF-IDF model over texts. Missing narratives must be passed
// as empty strings so index positions keep mapping back to source rows.
func Build(texts []string) *Index {
	cleaned := make([]string, len(texts))
	copy(cleaned, texts)

	tokenized := make([][]string, len(cleaned))
	docFreq := make(map[string]int)
	for i, text := range cleaned {
		tokenized[i] = tokenize(text)
		seen := make(map[string]bool)
		for _, term := range tokenized[i] {
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	n := len(cleaned)
	maxCount := maxDocFreq * float64(n)
	vocab := make(map[string]int)
	var terms []string
	for term, df := range docFreq {
		if float64(df) > maxCount {
			continue
		}
		vocab[term] = 0
		terms = append(terms, term)
	}
	// A tiny corpus where every term tops the cap would be unsearchable;
	// fail open to the unpruned vocabulary instead.
	if len(terms) == 0 && len(docFreq) > 0 {
		for term := range docFreq {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	for i, term := range terms {
		vocab[term] = i
	}

	// Smoothed IDF, as if one extra document contained every term.
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	ix := &Index{vocab: vocab, idf: idf, texts: cleaned}
	ix.docs = make([]map[int]float64, n)
	for i, toks := range tokenized {
		ix.docs[i] = ix.vectorize(toks)
	}
	return ix
}

// vectorize builds an L2-normalized TF-IDF vector from tokens already run
// through tokenize.
func (ix *Index) vectorize(terms []string) map[int]float64 {
	vec := make(map[int]float64)
	for _, term := range terms {
		if id, ok := ix.vocab[term]; ok {
			vec[id]++
		}
	}
	var norm float64
	for id := range vec {
		vec[id] *= ix.idf[id]
		norm += vec[id] * vec[id]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for id := range vec {
			vec[id] /= norm
		}
	}
	return vec
}

// Search projects query into the fitted vector space and returns the topK
// most similar documents, sorted by descending cosine similarity with ties
// broken by position. A blank query returns no matches. topK is clamped to
// the corpus size.
func (ix *Index) Search(query string, topK int) []Match {
	if strings.TrimSpace(query) == "" || len(ix.texts) == 0 || topK <= 0 {
		return nil
	}
	qvec := ix.vectorize(tokenize(query))

	matches := make([]Match, len(ix.docs))
	for i, dvec := range ix.docs {
		// Both vectors are unit length, so cosine is the dot product.
		var dot float64
		small, large := qvec, dvec
		if len(dvec) < len(qvec) {
			small, large = dvec, qvec
		}
		for id, w := range small {
			dot += w * large[id]
		}
		matches[i] = Match{Position: i, Score: dot}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Position < matches[j].Position
	})

	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK]
}
