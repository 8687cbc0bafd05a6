package helpbot

import (
	"math"
	"strings"
	"unicode"
)

// stopWords is a compact English stop list.
var stopWords = toSet(`a about above after again against all am an and any are as at be because been before being
below between both but by can could did do does doing down during each few for from further had has have having he her
here hers herself him himself his how i if in into is it its itself just me more most my myself no nor not now of off on
once only or other our ours ourselves out over own same she should so some such than that the their theirs them
themselves then there these they this those through to too under until up very was we were what when where which while
who whom why will with would you your yours yourself yourselves`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// terms lower-cases text, drops stop words and single characters, and
// returns unigrams followed by bigrams of the remaining tokens.
func terms(text string) []string {
	var tokens []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}

	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

type vector map[int]float64

func (v vector) dot(o vector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for k, x := range v {
		sum += x * o[k]
	}
	return sum
}

// vectorizer maps text to L2-normalised tf-idf vectors over the vocabulary
// seen at fit time. idf uses the smoothed form ln((1+n)/(1+df)) + 1.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

func fit(docs []string) *vectorizer {
	v := &vectorizer{vocab: make(map[string]int)}
	var df []int
	for _, doc := range docs {
		seen := make(map[int]bool)
		for _, term := range terms(doc) {
			id, ok := v.vocab[term]
			if !ok {
				id = len(v.vocab)
				v.vocab[term] = id
				df = append(df, 0)
			}
			if !seen[id] {
				seen[id] = true
				df[id]++
			}
		}
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(df))
	for id, d := range df {
		v.idf[id] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return v
}

func (v *vectorizer) transform(text string) vector {
	vec := make(vector)
	for _, term := range terms(text) {
		if id, ok := v.vocab[term]; ok {
			vec[id]++
		}
	}

	var norm float64
	for id, tf := range vec {
		w := tf * v.idf[id]
		vec[id] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for id := range vec {
		vec[id] /= norm
	}
	return vec
}
