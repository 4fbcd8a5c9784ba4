package textindex

import (
	"math"
	"sort"
)

// Index is a frozen TF-IDF term space over a corpus. Each document row is L2-normalized and
// kept as an inverted index so a query only touches documents sharing a term with it.
// An Index is immutable after Build and safe for concurrent use.
type Index struct {
	docs       int
	vocabulary map[string]int
	terms      []string
	idf        []float64
	postings   [][]posting
}

type posting struct {
	doc    int
	weight float64
}

// Vector is a sparse, L2-normalized term vector with term ids in ascending order.
type Vector struct {
	Terms   []int
	Weights []float64
}

func (v Vector) IsZero() bool {
	return len(v.Terms) == 0
}

// Build indexes the corpus. Document i of the corpus is document i of the index.
func Build(corpus []string) *Index {
	counts := make([]map[string]int, len(corpus))
	df := make(map[string]int)
	for i, text := range corpus {
		counts[i] = termCounts(NGrams(text))
		for term := range counts[i] {
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	idx := &Index{
		docs:       len(corpus),
		vocabulary: make(map[string]int, len(terms)),
		terms:      terms,
		idf:        make([]float64, len(terms)),
		postings:   make([][]posting, len(terms)),
	}

	n := float64(len(corpus))
	for id, term := range terms {
		idx.vocabulary[term] = id
		idx.idf[id] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	for doc, tc := range counts {
		vec := idx.weigh(tc)
		for i, id := range vec.Terms {
			idx.postings[id] = append(idx.postings[id], posting{doc: doc, weight: vec.Weights[i]})
		}
	}

	return idx
}

// Len is the number of indexed documents.
func (x *Index) Len() int {
	return x.docs
}

func (x *Index) VocabularySize() int {
	return len(x.terms)
}

// IDF returns the inverse document frequency of term and whether the term is in the vocabulary.
func (x *Index) IDF(term string) (float64, bool) {
	id, ok := x.vocabulary[term]
	if !ok {
		return 0, false
	}
	return x.idf[id], true
}

// Vector projects text into the index space. Terms outside the vocabulary are dropped.
func (x *Index) Vector(text string) Vector {
	return x.weigh(termCounts(NGrams(text)))
}

// Similarities returns the cosine similarity between text and every document, in document order.
func (x *Index) Similarities(text string) []float64 {
	scores := make([]float64, x.docs)

	query := x.Vector(text)
	for i, id := range query.Terms {
		q := query.Weights[i]
		for _, p := range x.postings[id] {
			scores[p.doc] += q * p.weight
		}
	}

	for i, s := range scores {
		if s > 1 {
			scores[i] = 1
		}
	}
	return scores
}

func (x *Index) weigh(tc map[string]int) Vector {
	var vec Vector
	for term := range tc {
		if id, ok := x.vocabulary[term]; ok {
			vec.Terms = append(vec.Terms, id)
		}
	}
	sort.Ints(vec.Terms)

	vec.Weights = make([]float64, len(vec.Terms))
	var sum float64
	for i, id := range vec.Terms {
		w := float64(tc[x.terms[id]]) * x.idf[id]
		vec.Weights[i] = w
		sum += w * w
	}

	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec.Weights {
		vec.Weights[i] /= norm
	}
	return vec
}

func termCounts(grams []string) map[string]int {
	tc := make(map[string]int, len(grams))
	for _, g := range grams {
		tc[g]++
	}
	return tc
}
