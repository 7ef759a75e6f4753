package routine

import (
	"strconv"

	"github.com/jengzang/personal-context-builder/internal/models"
)

// BagOfWords encodes a day as concatenated one-hot blocks, one per slot.
type BagOfWords struct {
	classifier *Classifier
}

// NewBagOfWords builds the vectorizer.
func NewBagOfWords(c *Classifier) *BagOfWords {
	return &BagOfWords{classifier: c}
}

// Width is the size of one slot block.
func (v *BagOfWords) Width() int {
	return v.classifier.Table().Width()
}

// Vectorize returns len(day) * Width() values with exactly one 1 per block.
func (v *BagOfWords) Vectorize(day models.Day) []float64 {
	width := v.Width()
	vector := make([]float64, len(day)*width)
	for i, loc := range day {
		code, _ := v.classifier.Classify(loc)
		vector[i*width+code] = 1
	}
	return vector
}

// VectorizeDays vectorizes every day.
func (v *BagOfWords) VectorizeDays(days []models.Day) [][]float64 {
	vectors := make([][]float64, len(days))
	for i, day := range days {
		vectors[i] = v.Vectorize(day)
	}
	return vectors
}

// Corpus encodes a day as one token per slot, the decimal code of the slot.
type Corpus struct {
	classifier *Classifier
}

// NewCorpus builds the tokenizer.
func NewCorpus(c *Classifier) *Corpus {
	return &Corpus{classifier: c}
}

// Vectorize returns the tokens of one day.
func (v *Corpus) Vectorize(day models.Day) []string {
	tokens := make([]string, len(day))
	for i, loc := range day {
		code, _ := v.classifier.Classify(loc)
		tokens[i] = strconv.Itoa(code)
	}
	return tokens
}

// VectorizeDays tokenizes every day into a corpus of documents.
func (v *Corpus) VectorizeDays(days []models.Day) [][]string {
	docs := make([][]string, len(days))
	for i, day := range days {
		docs[i] = v.Vectorize(day)
	}
	return docs
}
