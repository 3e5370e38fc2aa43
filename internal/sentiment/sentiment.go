// Package sentiment scores financial text on a [-1, 1] scale. The default
// annotator is a keyword lexicon, so scoring is deterministic and needs no
// network; a chat-model annotator can be swapped in where configured.
package sentiment

import (
	"context"
	"regexp"
	"strings"
)

var positiveWords = []string{
	"growth", "profit", "gain", "rise", "surge", "bullish", "positive",
	"beat", "upgrade", "rally", "record", "strong",
}

var negativeWords = []string{
	"loss", "decline", "drop", "fall", "bearish", "negative", "risk",
	"miss", "downgrade", "selloff", "weak", "plunge",
}

var wordPattern = regexp.MustCompile(`\p{L}+`)

// Lexicon is a keyword-counting sentiment annotator.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexicon creates the default financial-term lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{positive: wordSet(positiveWords), negative: wordSet(negativeWords)}
}

// Annotate scores each text in order. Text with no lexicon hits scores 0.
func (l *Lexicon) Annotate(ctx context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = l.Score(text)
	}
	return scores, nil
}

// Score computes (positive hits - negative hits) / total hits over whole-word
// matches, yielding a value in [-1, 1].
func (l *Lexicon) Score(text string) float64 {
	var pos, neg int
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := l.positive[w]; ok {
			pos++
		} else if _, ok := l.negative[w]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// Label maps a score to the word used in prose: positive, negative or
// neutral.
func Label(score float64) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}

func wordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
