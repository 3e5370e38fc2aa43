package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	l := NewLexicon()

	cases := []struct {
		name string
		text string
		want float64
	}{
		{"purely positive", "Record profit growth, shares surge", 1},
		{"purely negative", "Loss widens as shares drop on bearish outlook", -1},
		{"mixed", "Profit growth offset by currency loss", 1.0 / 3},
		{"no lexicon hits", "The company filed its quarterly report.", 0},
		{"empty", "", 0},
		{"case insensitive", "BULLISH RALLY", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, l.Score(tc.text), 1e-9)
		})
	}
}

func TestScoreCountsWholeWordsOnly(t *testing.T) {
	l := NewLexicon()
	// "risky" and "gains" are not lexicon words; only exact tokens count.
	assert.Equal(t, 0.0, l.Score("risky gains"))
	assert.Equal(t, -1.0, l.Score("risk"))
}

func TestScoreCountsRepeatedHits(t *testing.T) {
	l := NewLexicon()
	// Two positive occurrences against one negative.
	assert.InDelta(t, 1.0/3, l.Score("gain gain loss"), 1e-9)
}

func TestAnnotatePreservesOrder(t *testing.T) {
	l := NewLexicon()
	scores, err := l.Annotate(context.Background(), []string{"profit surge", "steep decline", "flat session"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, -1.0, scores[1])
	assert.Equal(t, 0.0, scores[2])
}

func TestAnnotateHonorsContext(t *testing.T) {
	l := NewLexicon()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Annotate(ctx, []string{"anything"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "positive", Label(0.4))
	assert.Equal(t, "negative", Label(-0.01))
	assert.Equal(t, "neutral", Label(0))
}
