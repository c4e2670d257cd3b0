package sentiment

import "github.com/jonreiter/govader"

type Category string

const (
	Positive Category = "positive"
	Negative Category = "negative"
	Neutral  Category = "neutral"
)

// Analyzer scores text polarity using VADER. It holds no mutable state and
// is safe for concurrent use.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze returns the compound score in [-1, 1] and its category. Scores
// within ±0.05 of zero are neutral.
func (a *Analyzer) Analyze(text string) (float64, Category) {
	compound := a.vader.PolarityScores(text).Compound
	switch {
	case compound >= 0.05:
		return compound, Positive
	case compound <= -0.05:
		return compound, Negative
	default:
		return compound, Neutral
	}
}
