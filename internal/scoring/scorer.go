package scoring

import (
	"strings"

	"github.com/loqalabs/loqa-interview/internal/questionbank"
)

// Result is a scored transcript with the keyword breakdown.
type Result struct {
	Score   float64
	Matched []string
	Missing []string
}

// Score returns the 0..100 keyword match percentage of transcript against q.
// A keyword matches when any whitespace-separated token contains it as a substring,
// so "experiencing" matches "experience" but "experiential" does not.
func Score(q questionbank.Question, transcript string) float64 {
	return Evaluate(q, transcript).Score
}

// Evaluate scores transcript and reports which keywords matched.
func Evaluate(q questionbank.Question, transcript string) Result {
	var res Result
	if len(q.Keywords) == 0 {
		return res
	}
	tokens := strings.Fields(strings.ToLower(transcript))
	for _, kw := range q.Keywords {
		if matchesAny(tokens, strings.ToLower(kw)) {
			res.Matched = append(res.Matched, kw)
		} else {
			res.Missing = append(res.Missing, kw)
		}
	}
	res.Score = float64(len(res.Matched)) / float64(len(q.Keywords)) * 100
	return res
}

func matchesAny(tokens []string, keyword string) bool {
	for _, tok := range tokens {
		if strings.Contains(tok, keyword) {
			return true
		}
	}
	return false
}

// Mean is the arithmetic mean of scores, 0 when there are none.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
