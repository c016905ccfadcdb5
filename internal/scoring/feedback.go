package scoring

// Tier buckets a final session score for the completion screen.
type Tier int

const (
	TierKeepPracticing Tier = iota
	TierGood
	TierExcellent
)

// Thresholds are inclusive lower bounds for the upper tiers.
type Thresholds struct {
	Excellent float64
	Good      float64
}

// DefaultThresholds matches the stock completion screen.
var DefaultThresholds = Thresholds{Excellent: 80, Good: 60}

// Classify maps a final score onto a tier.
func Classify(score float64, th Thresholds) Tier {
	switch {
	case score >= th.Excellent:
		return TierExcellent
	case score >= th.Good:
		return TierGood
	default:
		return TierKeepPracticing
	}
}

func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	default:
		return "keep-practicing"
	}
}

// Message is the candidate-facing feedback text for the tier.
func (t Tier) Message() string {
	switch t {
	case TierExcellent:
		return "Excellent performance! You demonstrated strong communication skills and relevant experience."
	case TierGood:
		return "Good effort! There's room for improvement in some areas."
	default:
		return "Keep practicing! Focus on incorporating more specific examples and industry terminology."
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
