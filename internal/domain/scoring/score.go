package scoring

import "math"

// Tier is the coarse grade shown on the results screen.
type Tier string

const (
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierNeedsImprovement Tier = "needs improvement"
	TierPoor             Tier = "poor"
)

// Score is the outcome of one session.
type Score struct {
	Correct    int
	Total      int
	Percentage float64 // 0-100, rounded to two decimals
	Tier       Tier
}

// Compute builds the Score for correct answers out of total questions.
// An empty session scores 0%.
func Compute(correct, total int) Score {
	pct := Percentage(correct, total)
	return Score{
		Correct:    correct,
		Total:      total,
		Percentage: pct,
		Tier:       TierFor(pct),
	}
}

// Percentage returns part/total*100 rounded to two decimals, 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// TierFor maps a percentage to its tier. Lower bounds are inclusive.
func TierFor(pct float64) Tier {
	switch {
	case pct >= 90:
		return TierExcellent
	case pct >= 70:
		return TierGood
	case pct >= 50:
		return TierNeedsImprovement
	default:
		return TierPoor
	}
}

// Emoji returns the glyph displayed next to the tier.
func (t Tier) Emoji() string {
	switch t {
	case TierExcellent:
		return "🏆"
	case TierGood:
		return "👍"
	case TierNeedsImprovement:
		return "📚"
	default:
		return "💪"
	}
}

// AwardedPoints is the number of leaderboard points a session earns:
//
//	points = (count / total) * (count + total)
//
// Accuracy and volume both raise it, so 8/10 earns 14.4 while 4/5 earns 7.2.
func AwardedPoints(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * float64(count+total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
