package rank

import "dealradar-engine/internal/domain"

// Input is everything a scoring pass may look at. No hidden state: scoring
// the same input twice must yield the same output.
type Input struct {
	DealPrice       float64
	OriginalPrice   float64
	DiscountPercent int
	Brand           string
	History         domain.PriceStats
}

// Output separates deal quality from history confidence. VerifiedLowest is a
// claim ("lowest price we have ever seen") and needs enough history to make;
// Score is a quality estimate and degrades gracefully without history.
type Output struct {
	Score          int // 0..100
	VerifiedLowest bool
	Hot            bool
}

type Scorer interface {
	Score(in Input) Output
}
