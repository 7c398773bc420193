package rank

import (
	"strings"

	"dealradar-engine/internal/config"
)

// DealScorer is the config-driven scorer used by imports. Weights and
// thresholds come from the scoring section of the YAML config; brand tiers
// from its brand table (tier 1 = luxury).
type DealScorer struct {
	Cfg config.Config
}

func (s DealScorer) Score(in Input) Output {
	sc := s.Cfg.Scoring

	score := 0

	// discount depth carries most of the weight
	d := in.DiscountPercent
	if d > 0 {
		w := sc.DiscountWeight
		if w <= 0 {
			w = 150 // percent of discount, i.e. 1.5 points per discount point
		}
		score += d * w / 100
		if cap := sc.DiscountCap; cap > 0 && score > cap {
			score = cap
		} else if cap <= 0 && score > 60 {
			score = 60
		}
	}

	// brand tier bonus
	tier := s.brandTier(in.Brand)
	switch tier {
	case 1:
		score += 20
	case 2:
		score += 12
	case 3:
		score += 6
	}

	trusted := in.History.Count >= s.minObservations() &&
		in.History.CoverageDays >= s.minCoverageDays()

	// history-backed signals: trust bumps the score, but thin history never
	// zeroes it out
	if trusted {
		score += 10
	}

	atLowest := in.History.Lowest > 0 && in.DealPrice <= in.History.Lowest
	if trusted && atLowest {
		score += 15
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	hotScore := sc.HotScoreThreshold
	if hotScore <= 0 {
		hotScore = 70
	}
	hotDiscount := sc.HotDiscountThreshold
	if hotDiscount <= 0 {
		hotDiscount = 30
	}

	return Output{
		Score:          score,
		VerifiedLowest: trusted && atLowest,
		Hot:            score >= hotScore || (d > 0 && d >= hotDiscount),
	}
}

func (s DealScorer) brandTier(brand string) int {
	b := strings.ToLower(strings.TrimSpace(brand))
	if b == "" {
		return 0
	}
	for _, bt := range s.Cfg.Scoring.BrandTiers {
		for _, name := range bt.Brands {
			if strings.ToLower(strings.TrimSpace(name)) == b {
				return bt.Tier
			}
		}
	}
	return 0
}

func (s DealScorer) minObservations() int {
	if v := s.Cfg.Scoring.MinObservations; v > 0 {
		return v
	}
	return 7
}

func (s DealScorer) minCoverageDays() int {
	if v := s.Cfg.Scoring.MinCoverageDays; v > 0 {
		return v
	}
	return 14
}
