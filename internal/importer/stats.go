package importer

import "time"

// SourceDetail is the per-source breakdown for UIs that display run detail.
type SourceDetail struct {
	Merchant string        `json:"merchant"`
	URL      string        `json:"url"`
	Success  bool          `json:"success"`
	Scraped  int           `json:"scraped"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []string      `json:"errors"`
	Duration time.Duration `json:"duration"`
}

// RunStats are the counters accumulated during one run. Ephemeral: returned
// to the caller, never persisted.
type RunStats struct {
	Merchant     string         `json:"merchant"`
	Scraped      int            `json:"scraped"`
	WithVolume   int            `json:"withVolume"`
	Created      int            `json:"created"`
	Updated      int            `json:"updated"`
	PriceChanges int            `json:"priceChanges"`
	Skipped      int            `json:"skipped"`
	Errors       []string       `json:"errors"`
	Duration     time.Duration  `json:"duration"`
	Sources      []SourceDetail `json:"sources"`
}

func (s *RunStats) merge(d SourceDetail) {
	s.Scraped += d.Scraped
	s.Skipped += d.Skipped
	s.Errors = append(s.Errors, d.Errors...)
	s.Sources = append(s.Sources, d)
}
