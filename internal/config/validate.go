package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a cleaned copy of cfg plus everything wrong
// with it. Warnings don't block startup; errors do.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	// brand lists: trim, drop empties and dupes
	for i := range out.Scoring.BrandTiers {
		seen := map[string]bool{}
		var brands []string
		for _, b := range out.Scoring.BrandTiers[i].Brands {
			b = strings.TrimSpace(b)
			if b == "" {
				continue
			}
			key := strings.ToLower(b)
			if seen[key] {
				continue
			}
			seen[key] = true
			brands = append(brands, b)
		}
		out.Scoring.BrandTiers[i].Brands = brands
	}

	for i := range out.Merchants {
		out.Merchants[i].Name = strings.ToLower(strings.TrimSpace(out.Merchants[i].Name))
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Import.DelaySeconds < 0 {
		res.addErr("import.delay_seconds must be >= 0")
	} else if out.Import.DelaySeconds == 0 {
		res.addWarn("import.delay_seconds is 0; requests will only be spaced by the default throttle")
	} else if out.Import.DelaySeconds < 1 {
		res.addWarn("import.delay_seconds below 1s risks bot detection")
	}

	if out.Import.MinDiscountPercent < 0 || out.Import.MinDiscountPercent > 100 {
		res.addErr("import.min_discount_percent must be 0..100")
	}
	if out.Import.RetentionDays <= 0 {
		res.addWarn("import.retention_days unset; defaulting to 3")
	}
	if out.Import.MaxParallelMerchants < 0 {
		res.addErr("import.max_parallel_merchants must be >= 0")
	}

	for i, bt := range out.Scoring.BrandTiers {
		if bt.Tier <= 0 {
			res.addErr("scoring.brand_tiers[%d].tier must be >= 1", i)
		}
		if len(bt.Brands) == 0 {
			res.addErr("scoring.brand_tiers[%d].brands must have at least 1 entry", i)
		}
	}

	if out.Scoring.HotDiscountThreshold < 0 || out.Scoring.HotDiscountThreshold > 100 {
		res.addErr("scoring.hot_discount_threshold must be 0..100")
	}

	seen := map[string]bool{}
	for i, m := range out.Merchants {
		if m.Name == "" {
			res.addErr("merchants[%d].name is required", i)
			continue
		}
		if seen[m.Name] {
			res.addErr("merchants[%d]: duplicate merchant %q", i, m.Name)
		}
		seen[m.Name] = true
	}

	return out, res
}
