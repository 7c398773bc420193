package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type BrandTier struct {
	Tier   int      `yaml:"tier"` // 1 = luxury, higher = lower tier
	Brands []string `yaml:"brands"`
}

type Merchant struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Headless bool   `yaml:"headless"` // catalog needs browser rendering
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Import struct {
		DelaySeconds         int `yaml:"delay_seconds"`           // between requests to one merchant
		MaxProducts          int `yaml:"max_products"`            // default per-source cap
		MinDiscountPercent   int `yaml:"min_discount_percent"`    // deal floor
		RetentionDays        int `yaml:"retention_days"`          // expiry sweep threshold
		MaxParallelMerchants int `yaml:"max_parallel_merchants"`  // RunAll bound
		SourceTimeoutSeconds int `yaml:"source_timeout_seconds"`  // per-source wall clock
		IntervalMinutes      int `yaml:"interval_minutes"`        // scheduled import lane
		SweepIntervalHours   int `yaml:"sweep_interval_hours"`    // scheduled sweep lane
	} `yaml:"import"`

	Scoring struct {
		DiscountWeight       int         `yaml:"discount_weight"` // percent, 150 = 1.5 pts per discount pt
		DiscountCap          int         `yaml:"discount_cap"`
		HotScoreThreshold    int         `yaml:"hot_score_threshold"`
		HotDiscountThreshold int         `yaml:"hot_discount_threshold"`
		MinObservations      int         `yaml:"min_observations"`
		MinCoverageDays      int         `yaml:"min_coverage_days"`
		BrandTiers           []BrandTier `yaml:"brand_tiers"`
	} `yaml:"scoring"`

	Merchants []Merchant `yaml:"merchants"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) RequestDelay() time.Duration {
	if c.Import.DelaySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Import.DelaySeconds) * time.Second
}

func (c Config) SourceTimeout() time.Duration {
	if c.Import.SourceTimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Import.SourceTimeoutSeconds) * time.Second
}

func (c Config) MerchantEnabled(name string) bool {
	for _, m := range c.Merchants {
		if m.Name == name {
			return m.Enabled
		}
	}
	return false
}
