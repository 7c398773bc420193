package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"dealradar-engine/internal/config"
	"dealradar-engine/internal/events"
	"dealradar-engine/internal/httpapi"
	"dealradar-engine/internal/importer"
	"dealradar-engine/internal/rank"
	"dealradar-engine/internal/scheduler"
	"dealradar-engine/internal/scrape"
	"dealradar-engine/internal/scrape/util"
	"dealradar-engine/internal/store"
)

func main() {
	dataDir := os.Getenv("DEALRADAR_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		normalized, v := config.NormalizeAndValidate(cfg)
		for _, w := range v.Warnings {
			log.Printf("[config] warning: %s", w)
		}
		if !v.OK() {
			return cfg, fmt.Errorf("config invalid: %v", v.Errors)
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "dealradar.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	limiter := util.NewMerchantLimiter()
	registry := scrape.NewRegistry(limiter)
	engine := importer.New(db, registry, rank.DealScorer{Cfg: cfg})

	var runStatus atomic.Value
	runStatus.Store(httpapi.RunStatus{})

	mux := httpapi.NewMux(httpapi.Deps{
		Store:       db,
		Hub:         hub,
		Engine:      engine,
		Merchants:   registry.Merchants(),
		CfgVal:      &cfgVal,
		RunStatus:   &runStatus,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// scheduled lanes: periodic import + daily-ish expiry sweep
	if cfg.Import.IntervalMinutes > 0 {
		interval := time.Duration(cfg.Import.IntervalMinutes) * time.Minute
		go scheduler.Every(ctx, interval, "import", func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			engine.RunAll(ctx, cur, importer.Options{
				OnNewDeal: func() {
					hub.Publish(events.MakeEvent("", events.TypeDealCreated, 1, nil))
				},
			})
			return nil
		})
	}

	sweepHours := cfg.Import.SweepIntervalHours
	if sweepHours <= 0 {
		sweepHours = 24
	}
	go scheduler.Every(ctx, time.Duration(sweepHours)*time.Hour, "sweep", func(ctx context.Context) error {
		cur := cfgVal.Load().(config.Config)
		deleted, err := engine.SweepExpired(ctx, cur.Import.RetentionDays)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.Printf("[sweep] deleted=%d", deleted)
		}
		return nil
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Fatal(srv.Serve(ln))
}
