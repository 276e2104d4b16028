package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bitcompare/bitcompare/internal/domain"
	"github.com/bitcompare/bitcompare/internal/infrastructure/cache"
	"github.com/bitcompare/bitcompare/internal/infrastructure/exchange"
	"github.com/bitcompare/bitcompare/internal/infrastructure/logger"
	"github.com/bitcompare/bitcompare/internal/infrastructure/mail"
	"github.com/bitcompare/bitcompare/internal/infrastructure/storage"
	"github.com/bitcompare/bitcompare/internal/usecase"
	"github.com/bitcompare/bitcompare/internal/web"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Refresh struct {
		IntervalMs  int `yaml:"interval_ms"`
		BroadcastMs int `yaml:"broadcast_ms"`
	} `yaml:"refresh"`
	Providers struct {
		CoinGeckoURL     string `yaml:"coingecko_url"`
		CryptoCompareURL string `yaml:"cryptocompare_url"`
	} `yaml:"providers"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level       string `yaml:"level"`
		RefreshFile string `yaml:"refresh_file"`
	} `yaml:"logging"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// Secrets come from the environment; .env is optional.
	_ = godotenv.Load(".env")

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "bitcompare.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	payloadCache := cache.New(os.Getenv("REDIS_URL"))

	var mailer domain.Mailer = mail.NoopMailer{}
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		mailer = mail.NewSendGridMailer(key)
	}

	coingecko := exchange.NewCoinGeckoAdapter(os.Getenv("COINGECKO_API_KEY"), cfg.Providers.CoinGeckoURL)
	cryptocompare := exchange.NewCryptoCompareAdapter(os.Getenv("CRYPTOCOMPARE_API_KEY"), cfg.Providers.CryptoCompareURL)

	refreshLog := log
	if cfg.Logging.RefreshFile != "" {
		if fl, err := logger.NewFileLogger(cfg.Logging.RefreshFile, cfg.Logging.Level); err == nil {
			refreshLog = fl
		} else {
			log.Error("Failed to init refresh logger, using default", zap.Error(err))
		}
	}

	refreshInterval := time.Duration(cfg.Refresh.IntervalMs) * time.Millisecond
	priceService := usecase.NewPriceService(coingecko, cryptocompare, refreshInterval, refreshLog)
	comparisonService := usecase.NewComparisonService(priceService, payloadCache, log)
	intelService := usecase.NewMarketIntelService(priceService)
	newsService := usecase.NewNewsService(store, os.Getenv("NEWS_API_KEY"), log)
	newsletterService := usecase.NewNewsletterService(store, mailer, log)
	alertService := usecase.NewAlertService(store, mailer, log)

	hub := web.NewHub(log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	priceService.Start(context.Background())

	// Push loop: price updates and arbitrage gaps to WS clients, alert
	// checks against the live price.
	broadcastInterval := time.Duration(cfg.Refresh.BroadcastMs) * time.Millisecond
	if broadcastInterval <= 0 {
		broadcastInterval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(broadcastInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx := context.Background()

				comparison, err := comparisonService.GetPriceComparison(ctx)
				if err != nil {
					log.Error("Failed to build comparison for broadcast", zap.Error(err))
					continue
				}
				hub.Broadcast("price_update", comparison)

				if opps := intelService.GetArbitrageOpportunities(ctx); len(opps) > 0 {
					hub.Broadcast("arbitrage_opportunity", opps[0])
				}

				alertService.CheckAlerts(ctx, priceService.LatestPrice(ctx))
			case <-done:
				return
			}
		}
	}()

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, comparisonService, newsService, newsletterService, alertService, intelService, hub, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-stop
	close(done)

	log.Info("Shutting down...")
	priceService.Stop()
	hub.Close()
	server.Shutdown(context.Background())
}
