package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/clients/gemini"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/config"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/db"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/handlers"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/scrapers"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/server"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/services"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	configPath := utils.GetEnv("CONFIG_PATH", "config/platforms.yaml", log)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("Could not load platform config", "error", err)
		os.Exit(1)
	}

	scrapeTimeout := time.Duration(utils.GetEnvAsInt("SCRAPE_TIMEOUT_SECONDS", 30, log)) * time.Second
	taskBudget := time.Duration(utils.GetEnvAsInt("SEARCH_TASK_TIMEOUT_SECONDS", 120, log)) * time.Second
	scraperRPS := utils.GetEnvAsFloat("SCRAPER_RPS", 1.0, log)
	confidenceThreshold := utils.GetEnvAsFloat("IDENTIFY_CONFIDENCE_THRESHOLD", 0.5, log)
	maxResults := utils.GetEnvAsInt("SEARCH_MAX_RESULTS", 20, log)
	scraperServiceURL := utils.GetEnv("SCRAPER_SERVICE_URL", "http://localhost:8090", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	platformRepo := repos.NewPlatformRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)
	listingRepo := repos.NewProductListingRepo(thePG, log)
	priceHistoryRepo := repos.NewPriceHistoryRepo(thePG, log)
	searchTaskRepo := repos.NewSearchTaskRepo(thePG, log)
	searchHistoryRepo := repos.NewSearchHistoryRepo(thePG, log)

	// Seed platform reference data from config
	seed := make([]*types.Platform, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		seed = append(seed, &types.Platform{
			Name:     p.Name,
			BaseURL:  p.BaseURL,
			IsActive: p.IsActive,
		})
	}
	if err := platformRepo.UpsertByName(context.Background(), nil, seed); err != nil {
		log.Error("Could not seed platforms", "error", err)
		os.Exit(1)
	}

	// Scraper registry
	log.Info("Setting up scraper registry...")
	registry := scrapers.NewRegistry(log, scrapeTimeout, scraperRPS)
	for _, p := range cfg.Platforms {
		if !p.IsActive {
			continue
		}
		registry.Register(p.Name, scrapers.NewRemoteScraper(p.Name, scraperServiceURL, scrapeTimeout))
	}

	// Re-load from the DB: on conflict the upsert keeps the stored row's id,
	// and the orchestrator must carry the stored identity, not the seed's.
	stored, err := platformRepo.ListActive(context.Background(), nil)
	if err != nil {
		log.Error("Could not load platforms", "error", err)
		os.Exit(1)
	}
	activePlatforms := make([]*types.Platform, 0, len(stored))
	for _, p := range stored {
		if registry.Has(p.Name) {
			activePlatforms = append(activePlatforms, p)
		}
	}

	// Services
	log.Info("Setting up services...")
	var identifier services.Identifier
	if geminiClient, err := gemini.NewClient(log); err != nil {
		log.Warn("Gemini client unavailable, image search disabled", "error", err)
	} else {
		identifier = geminiClient
	}

	searchCache, err := services.NewRedisSearchCache(log)
	if err != nil {
		log.Warn("Redis unavailable, search cache disabled", "error", err)
		searchCache = services.NewNoopSearchCache()
	}

	aggregationService := services.NewAggregationService(thePG, log, productRepo, listingRepo, priceHistoryRepo)
	searchService := services.NewSearchService(
		thePG,
		log,
		services.SearchConfig{
			TaskBudget:          taskBudget,
			ConfidenceThreshold: confidenceThreshold,
			DefaultMaxResults:   maxResults,
		},
		searchTaskRepo,
		productRepo,
		searchHistoryRepo,
		activePlatforms,
		registry,
		aggregationService,
		identifier,
		searchCache,
	)
	comparisonService := services.NewComparisonService(thePG, log, productRepo, listingRepo)
	productService := services.NewProductService(thePG, log, productRepo, listingRepo, priceHistoryRepo)

	// Handlers
	log.Info("Setting up handlers...")
	searchHandler := handlers.NewSearchHandler(searchService)
	compareHandler := handlers.NewCompareHandler(comparisonService)
	productHandler := handlers.NewProductHandler(productService)
	platformHandler := handlers.NewPlatformHandler(platformRepo)
	historyHandler := handlers.NewHistoryHandler(searchHistoryRepo)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		SearchHandler:   searchHandler,
		CompareHandler:  compareHandler,
		ProductHandler:  productHandler,
		PlatformHandler: platformHandler,
		HistoryHandler:  historyHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
