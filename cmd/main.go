package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/jobscout/jobscout/internal/adapters"
	"github.com/jobscout/jobscout/internal/api"
	"github.com/jobscout/jobscout/internal/clients/gemini"
	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/logger"
	"github.com/jobscout/jobscout/internal/repositories"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/jobscout/jobscout/internal/services"
	log "github.com/sirupsen/logrus"
)

func buildRegistry(cfg *config.Config) *adapters.Registry {
	greenhouse := adapters.NewGreenhouse()
	lever := adapters.NewLever()

	if cfg.Scraper.BoardMaxRequestsPerSecond > 0 {
		greenhouse.SetRateLimit(float64(cfg.Scraper.BoardMaxRequestsPerSecond))
		lever.SetRateLimit(float64(cfg.Scraper.BoardMaxRequestsPerSecond))
	}

	return adapters.NewRegistry(greenhouse, lever)
}

func buildMatchQueue(ctx context.Context, cfg *config.Config, bus EventBus.Bus,
	jobs *repositories.Jobs, companies *repositories.Companies,
	sessions *repositories.Sessions, settings *repositories.SettingsStore) (*services.MatchQueue, error) {

	aiClient, err := gemini.NewClient(ctx, cfg.AI.Key, gemini.Model(cfg.AI.Model))
	if err != nil {
		return nil, err
	}
	if cfg.AI.MaxRequestsPerMinute > 0 {
		aiClient.SetMinuteRateLimit(cfg.AI.MaxRequestsPerMinute)
	}
	if cfg.AI.MaxRequestsPerDay > 0 {
		aiClient.SetDayRateLimit(cfg.AI.MaxRequestsPerDay)
	}

	engineSettings := settings.Snapshot(ctx)
	breaker := resilience.NewBreaker(engineSettings.BreakerThreshold, engineSettings.BreakerResetTimeout)

	return services.NewMatchQueue(bus, jobs, companies, sessions,
		services.NewAIService(aiClient), breaker, settings)
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	companies := repositories.NewCompaniesRepository(dbContext.DB)
	jobs := repositories.NewJobsRepository(dbContext.DB)
	sessions := repositories.NewSessionsRepository(dbContext.DB)
	settings := repositories.NewSettingsStore(dbContext.DB)

	// sessions left active by a crash must not block new ones
	if err = sessions.FailUnfinished(ctx); err != nil {
		log.Fatalf("can't fail unfinished sessions: %v", err)
	}

	bus := EventBus.New()

	if err = bus.Subscribe(events.CompanyDeletedTopic, func(event events.CompanyDeleted) {
		if _, err := jobs.DeleteByCompany(context.Background(), event.CompanyID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to delete jobs of company %v: %v", event.CompanyID, err)
		}
	}); err != nil {
		log.Fatalf("can't subscribe to company deletion: %v", err)
	}

	orchestrator := services.NewScrapeOrchestrator(bus, companies, sessions,
		services.NewDiffer(jobs), buildRegistry(cfg), settings)

	matchQueue, err := buildMatchQueue(ctx, cfg, bus, jobs, companies, sessions, settings)
	if err != nil {
		log.Fatalf("can't create match queue: %v", err)
	}

	if cfg.Scraper.Schedule != "" {
		scheduler, err := services.NewScrapeScheduler(orchestrator, cfg.Scraper.Schedule)
		if err != nil {
			log.Fatalf("can't create scrape scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	cleaner, err := services.NewSessionsCleaner(sessions, settings)
	if err != nil {
		log.Fatalf("can't create sessions cleaner: %v", err)
	}
	defer cleaner.Stop()

	server := api.NewServer(cfg.Server.Port, api.Engine{
		Companies: companies,
		Jobs:      jobs,
		Sessions:  sessions,
		Settings:  settings,
		Scrapes:   orchestrator,
		Matches:   matchQueue,
		Bus:       bus,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("api server failed: %v", err)
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("api server shutdown: %v", err)
	}

	log.Info("Services stopped.")
}
