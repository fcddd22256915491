package fx

import (
	"database/sql"

	"ranked-ladder/internal/config"
	"ranked-ladder/internal/database"
	"ranked-ladder/internal/logger"
	"ranked-ladder/internal/metrics"
	"ranked-ladder/internal/rating"
	"ranked-ladder/internal/repository"
	"ranked-ladder/internal/reward"
	"ranked-ladder/internal/server"
	"ranked-ladder/internal/service"
	"ranked-ladder/internal/tier"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideTierTable(cfg *config.Config, logger zerolog.Logger) (*tier.Table, error) {
	table, err := tier.LoadTable(cfg.TierTablePath)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("tiers", table.Len()).
		Str("lowest", table.Lowest().Name).
		Str("highest", table.Highest().Name).
		Msg("tier table loaded")
	return table, nil
}

func ProvideEngine(cfg *config.Config) (*rating.Engine, error) {
	params := rating.DefaultParams()
	params.K0 = cfg.KFactor
	return rating.NewEngine(params)
}

// ProvideDB opens SQLite only for the sqlite backend; the memory backend gets a nil handle.
func ProvideDB(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return nil, nil
	}
	return database.New(cfg, logger)
}

func ProvideStore(cfg *config.Config, sqlDB *sql.DB, logger zerolog.Logger) service.Store {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn().Msg("using in-memory store, ratings will not survive a restart")
		return repository.NewMemoryStore()
	}
	return repository.NewRatingRepository(sqlDB, logger)
}

func ProvideRewards(cfg *config.Config, logger zerolog.Logger) service.RewardService {
	if cfg.RewardWebhookURL == "" {
		return reward.NewLogAwarder(logger)
	}
	return reward.NewWebhookClient(cfg.RewardWebhookURL, logger)
}

func ProvideProgressionOptions(cfg *config.Config) service.ProgressionOptions {
	return service.ProgressionOptions{
		DemotionMargin: cfg.DemotionMargin,
		BandMargin:     cfg.BandMargin,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}
}

func ProvideProgressionService(
	store service.Store,
	engine *rating.Engine,
	table *tier.Table,
	rewards service.RewardService,
	m *metrics.Metrics,
	opts service.ProgressionOptions,
	logger zerolog.Logger,
) *service.ProgressionService {
	return service.NewProgressionService(store, engine, tier.NewMapper(table), rewards, m, opts, logger)
}

func ProvideProfileService(store service.Store, engine *rating.Engine, table *tier.Table, cfg *config.Config, logger zerolog.Logger) (*service.ProfileService, error) {
	return service.NewProfileService(store, engine, table, cfg.QualificationTier, logger)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(ProvideDB),
	fx.Provide(metrics.New),
	// ladder
	fx.Provide(ProvideTierTable),
	fx.Provide(ProvideEngine),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRewards),
	// svc
	fx.Provide(ProvideProgressionOptions),
	fx.Provide(ProvideProgressionService),
	fx.Provide(ProvideProfileService),
	// server
	fx.Provide(server.NewLadderServer),
)
