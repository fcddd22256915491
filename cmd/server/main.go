package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"ranked-ladder/internal/config"
	"ranked-ladder/internal/constants"
	fxmodules "ranked-ladder/internal/fx"
	"ranked-ladder/internal/middleware"
	"ranked-ladder/internal/server"
	"ranked-ladder/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	ladderServer *server.LadderServer,
	progressionSvc *service.ProgressionService,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(middleware.Recover(c.Handler(ladderServer.Routes())))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			progressionSvc.WaitForRewards()

			if db != nil {
				if err := db.Close(); err != nil {
					logger.Warn().Err(err).Msg("error closing database connection")
				}
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
