package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ranked-ladder/internal/config"
	"ranked-ladder/internal/constants"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Connection pragmas go through the DSN so every pooled connection gets them.
// Immediate transactions take the write lock up front; concurrent
// compare-and-set calls queue on busy_timeout instead of failing with SQLITE_BUSY.
var connParams = [][2]string{
	{"_journal_mode", "WAL"},
	{"_synchronous", "NORMAL"},
	{"_foreign_keys", "on"},
	{"_cache_size", "-64000"},
	{"_txlock", "immediate"},
	{"_busy_timeout", strconv.Itoa(constants.DBBusyTimeoutMillis)},
}

func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	return Open(cfg.DBPath, logger)
}

func dsn(path string) string {
	params := make([]string, 0, len(connParams))
	for _, p := range connParams {
		params = append(params, p[0]+"="+url.QueryEscape(p[1]))
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

// Open connects to the SQLite file at path and brings the schema up to date.
func Open(path string, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("path", path).Msg("connecting to database")

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := checkJournalMode(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db, logger); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Msg("database connection established")
	return db, nil
}

func checkJournalMode(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		logger.Error().Err(err).Msg("failed to read journal mode")
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		// in-memory and some network filesystems cannot do WAL
		logger.Warn().Str("journal_mode", mode).Msg("database is not in WAL mode")
		return nil
	}
	logger.Debug().Str("journal_mode", mode).Msg("SQLite journal mode")
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info().Int64("schema_version", version).Msg("migrations completed successfully")
	return nil
}
