package backend

import (
	"context"
	"fmt"

	"orcamento/internal/log"
	gsheet "orcamento/internal/sheets/google"
	"orcamento/internal/sheets/memory"
	"orcamento/internal/storage"
)

// Open creates the store selected by config.Type.
func Open(ctx context.Context, config Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentBackend)

	switch config.Type {
	case SQLiteBackend:
		return openSQLite(ctx, config, logger)
	case SheetsBackend:
		return openSheets(ctx, config, logger)
	case MemoryBackend:
		return openMemory(ctx, config, logger)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func openSQLite(ctx context.Context, config Config, logger *log.Logger) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	logger.InfoContext(ctx, "Initialized SQLite backend",
		log.FieldBackend, SQLiteBackend,
		"db_path", config.SQLiteDBPath)

	return &Result{
		Store:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func openSheets(ctx context.Context, config Config, logger *log.Logger) (*Result, error) {
	cli, err := gsheet.Open(ctx, config.Google, config.GoogleCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	logger.InfoContext(ctx, "Initialized Google Sheets backend",
		log.FieldBackend, SheetsBackend,
		"spreadsheet_id", config.Google.SpreadsheetID)

	return &Result{
		Store: cli,
		Ping:  cli.Ping,
	}, nil
}

func openMemory(ctx context.Context, config Config, logger *log.Logger) (*Result, error) {
	store, err := memory.NewFromFile(config.MemorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	logger.InfoContext(ctx, "Initialized memory backend",
		log.FieldBackend, MemoryBackend,
		"seed_file", config.MemorySeedFile)

	return &Result{Store: store}, nil
}
