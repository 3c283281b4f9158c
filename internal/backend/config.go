package backend

import (
	"fmt"

	"orcamento/internal/config"
	gsheet "orcamento/internal/sheets/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath   string
	MemorySeedFile string

	Google            gsheet.Options
	GoogleCredentials gsheet.Credentials
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:           backendType,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		MemorySeedFile: appConfig.MemorySeedFile,
		Google: gsheet.Options{
			SpreadsheetID: appConfig.GoogleSpreadsheetID,
			LedgerSheet:   appConfig.GoogleLedgerSheet,
			RegistrySheet: appConfig.GoogleRegistrySheet,
		},
		GoogleCredentials: gsheet.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}
