package sheets

import (
	"fmt"
	"os"
	"strings"

	"content-sync/core/retry"
)

// Config holds the spreadsheet location and credentials.
type Config struct {
	// SpreadsheetID is the id from the spreadsheet URL.
	SpreadsheetID string `mapstructure:"spreadsheet_id" default:""`
	// Tabs lists the tabs holding ledger rows.
	Tabs []string `mapstructure:"tabs" default:"Sheet1"`
	// CredentialsJSON is the service account key, inline.
	CredentialsJSON string `mapstructure:"credentials_json" default:""`
	// CredentialsFile is a path to the service account key, used when CredentialsJSON is empty.
	CredentialsFile string `mapstructure:"credentials_file" default:""`
	// TimeoutSeconds bounds every API call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Credentials returns the service account key from CredentialsJSON or CredentialsFile.
func (c Config) Credentials() ([]byte, error) {
	if strings.TrimSpace(c.CredentialsJSON) != "" {
		return []byte(c.CredentialsJSON), nil
	}
	if c.CredentialsFile == "" {
		return nil, fmt.Errorf("sheets credentials not set: %w", retry.ErrMissingCredentials)
	}
	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading sheets credentials: %w: %w", retry.ErrMissingCredentials, err)
	}
	return data, nil
}
