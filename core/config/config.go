package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"content-sync/core/database"
	"content-sync/core/logger"
	"content-sync/core/micropub"
	"content-sync/core/reconcile"
	"content-sync/core/server"
	"content-sync/core/sheets"
	"content-sync/core/storage"
	"content-sync/feature/pages"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration, one section per concern.
type Config struct {
	// Sheets holds configuration for the content ledger spreadsheet.
	Sheets sheets.Config `mapstructure:"sheets"`
	// Micropub holds configuration for the publishing endpoint.
	Micropub micropub.Config `mapstructure:"micropub"`
	// XMLRPC holds configuration for navigation page management.
	XMLRPC pages.Config `mapstructure:"xmlrpc"`
	// Sync holds configuration for reconciliation runs.
	Sync reconcile.Config `mapstructure:"sync"`
	// Server holds configuration for the status HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the report archive (S3, MinIO).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run journal.
	Database database.Config `mapstructure:"database"`
}

// LoadConfig reads dir/.env when present, then the environment, into a Config.
// Keys map to variables by upper-casing and replacing dots, so sync.write_interval
// is read from SYNC_WRITE_INTERVAL. Values in .env override the process environment.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	registerDefaults(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// registerDefaults walks the struct tree and registers every mapstructure key with
// its `default` tag. Every key is registered, even with an empty default, because
// AutomaticEnv only resolves keys viper already knows.
func registerDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := range t.NumField() {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		if field.Type.Kind() == reflect.Struct {
			registerDefaults(v, field.Type, name)
			continue
		}
		v.SetDefault(name, field.Tag.Get("default"))
	}
}
