// Package config provides configuration management for content-sync.
//
// It loads an optional .env file with godotenv and maps environment variables
// onto nested keys with Viper (SYNC_DRY_RUN -> sync.dry_run). Defaults come
// from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Sheets: spreadsheet id, tabs and service account credentials
//   - Micropub: endpoint, token and page size
//   - XMLRPC: navigation page ids and XML-RPC credentials
//   - Sync: pacing, retry policy, formatting and stale id policy
//   - Server: status API port and API key
//   - Database: run journal (sqlite or MySQL)
//   - Storage: S3/MinIO report archive
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.WriteInterval)
package config
