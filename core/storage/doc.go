// Package storage archives run reports in S3-compatible object storage.
//
// It wraps the MinIO Go client behind a small Client interface so the archive
// can be tested with the mock in core/storage/mocks. It supports both AWS S3
// and self-hosted MinIO instances.
//
// # Archive
//
// Archive stores one JSON document per sync run under
// <prefix>/<yyyy>/<mm>/<run id>.json and reads it back for the status API.
// The bucket is created on the first upload when it does not exist.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	archive := storage.NewArchive(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
//	err = archive.PutJSON(ctx, archive.Key(report.RunID, report.StartedAt), report)
package storage
