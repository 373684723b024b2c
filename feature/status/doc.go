// Package status exposes the run journal and archived reports over HTTP.
//
// Routes:
//   - GET /health: journal schema check
//   - GET /runs?limit=N: recent runs, newest first
//   - GET /runs/:id: one run with its failed items
//   - GET /runs/:id/report: the archived JSON report
package status
