// Package journal records every sync run in the database.
//
// A Run row holds the counters of one report plus the object key of the
// archived report, and one RunError row per failed item. The journal backs
// the "runs" command and the status API.
package journal
