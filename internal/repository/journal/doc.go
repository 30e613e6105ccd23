// Package journal records the alerts received by sos-server.
//
// A Repository appends alerts idempotently (an alert ID is journaled once)
// and lists them newest first. FileRepository keeps a JSON document on disk;
// SQLRepository stores alerts in SQLite or PostgreSQL.
package journal
