package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// dialect holds the statements that differ between databases.
type dialect struct {
	// driverName is the database/sql driver.
	driverName string
	// createTable creates the journal table.
	createTable string
}

var dialects = map[string]dialect{
	config.JournalSQLite: {
		driverName: "sqlite",
		createTable: `
		CREATE TABLE IF NOT EXISTS sos_alerts (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			reported_at BIGINT NOT NULL,
			received_at BIGINT NOT NULL,
			hostname TEXT,
			username TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION
		);
		`,
	},
	config.JournalPostgres: {
		driverName: "pgx",
		createTable: `
		CREATE TABLE IF NOT EXISTS sos_alerts (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			reported_at BIGINT NOT NULL,
			received_at BIGINT NOT NULL,
			hostname TEXT,
			username TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION
		);
		`,
	},
}

const (
	insertAlertQuery = `
	INSERT INTO sos_alerts (id, reported_at, received_at, hostname, username, latitude, longitude)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING;
	`

	selectAlertColumns = `SELECT id, reported_at, received_at, hostname, username, latitude, longitude FROM sos_alerts`

	getAlertQuery = selectAlertColumns + ` WHERE id = $1;`

	listAlertsQuery = selectAlertColumns + ` ORDER BY seq DESC LIMIT $1;`

	listAllAlertsQuery = selectAlertColumns + ` ORDER BY seq DESC;`
)

// SQLRepository journals alerts in SQLite or PostgreSQL.
type SQLRepository struct {
	// DB is the open connection pool.
	DB *sql.DB
}

// OpenSQL opens the database, verifies the connection and creates the schema.
// driver is config.JournalSQLite or config.JournalPostgres.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("journal driver %q: %w", driver, errUnknownDriver)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", driver, err)
	}

	if driver == config.JournalSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("verify %s journal connection: %w", driver, err)
	}

	if _, err = db.ExecContext(ctx, d.createTable); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	return NewSQLRepository(db), nil
}

// NewSQLRepository wraps an open database whose schema already exists.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{DB: db}
}

// Append inserts alert unless its ID is already journaled.
func (s *SQLRepository) Append(ctx context.Context, alert *domain.Alert) (bool, error) {
	if alert == nil {
		return false, errAlertRequired
	}

	var (
		hostname, username  sql.NullString
		latitude, longitude sql.NullFloat64
	)

	if alert.Reporter != nil {
		hostname = sql.NullString{String: alert.Reporter.Hostname, Valid: true}
		username = sql.NullString{String: alert.Reporter.Username, Valid: true}
	}

	if alert.Location != nil {
		latitude = sql.NullFloat64{Float64: alert.Location.Latitude, Valid: true}
		longitude = sql.NullFloat64{Float64: alert.Location.Longitude, Valid: true}
	}

	result, err := s.DB.ExecContext(ctx, insertAlertQuery,
		alert.ID,
		toUnixNano(alert.ReportedAt),
		toUnixNano(alert.ReceivedAt),
		hostname,
		username,
		latitude,
		longitude,
	)
	if err != nil {
		return false, fmt.Errorf("insert alert id=%q: %w", alert.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert alert id=%q: rows affected: %w", alert.ID, err)
	}

	return affected > 0, nil
}

// Get returns the journaled alert with the given ID.
func (s *SQLRepository) Get(ctx context.Context, id string) (*domain.Alert, error) {
	alert, err := scanAlert(s.DB.QueryRowContext(ctx, getAlertQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get alert id=%q: %w", id, err)
	}

	return alert, nil
}

// List returns up to limit alerts, newest first. A non-positive limit returns all.
func (s *SQLRepository) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = s.DB.QueryContext(ctx, listAlertsQuery, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, listAllAlertsQuery)
	}

	if err != nil {
		return nil, fmt.Errorf("list alerts: query sos_alerts table: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("list alerts: scan rows: %w", err)
		}

		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list alerts: row iteration: %w", err)
	}

	return alerts, nil
}

// Close closes the connection pool.
func (s *SQLRepository) Close() error {
	return s.DB.Close()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var (
		alert                  domain.Alert
		reportedAt, receivedAt int64
		hostname, username     sql.NullString
		latitude, longitude    sql.NullFloat64
	)

	if err := row.Scan(&alert.ID, &reportedAt, &receivedAt, &hostname, &username, &latitude, &longitude); err != nil {
		return nil, err
	}

	alert.ReportedAt = fromUnixNano(reportedAt)
	alert.ReceivedAt = fromUnixNano(receivedAt)

	if hostname.Valid || username.Valid {
		alert.Reporter = &domain.Reporter{
			Hostname: hostname.String,
			Username: username.String,
		}
	}

	if latitude.Valid && longitude.Valid {
		alert.Location = &domain.Coordinate{
			Latitude:  latitude.Float64,
			Longitude: longitude.Float64,
		}
	}

	return &alert, nil
}

// toUnixNano stores the zero time as 0.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns).UTC()
}
