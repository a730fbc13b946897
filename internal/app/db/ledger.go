package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"syncboard/internal/pkg/logx"
	"syncboard/internal/pkg/randx"
)

const (
	insertConnectionSQL = `INSERT INTO relay_connections (id, remote_ip) VALUES ($1, $2)`

	closeConnectionSQL = `UPDATE relay_connections
SET closed_at = now(), messages_relayed = $2, messages_dropped = $3
WHERE id = $1 AND closed_at IS NULL`
)

// execer is the subset of *pgxpool.Pool the ledger needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ledger writes connection records. Write failures are logged and swallowed so that
// relaying never depends on the database.
type Ledger struct {
	db     execer
	logger zerolog.Logger
}

// NewLedger returns a Ledger writing through db (normally a *pgxpool.Pool).
func NewLedger(db execer) *Ledger {
	return &Ledger{
		db:     db,
		logger: logx.Component("ledger"),
	}
}

// Opened inserts a row for a newly accepted connection. remoteIP is stored anonymized.
func (l *Ledger) Opened(ctx context.Context, connID, remoteIP string) {
	if !l.validID(connID) {
		return
	}

	_, err := l.db.Exec(ctx, insertConnectionSQL, connID, logx.AnonymizeIP(remoteIP))
	switch {
	case err == nil:
	case isUniqueViolation(err):
		l.logger.Warn().Str("conn_id", connID).Msg("Connection already recorded.")
	default:
		l.logger.Error().Err(err).Str("conn_id", connID).Msg("Failed to record opened connection.")
	}
}

// Closed stamps the close time and final counters for a connection.
func (l *Ledger) Closed(ctx context.Context, connID string, relayed, dropped int64) {
	if !l.validID(connID) {
		return
	}

	tag, err := l.db.Exec(ctx, closeConnectionSQL, connID, relayed, dropped)
	if err != nil {
		l.logger.Error().Err(err).Str("conn_id", connID).Msg("Failed to record closed connection.")
		return
	}
	if tag.RowsAffected() == 0 {
		l.logger.Warn().Str("conn_id", connID).Msg("Closed connection had no open ledger row.")
	}
}

// validID reports whether connID fits the uuid primary key.
func (l *Ledger) validID(connID string) bool {
	if randx.IsValidConnectionID(connID) {
		return true
	}
	l.logger.Warn().Str("conn_id", connID).Msg("Skipping ledger write for a malformed connection ID.")
	return false
}

// isUniqueViolation reports a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
