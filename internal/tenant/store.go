package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the authoritative source of team data. Lookups return nil without
// error when no team matches; infrastructure failures come back as
// DependencyUnavailableError.
type Store interface {
	TeamByID(ctx context.Context, id int64) (*Team, error)
	TeamByToken(ctx context.Context, token string) (*Team, error)
	MarkIngestedEvent(ctx context.Context, id int64) error
}

const teamColumns = `id, uuid, organization_id, name, anonymize_ips, api_token, session_recording_opt_in, ingested_event`

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) TeamByID(ctx context.Context, id int64) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return s.queryTeam(ctx, query, id)
}

func (s *PostgresStore) TeamByToken(ctx context.Context, token string) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE api_token = $1 LIMIT 1`
	return s.queryTeam(ctx, query, token)
}

func (s *PostgresStore) queryTeam(ctx context.Context, query string, arg any) (*Team, error) {
	var team Team
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&team.ID, &team.UUID, &team.OrganizationID, &team.Name,
		&team.AnonymizeIPs, &team.APIToken, &team.SessionRecordingOptIn, &team.IngestedEvent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyStoreError(err)
	}
	return &team, nil
}

func (s *PostgresStore) MarkIngestedEvent(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE teams SET ingested_event = TRUE WHERE id = $1`, id)
	if err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// classifyStoreError separates "Postgres is flaky, try again" from "the query
// is wrong, stop and get attention".
func classifyStoreError(err error) error {
	transient := pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded)

	if !transient {
		var netErr net.Error
		transient = errors.As(err, &netErr)
	}
	if !transient {
		var connectErr *pgconn.ConnectError
		transient = errors.As(err, &connectErr)
	}

	if transient {
		return &DependencyUnavailableError{Dependency: "postgres", Err: err}
	}
	return fmt.Errorf("team store query failed: %w", err)
}
