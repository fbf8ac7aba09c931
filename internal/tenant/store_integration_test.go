//go:build integration

package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres brings up a throwaway database with the schema applied.
func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("replay"),
		postgres.WithUsername("replay"),
		postgres.WithPassword("replay"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(connString))

	store, err := NewPostgresStore(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func seedTeam(t *testing.T, store *PostgresStore, team Team) int64 {
	t.Helper()

	var id int64
	err := store.pool.QueryRow(context.Background(),
		`INSERT INTO teams (uuid, organization_id, name, anonymize_ips, api_token, session_recording_opt_in, ingested_event)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		team.UUID, team.OrganizationID, team.Name,
		team.AnonymizeIPs, team.APIToken, team.SessionRecordingOptIn, team.IngestedEvent,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPostgresStore_Lookups(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	seeded := Team{
		UUID:                  uuid.New(),
		OrganizationID:        uuid.New(),
		Name:                  "acme",
		APIToken:              "tok_abc",
		SessionRecordingOptIn: true,
	}
	id := seedTeam(t, store, seeded)

	t.Run("by id", func(t *testing.T) {
		team, err := store.TeamByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, team)
		assert.Equal(t, seeded.UUID, team.UUID)
		assert.Equal(t, "acme", team.Name)
		assert.True(t, team.SessionRecordingOptIn)
	})

	t.Run("by token", func(t *testing.T) {
		team, err := store.TeamByToken(ctx, "tok_abc")
		require.NoError(t, err)
		require.NotNil(t, team)
		assert.Equal(t, id, team.ID)
	})

	t.Run("missing id is nil without error", func(t *testing.T) {
		team, err := store.TeamByID(ctx, id+1000)
		require.NoError(t, err)
		assert.Nil(t, team)
	})

	t.Run("unknown token is nil without error", func(t *testing.T) {
		team, err := store.TeamByToken(ctx, "tok_bogus")
		require.NoError(t, err)
		assert.Nil(t, team)
	})
}

func TestPostgresStore_MarkIngestedEvent(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	id := seedTeam(t, store, Team{
		UUID:           uuid.New(),
		OrganizationID: uuid.New(),
		Name:           "acme",
		APIToken:       "tok_abc",
	})

	require.NoError(t, store.MarkIngestedEvent(ctx, id))

	team, err := store.TeamByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.True(t, team.IngestedEvent)
}
