package tenant

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/replaylab/replay-ingest/internal/metrics"
)

// teamEntry distinguishes a cached "no such team" from a cache miss: a Get
// that reports ok=false means unknown, ok=true with a nil team means the
// absence itself is cached.
type teamEntry struct {
	team *Team
}

// tokenEntry caches either the id a token resolves to or the fact that the
// token is known invalid.
type tokenEntry struct {
	teamID  int64
	invalid bool
}

// Manager resolves teams by id or API token through two bounded,
// time-expiring maps in front of the Store.
//
// The caches exist to reduce load on Postgres, not to survive its outages:
// when an entry has expired and Postgres is down, resolution fails and the
// caller must retry later.
type Manager struct {
	store Store
	log   *zap.Logger

	teams  *expirable.LRU[int64, teamEntry]
	tokens *expirable.LRU[string, tokenEntry]

	slowQueryWarn time.Duration
}

func NewManager(store Store, cfg CacheConfig, log *zap.Logger) *Manager {
	return &Manager{
		store:         store,
		log:           log.With(zap.String("component", "tenant-manager")),
		teams:         expirable.NewLRU[int64, teamEntry](cfg.TeamCapacity, nil, cfg.TeamTTL),
		tokens:        expirable.NewLRU[string, tokenEntry](cfg.TokenCapacity, nil, cfg.TokenTTL),
		slowQueryWarn: cfg.SlowQueryWarn,
	}
}

// ByID returns the team with the given id, or nil if it does not exist.
// Negative results are cached as well.
func (m *Manager) ByID(ctx context.Context, id int64) (*Team, error) {
	if entry, ok := m.teams.Get(id); ok {
		return entry.team, nil
	}

	metrics.TeamStoreQueries.WithLabelValues("id").Inc()
	stop := m.slowQueryGuard("team by id")
	defer stop()

	team, err := m.store.TeamByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.teams.Add(id, teamEntry{team: team})
	return team, nil
}

// ByToken validates and resolves an API token, returning nil for invalid
// tokens.
//
// An invalid marker in the token cache short-circuits without touching the
// store; only a full store query can clear it, so a token that later becomes
// valid keeps being rejected for up to the token TTL. Conversely a revoked
// token keeps being accepted until its team cache entry expires. Both are
// deliberate: the cache bounds staleness, it does not eliminate it.
func (m *Manager) ByToken(ctx context.Context, token string) (*Team, error) {
	if entry, ok := m.tokens.Get(token); ok {
		if entry.invalid {
			return nil, nil
		}
		// Positive chain: token → id → snapshot without a store round trip.
		if cached, ok := m.teams.Get(entry.teamID); ok && cached.team != nil {
			return cached.team, nil
		}
	}

	metrics.TeamStoreQueries.WithLabelValues("token").Inc()
	stop := m.slowQueryGuard("team by token")
	defer stop()

	team, err := m.store.TeamByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if team == nil {
		m.tokens.Add(token, tokenEntry{invalid: true})
		return nil, nil
	}

	m.tokens.Add(token, tokenEntry{teamID: team.ID})
	m.teams.Add(team.ID, teamEntry{team: team})
	return team, nil
}

// MarkIngestedEvent records that the team has received its first event.
// Writes through to the store once; subsequent calls are no-ops.
func (m *Manager) MarkIngestedEvent(ctx context.Context, team *Team) error {
	if team == nil || team.IngestedEvent {
		return nil
	}
	if err := m.store.MarkIngestedEvent(ctx, team.ID); err != nil {
		return err
	}
	team.IngestedEvent = true
	return nil
}

// slowQueryGuard logs a diagnostic if a store call runs past the threshold.
// Observability only: the call itself is never cancelled.
func (m *Manager) slowQueryGuard(op string) func() {
	timer := time.AfterFunc(m.slowQueryWarn, func() {
		m.log.Warn("team store query still running",
			zap.String("op", op),
			zap.Duration("after", m.slowQueryWarn),
		)
	})
	return func() { timer.Stop() }
}
