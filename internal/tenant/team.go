// Package tenant resolves the team owning an event, shielding Postgres from
// per-event load with a bounded, time-expiring two-tier cache.
package tenant

import "github.com/google/uuid"

// Team is a snapshot of a team row. The store owns the authoritative copy;
// cached snapshots go stale and are refreshed by TTL, never invalidated
// explicitly. Snapshots are read-only with one exception: IngestedEvent,
// which Manager.MarkIngestedEvent flips in place exactly once. The driver
// processes messages sequentially, so the flip needs no locking.
type Team struct {
	ID                    int64
	UUID                  uuid.UUID
	OrganizationID        uuid.UUID
	Name                  string
	AnonymizeIPs          bool
	APIToken              string
	SessionRecordingOptIn bool
	IngestedEvent         bool
}
