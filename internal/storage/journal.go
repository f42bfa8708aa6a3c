package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/spendwise/internal/models"
)

// LocalIDPrefix marks IDs minted by the cache while the remote store was
// unreachable. Sync replaces them with remote-assigned IDs.
const LocalIDPrefix = "local-"

// NewLocalID returns a fresh cache-minted ID.
func NewLocalID() string {
	return LocalIDPrefix + uuid.New().String()
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Entity kinds that can be written while the remote store is unreachable.
const (
	KindCategory = "category"
	KindExpense  = "expense"
	KindGoal     = "goal"
)

// Pending operation types.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Pending operation states.
const (
	OpStatePending   = "pending"
	OpStateCompleted = "completed"
	OpStateFailed    = "failed"
)

// PendingOp is a write accepted by the local cache that still has to be
// replayed against the remote store.
type PendingOp struct {
	ID            string
	Kind          string
	OperationType string
	// TargetID is the entity ID the op applies to. For goals it is
	// "<user_id>/<month>".
	TargetID string
	State    string
	// Payload is the JSON encoding of the entity at the time of the write.
	Payload   string
	Error     string
	CreatedAt int64
	UpdatedAt int64
}

// Journal is implemented by local caches that can queue offline writes.
type Journal interface {
	AppendPendingOp(ctx context.Context, op *PendingOp) error
	// ListPendingOps returns ops still in the pending state, oldest first.
	ListPendingOps(ctx context.Context) ([]PendingOp, error)
	CompletePendingOp(ctx context.Context, id string) error
	FailPendingOp(ctx context.Context, id, reason string) error
	CountPendingOps(ctx context.Context) (int, error)
	// RemapID re-keys an entity of the given kind from oldID to newID,
	// rewriting every row that references it, including queued ops.
	RemapID(ctx context.Context, kind, oldID, newID string) error
}

// Mirror is implemented by local caches that hold copies of records owned by
// another store. Every Put is an upsert keyed by the record's ID; composite
// records (races, collaborative goals) replace their child rows wholesale.
type Mirror interface {
	PutUser(ctx context.Context, user *models.User) error
	PutCategory(ctx context.Context, category *models.Category) error
	PutExpense(ctx context.Context, expense *models.Expense) error
	PutGoal(ctx context.Context, goal *models.Goal) error
	PutRace(ctx context.Context, race *models.RaceChallenge) error
	PutCollabGoal(ctx context.Context, goal *models.CollaborativeGoal) error
	PutContribution(ctx context.Context, contribution *models.GoalContribution) error
}

// Cache is a local store that mirrors a remote one and journals offline writes.
type Cache interface {
	Store
	Journal
	Mirror
}
