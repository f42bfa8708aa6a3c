// Package events carries change notifications to listeners: connected
// clients over SSE and downstream consumers over an AMQP queue.
package events

import (
	"context"
	"errors"
	"time"
)

// Event types.
const (
	CategoryChanged     = "category.changed"
	CategoryDeleted     = "category.deleted"
	ExpenseChanged      = "expense.changed"
	ExpenseDeleted      = "expense.deleted"
	GoalChanged         = "goal.changed"
	GoalDeleted         = "goal.deleted"
	BudgetExceeded      = "budget.exceeded"
	RaceChanged         = "race.changed"
	CollabGoalChanged   = "collab_goal.changed"
	CollabGoalDeleted   = "collab_goal.deleted"
	ContributionCreated = "contribution.created"
	SyncCompleted       = "sync.completed"
)

// Event is a single change notification.
type Event struct {
	Type     string `json:"type"`
	EntityID string `json:"entity_id,omitempty"`
	// UserIDs lists the users the event concerns. Empty means everyone.
	UserIDs []string `json:"user_ids,omitempty"`
	Payload any      `json:"payload,omitempty"`
	At      int64    `json:"at"`
}

// New builds an event stamped with the current time.
func New(eventType, entityID string, payload any, userIDs ...string) Event {
	return Event{
		Type:     eventType,
		EntityID: entityID,
		UserIDs:  userIDs,
		Payload:  payload,
		At:       time.Now().Unix(),
	}
}

// For reports whether the event should reach userID.
func (e Event) For(userID string) bool {
	if len(e.UserIDs) == 0 {
		return true
	}
	for _, id := range e.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Notifier delivers events. Implementations must not block the caller for long.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
