package models

import "github.com/shopspring/decimal"

// RaceStatus is the lifecycle state of a race challenge.
type RaceStatus string

const (
	RaceStatusPending   RaceStatus = "pending"
	RaceStatusActive    RaceStatus = "active"
	RaceStatusCompleted RaceStatus = "completed"
	RaceStatusCancelled RaceStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RaceStatus) Valid() bool {
	switch s {
	case RaceStatusPending, RaceStatusActive, RaceStatusCompleted, RaceStatusCancelled:
		return true
	}
	return false
}

// RaceChallenge is a time-boxed shared budget competition among invited participants.
// Participants are ranked by how much they spend inside the race window.
type RaceChallenge struct {
	// ID is the unique identifier for the race (UUID format).
	ID string

	// Name is the display name of the race (e.g., "No-Takeout November").
	Name string

	// CreatorID is the user who created the race. Only the creator can
	// update or cancel it.
	CreatorID string

	// Budget is the spending cap every participant races against.
	Budget decimal.Decimal

	// StartDate and EndDate bound the race window, inclusive (YYYY-MM-DD).
	StartDate string
	EndDate   string

	// Status is the stored lifecycle state. Pending/active/completed are
	// refreshed from the dates on read; cancelled is terminal.
	Status RaceStatus

	// InviteCode is the short code other users join with.
	InviteCode string

	// Participants is the list of users in the race, creator included.
	Participants []RaceParticipant

	// CreatedAt is the Unix timestamp when the race was created.
	CreatedAt int64
}

// HasParticipant reports whether userID has joined the race.
func (r *RaceChallenge) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// RaceParticipant is one user's membership in a race.
type RaceParticipant struct {
	RaceID      string
	UserID      string
	DisplayName string

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64

	// TotalSpent is derived from the user's expenses inside the race window.
	// Stores never persist it.
	TotalSpent decimal.Decimal
}
