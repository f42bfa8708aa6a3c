package models

import "github.com/shopspring/decimal"

// CollaborativeGoal is a shared savings target divided into sub-categories,
// each accruing contributions from multiple participants.
type CollaborativeGoal struct {
	// ID is the unique identifier for the goal (UUID format).
	ID string

	// Name is the display name (e.g., "Ski trip 2027").
	Name string

	// OwnerID is the user who created the goal and manages its categories.
	OwnerID string

	// InviteCode is the short code other users join with.
	InviteCode string

	// Members is the list of user IDs taking part, owner included.
	Members []string

	// Categories are the sub-targets the goal is split into.
	Categories []GoalCategory

	// CreatedAt is the Unix timestamp when the goal was created.
	CreatedAt int64
}

// HasMember reports whether userID belongs to the goal.
func (g *CollaborativeGoal) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Category returns the sub-category with the given ID, or nil.
func (g *CollaborativeGoal) Category(categoryID string) *GoalCategory {
	for i := range g.Categories {
		if g.Categories[i].ID == categoryID {
			return &g.Categories[i]
		}
	}
	return nil
}

// GoalCategory is one sub-target of a collaborative goal.
type GoalCategory struct {
	ID     string
	GoalID string
	Name   string

	// TargetAmount is how much this category should collect. Always positive.
	TargetAmount decimal.Decimal

	// CurrentAmount is the running total of contributions.
	CurrentAmount decimal.Decimal
}

// GoalContribution records money one member put toward a goal category.
type GoalContribution struct {
	ID         string
	GoalID     string
	CategoryID string
	UserID     string
	Amount     decimal.Decimal
	Note       string

	// CreatedAt is the Unix timestamp when the contribution was recorded.
	CreatedAt int64
}
