package models

import "github.com/shopspring/decimal"

// Category is a user-defined label used to group expenses and budgets.
type Category struct {
	// ID is the unique identifier for the category (UUID format).
	ID string

	// UserID is the owner of the category.
	UserID string

	// Name is the display name (e.g., "Groceries"). Unique per owner, ignoring case.
	Name string

	// CreatedAt is the Unix timestamp when the category was created.
	CreatedAt int64
}

// Expense is a single recorded spend.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// UserID is the user who spent the money.
	UserID string

	// CategoryID references the Category this expense is filed under.
	CategoryID string

	// Amount is the money spent. Always positive.
	Amount decimal.Decimal

	// Date is the calendar day of the expense (YYYY-MM-DD).
	Date string

	// Description is an optional free-text note.
	Description string

	// StartTime and EndTime optionally bound when the spend happened (HH:MM).
	StartTime string
	EndTime   string

	// PhotoPath is an optional path or URL of a receipt photo.
	PhotoPath string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Goal is a per-month minimum/maximum spending threshold pair.
type Goal struct {
	// ID is the unique identifier for the goal (UUID format).
	ID string

	// UserID is the owner of the goal.
	UserID string

	// Month is the calendar month the goal applies to (YYYY-MM).
	// A user has at most one goal per month.
	Month string

	// MinAmount is the spend the user wants to reach at least.
	MinAmount decimal.Decimal

	// MaxAmount is the spend the user must not exceed.
	MaxAmount decimal.Decimal

	// CreatedAt is the Unix timestamp when the goal was first set.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last threshold change.
	UpdatedAt int64
}
