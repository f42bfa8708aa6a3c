package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

// GoalStatus describes where a month's spending sits relative to its goal.
type GoalStatus string

const (
	GoalUnder  GoalStatus = "under"  // below the minimum
	GoalWithin GoalStatus = "within" // between minimum and maximum, inclusive
	GoalOver   GoalStatus = "over"   // above the maximum
)

// GoalProgress is the evaluation of a month's spend against its goal.
type GoalProgress struct {
	Month        string
	Spent        decimal.Decimal
	Min          decimal.Decimal
	Max          decimal.Decimal
	Remaining    decimal.Decimal // Max - Spent, negative once over
	Status       GoalStatus
	PercentOfMax decimal.Decimal
	Angle        float64
}

// EvaluateGoal compares spent against the goal's thresholds.
func EvaluateGoal(goal models.Goal, spent decimal.Decimal) GoalProgress {
	status := GoalWithin
	switch {
	case spent.GreaterThan(goal.MaxAmount):
		status = GoalOver
	case spent.LessThan(goal.MinAmount):
		status = GoalUnder
	}

	return GoalProgress{
		Month:        goal.Month,
		Spent:        spent,
		Min:          goal.MinAmount,
		Max:          goal.MaxAmount,
		Remaining:    goal.MaxAmount.Sub(spent),
		Status:       status,
		PercentOfMax: Percent(spent, goal.MaxAmount),
		Angle:        ProgressAngle(spent, goal.MaxAmount),
	}
}

// CrossedMax reports whether spend moved from at or under the goal's maximum
// (before) to over it (after).
func CrossedMax(goal models.Goal, before, after decimal.Decimal) bool {
	return !before.GreaterThan(goal.MaxAmount) && after.GreaterThan(goal.MaxAmount)
}
