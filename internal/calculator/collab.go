package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

// CategoryProgress is the funding state of one collaborative goal category.
type CategoryProgress struct {
	CategoryID string
	Name       string
	Current    decimal.Decimal
	Target     decimal.Decimal
	Percent    decimal.Decimal
	Angle      float64
	Complete   bool
}

// CollabProgress is the funding state of a whole collaborative goal.
type CollabProgress struct {
	Current    decimal.Decimal
	Target     decimal.Decimal
	Percent    decimal.Decimal
	Angle      float64
	Categories []CategoryProgress
}

// CollaborativeProgress sums a goal's categories and computes per-category
// and overall completion. Percentages are not capped at 100; angles are.
func CollaborativeProgress(goal models.CollaborativeGoal) CollabProgress {
	out := CollabProgress{
		Current:    decimal.Zero,
		Target:     decimal.Zero,
		Categories: make([]CategoryProgress, 0, len(goal.Categories)),
	}

	for _, c := range goal.Categories {
		out.Current = out.Current.Add(c.CurrentAmount)
		out.Target = out.Target.Add(c.TargetAmount)
		out.Categories = append(out.Categories, CategoryProgress{
			CategoryID: c.ID,
			Name:       c.Name,
			Current:    c.CurrentAmount,
			Target:     c.TargetAmount,
			Percent:    Percent(c.CurrentAmount, c.TargetAmount),
			Angle:      ProgressAngle(c.CurrentAmount, c.TargetAmount),
			Complete:   c.TargetAmount.IsPositive() && c.CurrentAmount.GreaterThanOrEqual(c.TargetAmount),
		})
	}

	out.Percent = Percent(out.Current, out.Target)
	out.Angle = ProgressAngle(out.Current, out.Target)
	return out
}
