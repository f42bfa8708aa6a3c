package api

import "github.com/shopspring/decimal"

// Money values are decimal strings on the wire ("12.50"). Dates are
// YYYY-MM-DD, months YYYY-MM and timestamps Unix seconds.

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone,omitempty"`
	PhotoPath   string `json:"photo_path,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type Expense struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	StartTime   string          `json:"start_time,omitempty"`
	EndTime     string          `json:"end_time,omitempty"`
	PhotoPath   string          `json:"photo_path,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

type CategoryTotal struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percent    decimal.Decimal `json:"percent"`
}

type Goal struct {
	ID        string          `json:"id"`
	Month     string          `json:"month"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

type GoalProgress struct {
	Month        string          `json:"month"`
	Spent        decimal.Decimal `json:"spent"`
	Min          decimal.Decimal `json:"min"`
	Max          decimal.Decimal `json:"max"`
	Remaining    decimal.Decimal `json:"remaining"`
	Status       string          `json:"status"`
	PercentOfMax decimal.Decimal `json:"percent_of_max"`
	Angle        float64         `json:"angle"`
}

type Participant struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	JoinedAt    int64  `json:"joined_at"`
}

type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	OverBudget  bool            `json:"over_budget"`
}

type Race struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	CreatorID    string             `json:"creator_id"`
	Budget       decimal.Decimal    `json:"budget"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	Status       string             `json:"status"`
	InviteCode   string             `json:"invite_code"`
	Participants []Participant      `json:"participants"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard,omitempty"`
	CreatedAt    int64              `json:"created_at"`
}

type GoalCategory struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Percent       decimal.Decimal `json:"percent"`
	Angle         float64         `json:"angle"`
	Complete      bool            `json:"complete"`
}

type CollabProgress struct {
	Current decimal.Decimal `json:"current"`
	Target  decimal.Decimal `json:"target"`
	Percent decimal.Decimal `json:"percent"`
	Angle   float64         `json:"angle"`
}

type CollabGoal struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OwnerID    string          `json:"owner_id"`
	InviteCode string          `json:"invite_code"`
	Members    []string        `json:"members"`
	Categories []GoalCategory  `json:"categories"`
	Progress   *CollabProgress `json:"progress,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// NewGoalCategory is a category supplied when creating a collaborative goal.
type NewGoalCategory struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

type Contribution struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}
