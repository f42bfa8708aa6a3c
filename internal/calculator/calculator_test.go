package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarizeByCategory(t *testing.T) {
	tests := []struct {
		name         string
		expenses     []models.Expense
		names        map[string]string
		wantTotal    string
		validateFunc func(t *testing.T, s Summary)
	}{
		{
			name: "groups and orders by total",
			expenses: []models.Expense{
				{CategoryID: "food", Amount: d("12.50")},
				{CategoryID: "rent", Amount: d("50")},
				{CategoryID: "food", Amount: d("12.50")},
				{CategoryID: "fun", Amount: d("25")},
			},
			names:     map[string]string{"food": "Food", "rent": "Rent", "fun": "Fun"},
			wantTotal: "100",
			validateFunc: func(t *testing.T, s Summary) {
				if len(s.Categories) != 3 {
					t.Fatalf("categories = %d, want 3", len(s.Categories))
				}
				if s.Categories[0].Name != "Rent" || !s.Categories[0].Percent.Equal(d("50")) {
					t.Errorf("first = %+v, want Rent at 50%%", s.Categories[0])
				}
				// Food and Fun tie at 25; name breaks the tie.
				if s.Categories[1].Name != "Food" || s.Categories[2].Name != "Fun" {
					t.Errorf("tie order = %s, %s; want Food, Fun", s.Categories[1].Name, s.Categories[2].Name)
				}
				if s.Categories[1].Count != 2 {
					t.Errorf("Food count = %d, want 2", s.Categories[1].Count)
				}
			},
		},
		{
			name:      "no expenses",
			expenses:  nil,
			wantTotal: "0",
			validateFunc: func(t *testing.T, s Summary) {
				if len(s.Categories) != 0 {
					t.Errorf("categories = %d, want 0", len(s.Categories))
				}
			},
		},
		{
			name: "unknown category name",
			expenses: []models.Expense{
				{CategoryID: "gone", Amount: d("3")},
			},
			names:     map[string]string{},
			wantTotal: "3",
			validateFunc: func(t *testing.T, s Summary) {
				if s.Categories[0].Name != UnknownCategory {
					t.Errorf("name = %q, want %q", s.Categories[0].Name, UnknownCategory)
				}
				if !s.Categories[0].Percent.Equal(d("100")) {
					t.Errorf("percent = %s, want 100", s.Categories[0].Percent)
				}
			},
		},
		{
			name: "percent rounds to two places",
			expenses: []models.Expense{
				{CategoryID: "a", Amount: d("1")},
				{CategoryID: "b", Amount: d("1")},
				{CategoryID: "c", Amount: d("1")},
			},
			names:     map[string]string{"a": "A", "b": "B", "c": "C"},
			wantTotal: "3",
			validateFunc: func(t *testing.T, s Summary) {
				for _, c := range s.Categories {
					if !c.Percent.Equal(d("33.33")) {
						t.Errorf("%s percent = %s, want 33.33", c.Name, c.Percent)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SummarizeByCategory(tt.expenses, tt.names)
			if !s.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", s.Total, tt.wantTotal)
			}
			if s.Count != len(tt.expenses) {
				t.Errorf("count = %d, want %d", s.Count, len(tt.expenses))
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, s)
			}
		})
	}
}

func TestProgressAngle(t *testing.T) {
	tests := []struct {
		current, target string
		want            float64
	}{
		{"0", "100", 0},
		{"25", "100", 90},
		{"50", "100", 180},
		{"100", "100", 360},
		{"150", "100", 360},
		{"10", "0", 0},
		{"-5", "100", 0},
		{"1", "3", 120},
	}

	for _, tt := range tests {
		t.Run(tt.current+"/"+tt.target, func(t *testing.T) {
			got := ProgressAngle(d(tt.current), d(tt.target))
			if got != tt.want {
				t.Errorf("ProgressAngle(%s, %s) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestEvaluateGoal(t *testing.T) {
	goal := models.Goal{Month: "2026-10", MinAmount: d("100"), MaxAmount: d("400")}

	tests := []struct {
		spent      string
		wantStatus GoalStatus
		wantLeft   string
	}{
		{"50", GoalUnder, "350"},
		{"100", GoalWithin, "300"},
		{"400", GoalWithin, "0"},
		{"401", GoalOver, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			p := EvaluateGoal(goal, d(tt.spent))
			if p.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", p.Status, tt.wantStatus)
			}
			if !p.Remaining.Equal(d(tt.wantLeft)) {
				t.Errorf("remaining = %s, want %s", p.Remaining, tt.wantLeft)
			}
		})
	}

	p := EvaluateGoal(goal, d("200"))
	if !p.PercentOfMax.Equal(d("50")) || p.Angle != 180 {
		t.Errorf("progress = %s%% / %v°, want 50%% / 180°", p.PercentOfMax, p.Angle)
	}
}

func TestCrossedMax(t *testing.T) {
	goal := models.Goal{MaxAmount: d("100")}
	if !CrossedMax(goal, d("90"), d("110")) {
		t.Error("90 -> 110 should cross 100")
	}
	if !CrossedMax(goal, d("100"), d("100.01")) {
		t.Error("100 -> 100.01 should cross 100")
	}
	if CrossedMax(goal, d("110"), d("120")) {
		t.Error("already over should not cross again")
	}
	if CrossedMax(goal, d("10"), d("100")) {
		t.Error("reaching max exactly is not over")
	}
}

func TestRaceStatusAt(t *testing.T) {
	race := models.RaceChallenge{StartDate: "2026-10-01", EndDate: "2026-10-31", Status: models.RaceStatusPending}

	tests := []struct {
		today string
		want  models.RaceStatus
	}{
		{"2026-09-30", models.RaceStatusPending},
		{"2026-10-01", models.RaceStatusActive},
		{"2026-10-31", models.RaceStatusActive},
		{"2026-11-01", models.RaceStatusCompleted},
	}
	for _, tt := range tests {
		if got := RaceStatusAt(race, tt.today); got != tt.want {
			t.Errorf("RaceStatusAt(%s) = %s, want %s", tt.today, got, tt.want)
		}
	}

	race.Status = models.RaceStatusCancelled
	if got := RaceStatusAt(race, "2026-10-15"); got != models.RaceStatusCancelled {
		t.Errorf("cancelled race reported %s", got)
	}
}

func TestRankRace(t *testing.T) {
	participants := []models.RaceParticipant{
		{UserID: "over", TotalSpent: d("250"), JoinedAt: 1},
		{UserID: "late", TotalSpent: d("80"), JoinedAt: 5},
		{UserID: "early", TotalSpent: d("80"), JoinedAt: 2},
		{UserID: "frugal", TotalSpent: d("10"), JoinedAt: 9},
		{UserID: "way-over", TotalSpent: d("900"), JoinedAt: 0},
	}

	board := RankRace(d("200"), participants)

	wantOrder := []string{"frugal", "early", "late", "over", "way-over"}
	if len(board) != len(wantOrder) {
		t.Fatalf("entries = %d, want %d", len(board), len(wantOrder))
	}
	for i, want := range wantOrder {
		if board[i].UserID != want {
			t.Errorf("rank %d = %s, want %s", i+1, board[i].UserID, want)
		}
		if board[i].Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, board[i].Rank)
		}
	}
	if !board[3].OverBudget || board[2].OverBudget {
		t.Error("over-budget flags wrong")
	}
	if !board[0].Remaining.Equal(d("190")) {
		t.Errorf("frugal remaining = %s, want 190", board[0].Remaining)
	}

	// Input must not be reordered.
	if participants[0].UserID != "over" {
		t.Error("RankRace mutated its input")
	}
}

func TestCollaborativeProgress(t *testing.T) {
	goal := models.CollaborativeGoal{
		Categories: []models.GoalCategory{
			{ID: "flights", Name: "Flights", TargetAmount: d("600"), CurrentAmount: d("600")},
			{ID: "hotel", Name: "Hotel", TargetAmount: d("400"), CurrentAmount: d("100")},
		},
	}

	p := CollaborativeProgress(goal)
	if !p.Current.Equal(d("700")) || !p.Target.Equal(d("1000")) {
		t.Errorf("totals = %s/%s, want 700/1000", p.Current, p.Target)
	}
	if !p.Percent.Equal(d("70")) {
		t.Errorf("percent = %s, want 70", p.Percent)
	}
	if !p.Categories[0].Complete || p.Categories[1].Complete {
		t.Error("completion flags wrong")
	}
	if p.Categories[1].Angle != 90 {
		t.Errorf("hotel angle = %v, want 90", p.Categories[1].Angle)
	}

	empty := CollaborativeProgress(models.CollaborativeGoal{})
	if !empty.Percent.IsZero() || empty.Angle != 0 {
		t.Errorf("empty goal progress = %+v", empty)
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		month, from, to string
		wantErr         bool
	}{
		{"2026-02", "2026-02-01", "2026-02-28", false},
		{"2028-02", "2028-02-01", "2028-02-29", false},
		{"2026-12", "2026-12-01", "2026-12-31", false},
		{"2026-13", "", "", true},
		{"October", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			from, to, err := MonthBounds(tt.month)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MonthBounds(%s) error = %v, wantErr %v", tt.month, err, tt.wantErr)
			}
			if from != tt.from || to != tt.to {
				t.Errorf("MonthBounds(%s) = %s..%s, want %s..%s", tt.month, from, to, tt.from, tt.to)
			}
		})
	}

	if m, err := MonthOf("2026-10-14"); err != nil || m != "2026-10" {
		t.Errorf("MonthOf = %q, %v", m, err)
	}
}
