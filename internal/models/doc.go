// Package models defines the core domain models for Spendwise.
//
// # Personal Models
//
// These models belong to exactly one user:
//   - User: Registered account with profile details
//   - Category: User-defined label used to group expenses
//   - Expense: A single spend, tagged with a category and a date
//   - Goal: A per-month minimum/maximum spending threshold pair
//
// # Social Models
//
// These models are shared between users:
//   - RaceChallenge / RaceParticipant: Time-boxed shared budget competitions
//   - CollaborativeGoal / GoalCategory / GoalContribution: Shared savings
//     targets split into sub-categories with running totals
//
// # Design Principles
//
// 1. **Flat records**: No entity holds pointers to another; relationships use ID strings
// 2. **Exact money**: All amounts are decimal.Decimal, never float64
// 3. **Calendar dates as text**: Dates are YYYY-MM-DD and months are YYYY-MM, so
//    they sort lexically and compare the same in SQLite and Postgres
// 4. **Derived values stay derived**: Race totals and progress are computed on read
package models
