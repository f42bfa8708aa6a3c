package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

const raceColumns = `id, name, creator_id, budget, start_date, end_date, status, invite_code, created_at`

func scanRace(row interface{ Scan(...any) error }) (*models.RaceChallenge, error) {
	r := &models.RaceChallenge{}
	var status string
	err := row.Scan(&r.ID, &r.Name, &r.CreatorID, &r.Budget, &r.StartDate, &r.EndDate,
		&status, &r.InviteCode, &r.CreatedAt)
	r.Status = models.RaceStatus(status)
	return r, err
}

// CreateRace persists a race and its initial participants.
func (s *SQLiteStore) CreateRace(ctx context.Context, race *models.RaceChallenge) error {
	if race.ID == "" {
		race.ID = uuid.New().String()
	}
	if race.CreatedAt == 0 {
		race.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO races (`+raceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			race.ID, race.Name, race.CreatorID, race.Budget.String(), race.StartDate, race.EndDate,
			string(race.Status), race.InviteCode, race.CreatedAt,
		)
		if isUniqueConstraint(err) {
			return fmt.Errorf("race %s: %w", race.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert race: %w", err)
		}

		for i := range race.Participants {
			p := &race.Participants[i]
			p.RaceID = race.ID
			if err := insertParticipant(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertParticipant(ctx context.Context, q querier, p *models.RaceParticipant) error {
	if p.JoinedAt == 0 {
		p.JoinedAt = time.Now().Unix()
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO race_participants (race_id, user_id, display_name, joined_at) VALUES (?, ?, ?, ?)",
		p.RaceID, p.UserID, p.DisplayName, p.JoinedAt,
	)
	if isUniqueConstraint(err) {
		return fmt.Errorf("participant %s in race %s: %w", p.UserID, p.RaceID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// loadParticipants fills race.Participants ordered by join time.
func loadParticipants(ctx context.Context, q querier, race *models.RaceChallenge) error {
	rows, err := q.QueryContext(ctx,
		`SELECT race_id, user_id, display_name, joined_at FROM race_participants
		 WHERE race_id = ? ORDER BY joined_at, user_id`, race.ID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	race.Participants = nil
	for rows.Next() {
		var p models.RaceParticipant
		if err := rows.Scan(&p.RaceID, &p.UserID, &p.DisplayName, &p.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		race.Participants = append(race.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getRaceWhere(ctx context.Context, where string, arg string) (*models.RaceChallenge, error) {
	race, err := scanRace(s.db.QueryRowContext(ctx,
		`SELECT `+raceColumns+` FROM races WHERE `+where+` = ?`, arg))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("race %s: %w", arg, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	if err := loadParticipants(ctx, s.db, race); err != nil {
		return nil, err
	}
	return race, nil
}

// GetRace retrieves a race with its participants.
func (s *SQLiteStore) GetRace(ctx context.Context, id string) (*models.RaceChallenge, error) {
	return s.getRaceWhere(ctx, "id", id)
}

// GetRaceByInviteCode retrieves a race by its invite code.
func (s *SQLiteStore) GetRaceByInviteCode(ctx context.Context, code string) (*models.RaceChallenge, error) {
	return s.getRaceWhere(ctx, "invite_code", code)
}

// ListRacesByUser returns the races a user participates in, newest first.
func (s *SQLiteStore) ListRacesByUser(ctx context.Context, userID string) ([]*models.RaceChallenge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.creator_id, r.budget, r.start_date, r.end_date, r.status, r.invite_code, r.created_at
		 FROM races r JOIN race_participants p ON p.race_id = r.id
		 WHERE p.user_id = ? ORDER BY r.start_date DESC, r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list races: %w", err)
	}

	var races []*models.RaceChallenge
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate races: %w", err)
	}

	// Participants are loaded after the outer rows are closed.
	for _, race := range races {
		if err := loadParticipants(ctx, s.db, race); err != nil {
			return nil, err
		}
	}
	return races, nil
}

// UpdateRace overwrites the race's name, budget, dates and status.
func (s *SQLiteStore) UpdateRace(ctx context.Context, race *models.RaceChallenge) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE races SET name = ?, budget = ?, start_date = ?, end_date = ?, status = ? WHERE id = ?`,
		race.Name, race.Budget.String(), race.StartDate, race.EndDate, string(race.Status), race.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update race: %w", err)
	}
	return checkAffected(result, "race", race.ID)
}

// AddRaceParticipant adds a user to a race.
func (s *SQLiteStore) AddRaceParticipant(ctx context.Context, participant *models.RaceParticipant) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM races WHERE id = ?", participant.RaceID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("race %s: %w", participant.RaceID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check race existence: %w", err)
	}
	return insertParticipant(ctx, s.db, participant)
}

// RemoveRaceParticipant removes a user from a race.
func (s *SQLiteStore) RemoveRaceParticipant(ctx context.Context, raceID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM race_participants WHERE race_id = ? AND user_id = ?", raceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return checkAffected(result, "participant", raceID+"/"+userID)
}
