package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

const raceColumns = `id, name, creator_id, budget, start_date, end_date, status, invite_code, created_at`

func scanRace(row pgx.Row) (*models.RaceChallenge, error) {
	r := &models.RaceChallenge{}
	var status string
	err := row.Scan(&r.ID, &r.Name, &r.CreatorID, &r.Budget, &r.StartDate, &r.EndDate,
		&status, &r.InviteCode, &r.CreatedAt)
	r.Status = models.RaceStatus(status)
	return r, err
}

func (p *PostgresStore) CreateRace(ctx context.Context, race *models.RaceChallenge) error {
	if race.ID == "" {
		race.ID = uuid.New().String()
	}
	if race.CreatedAt == 0 {
		race.CreatedAt = time.Now().Unix()
	}

	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO races (`+raceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			race.ID, race.Name, race.CreatorID, race.Budget, race.StartDate, race.EndDate,
			string(race.Status), race.InviteCode, race.CreatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("race %s: %w", race.ID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to create race: %w", err)
		}

		for i := range race.Participants {
			part := &race.Participants[i]
			part.RaceID = race.ID
			if err := insertParticipant(ctx, tx, part); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertParticipant(ctx context.Context, q querier, part *models.RaceParticipant) error {
	if part.JoinedAt == 0 {
		part.JoinedAt = time.Now().Unix()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO race_participants (race_id, user_id, display_name, joined_at) VALUES ($1, $2, $3, $4)`,
		part.RaceID, part.UserID, part.DisplayName, part.JoinedAt)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("participant %s in race %s: %w", part.UserID, part.RaceID, storage.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return fmt.Errorf("race %s: %w", part.RaceID, storage.ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func loadParticipants(ctx context.Context, q querier, race *models.RaceChallenge) error {
	rows, err := q.Query(ctx,
		`SELECT race_id, user_id, display_name, joined_at FROM race_participants
		 WHERE race_id = $1 ORDER BY joined_at, user_id`, race.ID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	race.Participants = nil
	for rows.Next() {
		var part models.RaceParticipant
		if err := rows.Scan(&part.RaceID, &part.UserID, &part.DisplayName, &part.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		race.Participants = append(race.Participants, part)
	}
	return rows.Err()
}

func (p *PostgresStore) getRaceWhere(ctx context.Context, column, value string) (*models.RaceChallenge, error) {
	race, err := scanRace(p.pool.QueryRow(ctx,
		`SELECT `+raceColumns+` FROM races WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("race %s: %w", value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	if err := loadParticipants(ctx, p.pool, race); err != nil {
		return nil, err
	}
	return race, nil
}

func (p *PostgresStore) GetRace(ctx context.Context, id string) (*models.RaceChallenge, error) {
	return p.getRaceWhere(ctx, "id", id)
}

func (p *PostgresStore) GetRaceByInviteCode(ctx context.Context, code string) (*models.RaceChallenge, error) {
	return p.getRaceWhere(ctx, "invite_code", code)
}

func (p *PostgresStore) ListRacesByUser(ctx context.Context, userID string) ([]*models.RaceChallenge, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT r.id, r.name, r.creator_id, r.budget, r.start_date, r.end_date, r.status, r.invite_code, r.created_at
		 FROM races r JOIN race_participants rp ON rp.race_id = r.id
		 WHERE rp.user_id = $1 ORDER BY r.start_date DESC, r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list races for user %s: %w", userID, err)
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

	for _, race := range races {
		if err := loadParticipants(ctx, p.pool, race); err != nil {
			return nil, err
		}
	}
	return races, nil
}

func (p *PostgresStore) UpdateRace(ctx context.Context, race *models.RaceChallenge) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE races SET name = $1, budget = $2, start_date = $3, end_date = $4, status = $5 WHERE id = $6`,
		race.Name, race.Budget, race.StartDate, race.EndDate, string(race.Status), race.ID)
	if err != nil {
		return fmt.Errorf("failed to update race: %w", err)
	}
	return checkAffected(tag, "race", race.ID)
}

func (p *PostgresStore) AddRaceParticipant(ctx context.Context, part *models.RaceParticipant) error {
	return insertParticipant(ctx, p.pool, part)
}

func (p *PostgresStore) RemoveRaceParticipant(ctx context.Context, raceID, userID string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM race_participants WHERE race_id = $1 AND user_id = $2`, raceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return checkAffected(tag, "participant", raceID+"/"+userID)
}
