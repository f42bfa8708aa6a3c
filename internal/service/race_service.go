package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/api"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/models"
	"github.com/mmynk/spendwise/internal/storage"
)

// inviteCodeAttempts bounds retries when a generated invite code collides.
const inviteCodeAttempts = 3

var _ api.RaceServiceHandler = (*RaceService)(nil)

// RaceService implements the RaceService RPC interface.
type RaceService struct {
	deps
}

// NewRaceService creates a RaceService over the given store.
func NewRaceService(store storage.Store, notifier events.Notifier, logger *slog.Logger) *RaceService {
	return &RaceService{deps: newDeps(store, notifier, logger)}
}

func (s *RaceService) displayName(ctx context.Context, userID string) string {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load display name", "user_id", userID, "error", err)
		return userID
	}
	return user.DisplayName
}

// refresh replaces the stored status with the one derived from today's date.
func (s *RaceService) refresh(race *models.RaceChallenge) {
	race.Status = calculator.RaceStatusAt(*race, s.today())
}

func validateRaceFields(name string, budget decimal.Decimal, start, end string) (string, error) {
	name, err := validateName("name", name)
	if err != nil {
		return "", err
	}
	if err := validatePositive("budget", budget); err != nil {
		return "", err
	}
	if err := validateDate("start_date", start); err != nil {
		return "", err
	}
	if err := validateDate("end_date", end); err != nil {
		return "", err
	}
	if end < start {
		return "", invalid("end_date must not be before start_date")
	}
	return name, nil
}

// participantRace loads a race the caller takes part in.
func (s *RaceService) participantRace(ctx context.Context, userID, raceID string) (*models.RaceChallenge, error) {
	if raceID == "" {
		return nil, invalid("race_id is required")
	}
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if !race.HasParticipant(userID) {
		return nil, denied("not a participant of race %s", raceID)
	}
	s.refresh(race)
	return race, nil
}

// creatorRace loads a race the caller created and can still change.
func (s *RaceService) creatorRace(ctx context.Context, userID, raceID string) (*models.RaceChallenge, error) {
	race, err := s.participantRace(ctx, userID, raceID)
	if err != nil {
		return nil, err
	}
	if race.CreatorID != userID {
		return nil, denied("only the creator can change race %s", raceID)
	}
	switch race.Status {
	case models.RaceStatusCompleted:
		return nil, precondition("race %s is completed", raceID)
	case models.RaceStatusCancelled:
		return nil, precondition("race %s is cancelled", raceID)
	}
	return race, nil
}

// leaderboard totals each participant's spend inside the race window and ranks them.
func (s *RaceService) leaderboard(ctx context.Context, race *models.RaceChallenge) ([]calculator.LeaderboardEntry, error) {
	for i := range race.Participants {
		p := &race.Participants[i]
		total, err := s.store.SumExpenses(ctx, storage.ExpenseFilter{
			UserID: p.UserID,
			From:   race.StartDate,
			To:     race.EndDate,
		})
		if err != nil {
			return nil, err
		}
		p.TotalSpent = total
	}
	return calculator.RankRace(race.Budget, race.Participants), nil
}

func (s *RaceService) respond(ctx context.Context, op string, race *models.RaceChallenge) (*connect.Response[api.RaceResponse], error) {
	board, err := s.leaderboard(ctx, race)
	if err != nil {
		return nil, toConnectError(s.logger, op, err)
	}
	return connect.NewResponse(&api.RaceResponse{Race: toAPIRace(race, board)}), nil
}

// CreateRace starts a race with the caller as creator and first participant.
func (s *RaceService) CreateRace(ctx context.Context, req *connect.Request[api.CreateRaceRequest]) (*connect.Response[api.RaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	name, err := validateRaceFields(msg.Name, msg.Budget, msg.StartDate, msg.EndDate)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateRace", err)
	}

	now := s.now().Unix()
	race := &models.RaceChallenge{
		Name:      name,
		CreatorID: userID,
		Budget:    msg.Budget,
		StartDate: msg.StartDate,
		EndDate:   msg.EndDate,
		CreatedAt: now,
		Participants: []models.RaceParticipant{{
			UserID:      userID,
			DisplayName: s.displayName(ctx, userID),
			JoinedAt:    now,
		}},
	}
	s.refresh(race)

	for attempt := 1; ; attempt++ {
		race.ID = ""
		race.InviteCode = newInviteCode()
		err = s.store.CreateRace(ctx, race)
		if err == nil || !errors.Is(err, storage.ErrAlreadyExists) || attempt == inviteCodeAttempts {
			break
		}
		s.logger.Warn("Invite code collision, retrying", "attempt", attempt)
	}
	if err != nil {
		return nil, toConnectError(s.logger, "CreateRace", err)
	}

	s.logger.Info("Race created", "race_id", race.ID, "creator_id", userID, "invite_code", race.InviteCode)
	return s.respond(ctx, "CreateRace", race)
}

// JoinRace adds the caller to the race with the given invite code.
func (s *RaceService) JoinRace(ctx context.Context, req *connect.Request[api.JoinRaceRequest]) (*connect.Response[api.RaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	code := normalizeInviteCode(req.Msg.InviteCode)
	if code == "" {
		return nil, toConnectError(s.logger, "JoinRace", invalid("invite_code is required"))
	}

	race, err := s.store.GetRaceByInviteCode(ctx, code)
	if err != nil {
		return nil, toConnectError(s.logger, "JoinRace", err)
	}
	s.refresh(race)
	switch {
	case race.Status == models.RaceStatusCompleted || race.Status == models.RaceStatusCancelled:
		return nil, toConnectError(s.logger, "JoinRace", precondition("race %s is %s", race.ID, race.Status))
	case race.HasParticipant(userID):
		return nil, connect.NewError(connect.CodeAlreadyExists, errors.New("already a participant"))
	}

	p := &models.RaceParticipant{
		RaceID:      race.ID,
		UserID:      userID,
		DisplayName: s.displayName(ctx, userID),
		JoinedAt:    s.now().Unix(),
	}
	if err := s.store.AddRaceParticipant(ctx, p); err != nil {
		return nil, toConnectError(s.logger, "JoinRace", err)
	}
	race.Participants = append(race.Participants, *p)

	s.logger.Info("Joined race", "race_id", race.ID, "user_id", userID)
	return s.respond(ctx, "JoinRace", race)
}

// LeaveRace removes the caller from a race. The creator cannot leave.
func (s *RaceService) LeaveRace(ctx context.Context, req *connect.Request[api.LeaveRaceRequest]) (*connect.Response[api.LeaveRaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	race, err := s.participantRace(ctx, userID, req.Msg.RaceID)
	if err != nil {
		return nil, toConnectError(s.logger, "LeaveRace", err)
	}
	if race.CreatorID == userID {
		return nil, toConnectError(s.logger, "LeaveRace", precondition("the creator cannot leave race %s", race.ID))
	}
	if err := s.store.RemoveRaceParticipant(ctx, race.ID, userID); err != nil {
		return nil, toConnectError(s.logger, "LeaveRace", err)
	}

	s.logger.Info("Left race", "race_id", race.ID, "user_id", userID)
	return connect.NewResponse(&api.LeaveRaceResponse{}), nil
}

// UpdateRace changes a race's name, budget and window. Creator only, and not
// once the race has completed or been cancelled.
func (s *RaceService) UpdateRace(ctx context.Context, req *connect.Request[api.UpdateRaceRequest]) (*connect.Response[api.RaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	name, err := validateRaceFields(msg.Name, msg.Budget, msg.StartDate, msg.EndDate)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateRace", err)
	}

	race, err := s.creatorRace(ctx, userID, msg.RaceID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateRace", err)
	}
	race.Name = name
	race.Budget = msg.Budget
	race.StartDate = msg.StartDate
	race.EndDate = msg.EndDate
	s.refresh(race)
	if err := s.store.UpdateRace(ctx, race); err != nil {
		return nil, toConnectError(s.logger, "UpdateRace", err)
	}

	s.logger.Info("Race updated", "race_id", race.ID, "status", race.Status)
	return s.respond(ctx, "UpdateRace", race)
}

// CancelRace ends a race early. Creator only.
func (s *RaceService) CancelRace(ctx context.Context, req *connect.Request[api.CancelRaceRequest]) (*connect.Response[api.RaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	race, err := s.creatorRace(ctx, userID, req.Msg.RaceID)
	if err != nil {
		return nil, toConnectError(s.logger, "CancelRace", err)
	}
	race.Status = models.RaceStatusCancelled
	if err := s.store.UpdateRace(ctx, race); err != nil {
		return nil, toConnectError(s.logger, "CancelRace", err)
	}

	s.logger.Info("Race cancelled", "race_id", race.ID)
	return s.respond(ctx, "CancelRace", race)
}

// GetRace returns a race with its leaderboard. Participants only.
func (s *RaceService) GetRace(ctx context.Context, req *connect.Request[api.GetRaceRequest]) (*connect.Response[api.RaceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	race, err := s.participantRace(ctx, userID, req.Msg.RaceID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetRace", err)
	}
	return s.respond(ctx, "GetRace", race)
}

// ListRaces returns the races the caller takes part in, without leaderboards.
func (s *RaceService) ListRaces(ctx context.Context, req *connect.Request[api.ListRacesRequest]) (*connect.Response[api.ListRacesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	races, err := s.store.ListRacesByUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListRaces", err)
	}
	resp := &api.ListRacesResponse{Races: make([]api.Race, 0, len(races))}
	for _, race := range races {
		s.refresh(race)
		resp.Races = append(resp.Races, toAPIRace(race, nil))
	}
	return connect.NewResponse(resp), nil
}
