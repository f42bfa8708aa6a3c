// Package service implements the spendwise Connect RPC handlers on top of a
// storage.Store, the calculator and an events.Notifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/auth"
	"github.com/mmynk/spendwise/internal/calculator"
	"github.com/mmynk/spendwise/internal/events"
	"github.com/mmynk/spendwise/internal/middleware"
	"github.com/mmynk/spendwise/internal/storage"
)

var (
	// errPermissionDenied is returned when the caller does not own or
	// belong to the record.
	errPermissionDenied = errors.New("permission denied")
	// errFailedPrecondition is returned when the record's state forbids the change.
	errFailedPrecondition = errors.New("failed precondition")
)

// invalidArgument reports a malformed request.
type invalidArgument struct {
	msg string
}

func (e *invalidArgument) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &invalidArgument{msg: fmt.Sprintf(format, args...)}
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errPermissionDenied)
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errFailedPrecondition)
}

// connectCode maps an error onto the RPC status it should be reported with.
func connectCode(err error) connect.Code {
	var inv *invalidArgument
	switch {
	case errors.As(err, &inv):
		return connect.CodeInvalidArgument
	case errors.Is(err, errPermissionDenied):
		return connect.CodePermissionDenied
	case errors.Is(err, errFailedPrecondition), errors.Is(err, storage.ErrConflict):
		return connect.CodeFailedPrecondition
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, storage.ErrUnavailable):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}

// toConnectError wraps err with its RPC code and logs it. Internal errors are
// logged at ERROR and their detail is not sent to the client.
func toConnectError(logger *slog.Logger, op string, err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	code := connectCode(err)
	if code == connect.CodeInternal {
		logger.Error(op+" failed", "error", err)
		return connect.NewError(code, errors.New("internal error"))
	}
	logger.Debug(op+" rejected", "code", code, "error", err)
	return connect.NewError(code, err)
}

// requireUser returns the authenticated caller set by middleware.RequireAuth.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// deps is what every service shares.
type deps struct {
	store    storage.Store
	notifier events.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func newDeps(store storage.Store, notifier events.Notifier, logger *slog.Logger) deps {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return deps{store: store, notifier: notifier, logger: logger, now: time.Now}
}

func (d deps) today() string {
	return d.now().Format(calculator.DateLayout)
}

func (d deps) notify(ctx context.Context, event events.Event) {
	if err := d.notifier.Notify(ctx, event); err != nil {
		d.logger.Warn("Failed to deliver event", "type", event.Type, "error", err)
	}
}

// newInviteCode returns an 8 character code derived from a random UUID.
func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Field validation shared by the services.

const maxNameLength = 100

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("%s is required", field)
	}
	if len([]rune(name)) > maxNameLength {
		return "", invalid("%s must be at most %d characters", field, maxNameLength)
	}
	return name, nil
}

func validatePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("%s must be greater than zero", field)
	}
	if !amount.Equal(amount.Round(2)) {
		return invalid("%s must have at most 2 decimal places", field)
	}
	return nil
}

func validateDate(field, date string) error {
	if _, err := calculator.ParseDate(date); err != nil {
		return invalid("%s: %v", field, err)
	}
	return nil
}

func validateMonth(month string) error {
	if _, err := calculator.ParseMonth(month); err != nil {
		return invalid("month: %v", err)
	}
	return nil
}

func validateRange(from, to string) error {
	if from != "" {
		if err := validateDate("from", from); err != nil {
			return err
		}
	}
	if to != "" {
		if err := validateDate("to", to); err != nil {
			return err
		}
	}
	if from != "" && to != "" && to < from {
		return invalid("to must not be before from")
	}
	return nil
}
