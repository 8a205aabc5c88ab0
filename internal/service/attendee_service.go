package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/farellandr/confpass/internal/access"
	"github.com/farellandr/confpass/internal/events"
	"github.com/farellandr/confpass/internal/logging"
	"github.com/farellandr/confpass/internal/metrics"
	"github.com/farellandr/confpass/internal/models"
	"github.com/farellandr/confpass/internal/store"
)

var (
	ErrAttendeeNotFound   = errors.New("attendee not found")
	ErrNotTransferable    = errors.New("attendee cannot be transferred")
	ErrEmailInUse         = errors.New("email already in use")
	ErrTransferIncomplete = errors.New("name and email are required for transfer")
	ErrInvalidEmail       = errors.New("transfer email is not a valid address")
	ErrInternal           = errors.New("internal error")
)

var validate = validator.New()

type Options struct {
	// DemoEnabled serves the fixed demo profile for the "demo" ref without
	// touching the store.
	DemoEnabled bool
	Policy      access.Policy
	// TransferIsolation is the isolation level of the transfer transaction.
	// Production runs serializable so two transfers racing for the same email
	// cannot both commit.
	TransferIsolation sql.IsolationLevel
}

// Patch lists the fields a caller asked to change. Nil means "not supplied".
type Patch struct {
	Name        *string
	Email       *string
	PhoneNumber *string
	Preferences *models.Preferences
	Registered  *bool
	Affiliation *string
}

// profileFields returns the columns a plain (non-transfer) update writes.
// Name and email are only ever written by a transfer.
func (p Patch) profileFields() map[string]any {
	fields := map[string]any{}
	if p.PhoneNumber != nil {
		fields["phone_number"] = *p.PhoneNumber
	}
	if p.Preferences != nil {
		fields["preferences"] = *p.Preferences
	}
	if p.Registered != nil {
		fields["registered"] = *p.Registered
	}
	if p.Affiliation != nil {
		fields["affiliation"] = *p.Affiliation
	}
	return fields
}

type AttendeeService struct {
	store     store.AttendeeStore
	publisher events.Publisher
	opts      Options
}

func NewAttendeeService(s store.AttendeeStore, publisher events.Publisher, opts Options) *AttendeeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AttendeeService{store: s, publisher: publisher, opts: opts}
}

func (s *AttendeeService) isDemo(ref string) bool {
	return s.opts.DemoEnabled && access.IsDemoRef(ref)
}

func (s *AttendeeService) GetAttendee(ctx context.Context, ref string) (*models.AttendeeView, error) {
	if s.isDemo(ref) {
		return access.DemoAttendee(), nil
	}
	return s.lookup(ctx, s.store, ref)
}

func (s *AttendeeService) lookup(ctx context.Context, st store.AttendeeStore, ref string) (*models.AttendeeView, error) {
	row, err := findOne(ctx, st, ref)
	if err != nil {
		return nil, err
	}
	return s.opts.Policy.View(*row), nil
}

// ListAttendees returns one page of attendees with their derived flags, plus
// the total matching the filter.
func (s *AttendeeService) ListAttendees(ctx context.Context, filter store.ListFilter) ([]models.AttendeeView, int64, error) {
	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list attendees: %w", ErrInternal, err)
	}

	views := make([]models.AttendeeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, *s.opts.Policy.View(row))
	}
	return views, total, nil
}

func (s *AttendeeService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func findOne(ctx context.Context, st store.AttendeeStore, ref string) (*models.Attendee, error) {
	rows, err := st.FindByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: find attendee %s: %w", ErrInternal, ref, err)
	}

	switch len(rows) {
	case 0:
		return nil, ErrAttendeeNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, fmt.Errorf("%w: multiple attendees found for ref %s", ErrInternal, ref)
	}
}

// UpdateAttendee applies patch to the attendee identified by ref. With
// transfer set, only name and email change and the ticket's transfer rules
// apply; otherwise the supplied profile fields are written unconditionally.
func (s *AttendeeService) UpdateAttendee(ctx context.Context, ref string, patch Patch, transfer bool) (*models.AttendeeView, error) {
	current, err := s.GetAttendee(ctx, ref)
	if err != nil {
		return nil, err
	}

	if s.isDemo(ref) {
		return applyToDemo(current, patch, transfer)
	}
	if transfer {
		view, err := s.transfer(ctx, current, patch)
		metrics.Transfers.WithLabelValues(transferOutcome(err)).Inc()
		return view, err
	}
	return s.updateProfile(ctx, current, patch)
}

func (s *AttendeeService) updateProfile(ctx context.Context, current *models.AttendeeView, patch Patch) (*models.AttendeeView, error) {
	fields := patch.profileFields()
	if len(fields) == 0 {
		return current, nil
	}

	affected, err := s.store.UpdateFields(ctx, current.Ref, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: update attendee %s: %w", ErrInternal, current.Ref, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: update attendee %s affected %d rows", ErrInternal, current.Ref, affected)
	}
	metrics.AttendeeUpdates.Inc()

	return s.lookup(ctx, s.store, current.Ref)
}

func (s *AttendeeService) transfer(ctx context.Context, current *models.AttendeeView, patch Patch) (*models.AttendeeView, error) {
	if !current.Transferable {
		return nil, ErrNotTransferable
	}

	name, email, err := transferTarget(patch)
	if err != nil {
		return nil, err
	}

	ref := current.Ref
	var before models.Attendee
	err = s.store.Transaction(ctx, func(tx store.AttendeeStore) error {
		row, err := findOne(ctx, tx, ref)
		if err != nil {
			return err
		}
		// Re-checked inside the transaction: a concurrent transfer may have
		// landed since the first read.
		if !s.opts.Policy.Evaluate(row.Type, row.Email, row.OriginalEmail).Transferable {
			return ErrNotTransferable
		}

		inUse, err := tx.CountByEmailExcludingRef(ctx, email, ref)
		if err != nil {
			return fmt.Errorf("%w: check email for %s: %w", ErrInternal, ref, err)
		}
		if inUse > 0 {
			return ErrEmailInUse
		}

		affected, err := tx.UpdateFields(ctx, ref, map[string]any{
			"name":  name,
			"email": email,
		})
		if err != nil {
			return fmt.Errorf("%w: transfer attendee %s: %w", ErrInternal, ref, err)
		}
		if affected != 1 {
			return fmt.Errorf("%w: transfer attendee %s affected %d rows", ErrInternal, ref, affected)
		}

		before = *row
		return nil
	}, s.transferTxOptions()...)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: transfer attendee %s: %w", ErrInternal, ref, err)
	}

	logger := logging.FromContext(ctx)
	logger.Info("ticket transferred", "ref", ref, "from", before.Email, "to", email)

	msg := events.NewTicketTransferred(ref, before.Name, before.Email, name, email, before.OriginalEmail)
	if err := s.publisher.PublishTicketTransferred(ctx, msg); err != nil {
		metrics.EventPublishFailures.Inc()
		logger.Error("publish transfer event", "ref", ref, "event_id", msg.EventID, "error", err)
	}

	return s.lookup(ctx, s.store, ref)
}

func (s *AttendeeService) transferTxOptions() []*sql.TxOptions {
	if s.opts.TransferIsolation == sql.LevelDefault {
		return nil
	}
	return []*sql.TxOptions{{Isolation: s.opts.TransferIsolation}}
}

func transferTarget(patch Patch) (string, string, error) {
	if patch.Name == nil || patch.Email == nil {
		return "", "", ErrTransferIncomplete
	}
	name := strings.TrimSpace(*patch.Name)
	email := strings.TrimSpace(*patch.Email)
	if name == "" || email == "" {
		return "", "", ErrTransferIncomplete
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return name, email, nil
}

// applyToDemo answers updates to the demo ref from a copy of the fixed
// profile. Nothing is persisted.
func applyToDemo(demo *models.AttendeeView, patch Patch, transfer bool) (*models.AttendeeView, error) {
	if transfer {
		name, email, err := transferTarget(patch)
		if err != nil {
			return nil, err
		}
		demo.Name = name
		demo.Email = email
		return demo, nil
	}

	if patch.PhoneNumber != nil {
		demo.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Preferences != nil {
		demo.Preferences = *patch.Preferences
	}
	if patch.Registered != nil {
		demo.Registered = *patch.Registered
	}
	if patch.Affiliation != nil {
		demo.Affiliation = *patch.Affiliation
	}
	return demo, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrAttendeeNotFound) ||
		errors.Is(err, ErrNotTransferable) ||
		errors.Is(err, ErrEmailInUse) ||
		errors.Is(err, ErrTransferIncomplete) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInternal)
}

func transferOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.TransferOK
	case errors.Is(err, ErrNotTransferable):
		return metrics.TransferNotTransferable
	case errors.Is(err, ErrEmailInUse):
		return metrics.TransferEmailInUse
	case errors.Is(err, ErrTransferIncomplete), errors.Is(err, ErrInvalidEmail):
		return metrics.TransferInvalid
	default:
		return metrics.TransferError
	}
}
