package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farellandr/confpass/internal/access"
	"github.com/farellandr/confpass/internal/events"
	"github.com/farellandr/confpass/internal/models"
	"github.com/farellandr/confpass/internal/store"
	"github.com/farellandr/confpass/internal/store/storetest"
)

const (
	refPress    = "DEMO01"
	refConfOnly = "DEMO02"
)

type recordingPublisher struct {
	sent []events.TicketTransferred
	err  error
}

func (p *recordingPublisher) PublishTicketTransferred(_ context.Context, msg events.TicketTransferred) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// countingStore fails the test if anything reaches the database.
type countingStore struct {
	store.AttendeeStore
	calls int
}

func (c *countingStore) FindByRef(ctx context.Context, ref string) ([]models.Attendee, error) {
	c.calls++
	return c.AttendeeStore.FindByRef(ctx, ref)
}

func (c *countingStore) UpdateFields(ctx context.Context, ref string, fields map[string]any) (int64, error) {
	c.calls++
	return c.AttendeeStore.UpdateFields(ctx, ref, fields)
}

func setup(t *testing.T, opts Options) (*AttendeeService, *gorm.DB, *recordingPublisher) {
	db := storetest.NewDB(t)
	storetest.Seed(t, db,
		models.Attendee{
			Ref: refPress, Name: "Demo Press User", Email: "demopress@euroconf.eu",
			OriginalEmail: "demopress@euroconf.eu", PhoneNumber: "1234567890", Type: access.TypePress,
		},
		models.Attendee{
			Ref: refConfOnly, Name: "Demo Conf User", Email: "democonf@euroconf.eu",
			OriginalEmail: "democonf@euroconf.eu", PhoneNumber: "1234567890", Type: access.TypeConfOnly,
		},
	)
	pub := &recordingPublisher{}
	return NewAttendeeService(store.NewAttendeeStore(db), pub, opts), db, pub
}

func ptr[T any](v T) *T { return &v }

func TestGetAttendee(t *testing.T) {
	svc, _, _ := setup(t, Options{})
	ctx := context.Background()

	press, err := svc.GetAttendee(ctx, refPress)
	require.NoError(t, err)
	assert.Equal(t, "Demo Press User", press.Name)
	assert.True(t, press.AccessConf)
	assert.True(t, press.AccessGala)
	assert.False(t, press.Transferable)

	confOnly, err := svc.GetAttendee(ctx, refConfOnly)
	require.NoError(t, err)
	assert.True(t, confOnly.AccessConf)
	assert.False(t, confOnly.AccessGala)
	assert.True(t, confOnly.Transferable)

	_, err = svc.GetAttendee(ctx, "NON_EXISTENT_REF")
	assert.ErrorIs(t, err, ErrAttendeeNotFound)
}

func TestGetAttendee_DemoNeverReachesStore(t *testing.T) {
	db := storetest.NewDB(t)
	counting := &countingStore{AttendeeStore: store.NewAttendeeStore(db)}
	svc := NewAttendeeService(counting, nil, Options{DemoEnabled: true})
	ctx := context.Background()

	for _, ref := range []string{"demo", "DEMO", "Demo"} {
		view, err := svc.GetAttendee(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, access.DemoRef, view.Ref)
		assert.True(t, view.AccessConf)
		assert.True(t, view.AccessGala)
		assert.True(t, view.Transferable)
	}

	_, err := svc.UpdateAttendee(ctx, "demo", Patch{Name: ptr("New Holder"), Email: ptr("new@example.com")}, true)
	require.NoError(t, err)
	_, err = svc.UpdateAttendee(ctx, "demo", Patch{Registered: ptr(true)}, false)
	require.NoError(t, err)

	assert.Zero(t, counting.calls)
}

func TestGetAttendee_DemoDisabled(t *testing.T) {
	svc, _, _ := setup(t, Options{})

	_, err := svc.GetAttendee(context.Background(), "demo")
	assert.ErrorIs(t, err, ErrAttendeeNotFound)
}

type duplicateStore struct{ store.AttendeeStore }

func (duplicateStore) FindByRef(_ context.Context, ref string) ([]models.Attendee, error) {
	return []models.Attendee{{Ref: ref}, {Ref: ref}}, nil
}

func TestGetAttendee_DuplicateRefIsInternal(t *testing.T) {
	svc := NewAttendeeService(duplicateStore{}, nil, Options{})

	_, err := svc.GetAttendee(context.Background(), "DUP001")
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrAttendeeNotFound)
}

type brokenStore struct{ store.AttendeeStore }

func (brokenStore) FindByRef(context.Context, string) ([]models.Attendee, error) {
	return nil, errors.New("connection refused")
}

func TestGetAttendee_StoreFailureIsInternal(t *testing.T) {
	svc := NewAttendeeService(brokenStore{}, nil, Options{})

	_, err := svc.GetAttendee(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestTransfer_NotTransferable(t *testing.T) {
	svc, db, pub := setup(t, Options{})
	before := storetest.Fetch(t, db, refPress)

	_, err := svc.UpdateAttendee(context.Background(), refPress, Patch{
		Name:  ptr("Demo User 2"),
		Email: ptr("updatedemail@euroconf.eu"),
	}, true)

	assert.ErrorIs(t, err, ErrNotTransferable)
	assert.Equal(t, before, storetest.Fetch(t, db, refPress))
	assert.Empty(t, pub.sent)
}

func TestTransfer_EmailInUse(t *testing.T) {
	svc, db, _ := setup(t, Options{})
	pressBefore := storetest.Fetch(t, db, refPress)
	confBefore := storetest.Fetch(t, db, refConfOnly)

	_, err := svc.UpdateAttendee(context.Background(), refConfOnly, Patch{
		Name:  ptr("Demo User 2"),
		Email: ptr("demopress@euroconf.eu"),
	}, true)

	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, pressBefore, storetest.Fetch(t, db, refPress))
	assert.Equal(t, confBefore, storetest.Fetch(t, db, refConfOnly))
}

func TestTransfer_Incomplete(t *testing.T) {
	svc, _, _ := setup(t, Options{})
	ctx := context.Background()

	_, err := svc.UpdateAttendee(ctx, refConfOnly, Patch{Name: ptr("Only Name")}, true)
	assert.ErrorIs(t, err, ErrTransferIncomplete)

	_, err = svc.UpdateAttendee(ctx, refConfOnly, Patch{Name: ptr(" "), Email: ptr("x@example.com")}, true)
	assert.ErrorIs(t, err, ErrTransferIncomplete)
}

func TestTransfer_InvalidEmail(t *testing.T) {
	svc, db, pub := setup(t, Options{})
	ctx := context.Background()

	_, err := svc.UpdateAttendee(ctx, refConfOnly, Patch{Name: ptr("New"), Email: ptr("bad-address")}, true)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, "democonf@euroconf.eu", storetest.Fetch(t, db, refConfOnly).Email)
	assert.Empty(t, pub.sent)

	// The transfer rules are checked before the address format.
	_, err = svc.UpdateAttendee(ctx, refPress, Patch{Name: ptr("New"), Email: ptr("bad-address")}, true)
	assert.ErrorIs(t, err, ErrNotTransferable)
}

func TestUpdateProfile_IgnoresEmail(t *testing.T) {
	svc, db, _ := setup(t, Options{})

	view, err := svc.UpdateAttendee(context.Background(), refConfOnly, Patch{Email: ptr(""), Registered: ptr(true)}, false)
	require.NoError(t, err)
	assert.True(t, view.Registered)
	assert.Equal(t, "democonf@euroconf.eu", storetest.Fetch(t, db, refConfOnly).Email)
}

func TestTransfer_Success(t *testing.T) {
	svc, db, pub := setup(t, Options{})
	ctx := context.Background()

	view, err := svc.UpdateAttendee(ctx, refConfOnly, Patch{
		Name:        ptr("Demo User 2"),
		Email:       ptr("newemail@euroconf.eu"),
		PhoneNumber: ptr("999"),
	}, true)
	require.NoError(t, err)

	assert.Equal(t, refConfOnly, view.Ref)
	assert.Equal(t, "Demo User 2", view.Name)
	assert.Equal(t, "newemail@euroconf.eu", view.Email)
	assert.Equal(t, "1234567890", view.PhoneNumber, "transfer must not touch profile fields")
	assert.False(t, view.Transferable)

	row := storetest.Fetch(t, db, refConfOnly)
	assert.Equal(t, "democonf@euroconf.eu", row.OriginalEmail)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, refConfOnly, pub.sent[0].Ref)
	assert.Equal(t, "democonf@euroconf.eu", pub.sent[0].PreviousEmail)
	assert.Equal(t, "newemail@euroconf.eu", pub.sent[0].Email)

	// One-time: a second transfer is refused.
	_, err = svc.UpdateAttendee(ctx, refConfOnly, Patch{
		Name:  ptr("Demo User 3"),
		Email: ptr("third@euroconf.eu"),
	}, true)
	assert.ErrorIs(t, err, ErrNotTransferable)
}

func TestTransfer_PublishFailureDoesNotFail(t *testing.T) {
	svc, _, pub := setup(t, Options{})
	pub.err = errors.New("broker down")

	view, err := svc.UpdateAttendee(context.Background(), refConfOnly, Patch{
		Name:  ptr("Demo User 2"),
		Email: ptr("newemail@euroconf.eu"),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "newemail@euroconf.eu", view.Email)
}

func TestTransfer_AllTransferableOverride(t *testing.T) {
	svc, _, _ := setup(t, Options{Policy: access.Policy{AllTransferable: true}})

	view, err := svc.UpdateAttendee(context.Background(), refPress, Patch{
		Name:  ptr("Press Two"),
		Email: ptr("press2@euroconf.eu"),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "press2@euroconf.eu", view.Email)
	assert.True(t, view.Transferable)
}

func TestUpdateProfile(t *testing.T) {
	svc, db, _ := setup(t, Options{})
	prefs := models.Preferences(`{"test":"Foo"}`)

	view, err := svc.UpdateAttendee(context.Background(), refPress, Patch{
		Registered:  ptr(true),
		Preferences: &prefs,
		PhoneNumber: ptr("1234"),
		Affiliation: ptr("Test Affiliation"),
		Name:        ptr("ignored without transfer"),
	}, false)
	require.NoError(t, err)

	assert.True(t, view.Registered)
	assert.Equal(t, "1234", view.PhoneNumber)
	assert.Equal(t, "Test Affiliation", view.Affiliation)
	assert.JSONEq(t, `{"test":"Foo"}`, string(view.Preferences))
	assert.Equal(t, "Demo Press User", view.Name)

	row := storetest.Fetch(t, db, refPress)
	assert.Equal(t, "demopress@euroconf.eu", row.Email)
}

func TestUpdateProfile_OnlySuppliedFields(t *testing.T) {
	svc, db, _ := setup(t, Options{})
	ctx := context.Background()

	_, err := svc.UpdateAttendee(ctx, refConfOnly, Patch{Affiliation: ptr("ACME")}, false)
	require.NoError(t, err)

	_, err = svc.UpdateAttendee(ctx, refConfOnly, Patch{Registered: ptr(true)}, false)
	require.NoError(t, err)

	row := storetest.Fetch(t, db, refConfOnly)
	assert.Equal(t, "ACME", row.Affiliation)
	assert.True(t, row.Registered)
	assert.Equal(t, "1234567890", row.PhoneNumber)
}

func TestUpdateProfile_NoRuleGate(t *testing.T) {
	// Profile edits are allowed even after a ticket has been transferred.
	svc, db, _ := setup(t, Options{})
	require.NoError(t, db.Model(&models.Attendee{}).Where("ref = ?", refConfOnly).
		Update("email", "moved@euroconf.eu").Error)

	view, err := svc.UpdateAttendee(context.Background(), refConfOnly, Patch{PhoneNumber: ptr("42")}, false)
	require.NoError(t, err)
	assert.Equal(t, "42", view.PhoneNumber)
	assert.False(t, view.Transferable)
}

func TestUpdateProfile_EmptyPatch(t *testing.T) {
	svc, _, _ := setup(t, Options{})

	view, err := svc.UpdateAttendee(context.Background(), refPress, Patch{}, false)
	require.NoError(t, err)
	assert.Equal(t, refPress, view.Ref)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := setup(t, Options{})

	_, err := svc.UpdateAttendee(context.Background(), "NOPE00", Patch{Registered: ptr(true)}, false)
	assert.ErrorIs(t, err, ErrAttendeeNotFound)

	_, err = svc.UpdateAttendee(context.Background(), "NOPE00", Patch{Name: ptr("a"), Email: ptr("b@c.d")}, true)
	assert.ErrorIs(t, err, ErrAttendeeNotFound)
}

type zeroUpdateStore struct{ store.AttendeeStore }

func (zeroUpdateStore) UpdateFields(context.Context, string, map[string]any) (int64, error) {
	return 0, nil
}

func TestUpdateProfile_ZeroRowsIsInternal(t *testing.T) {
	db := storetest.NewDB(t)
	storetest.Seed(t, db, models.Attendee{Ref: "ABC123", Email: "a@example.com", OriginalEmail: "a@example.com"})
	svc := NewAttendeeService(zeroUpdateStore{store.NewAttendeeStore(db)}, nil, Options{})

	_, err := svc.UpdateAttendee(context.Background(), "ABC123", Patch{Registered: ptr(true)}, false)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestTransferOutcome(t *testing.T) {
	assert.Equal(t, "ok", transferOutcome(nil))
	assert.Equal(t, "not_transferable", transferOutcome(ErrNotTransferable))
	assert.Equal(t, "email_in_use", transferOutcome(ErrEmailInUse))
	assert.Equal(t, "invalid", transferOutcome(ErrTransferIncomplete))
	assert.Equal(t, "invalid", transferOutcome(ErrInvalidEmail))
	assert.Equal(t, "error", transferOutcome(ErrInternal))
}

func TestListAttendees(t *testing.T) {
	svc, _, _ := setup(t, Options{})
	ctx := context.Background()

	views, total, err := svc.ListAttendees(ctx, store.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, views, 2)
	assert.Equal(t, refPress, views[0].Ref)
	assert.True(t, views[0].AccessGala)
	assert.True(t, views[1].Transferable)

	views, total, err = svc.ListAttendees(ctx, store.ListFilter{Type: access.TypeConfOnly, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, refConfOnly, views[0].Ref)
}

func TestPing(t *testing.T) {
	svc, _, _ := setup(t, Options{})
	assert.NoError(t, svc.Ping(context.Background()))
}
