package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertcast/internal/alert"
	"alertcast/internal/clock"
	logx "alertcast/pkg/logx"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []alert.Event
	store  *alert.Store
	// seen records whether the alert was queryable when its event arrived.
	seen []bool
}

func (p *recordingPublisher) Publish(_ context.Context, e alert.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	if p.store != nil {
		_, ok := p.store.Get(e.Alert.ID)
		p.seen = append(p.seen, ok)
	}
	return nil
}

func newStore(t *testing.T) (*alert.Store, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	s := alert.NewStore(pub, logx.Nop())
	pub.store = s
	return s, pub
}

func orgAlert(title string) alert.NewAlert {
	return alert.NewAlert{
		Title:            title,
		Body:             "body",
		Severity:         alert.SeverityInfo,
		CreatedBy:        "admin",
		Visibility:       alert.Visibility{Kind: alert.VisibilityOrganization, Targets: []string{"ignored"}},
		ReminderInterval: 60,
	}
}

func TestStoreCreatePublishesAfterVisible(t *testing.T) {
	s, pub := newStore(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := clock.With(context.Background(), clock.Fixed(at))

	a, err := s.Create(ctx, orgAlert("disk"))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.True(t, a.Active)
	assert.True(t, a.RemindersEnabled)
	assert.Equal(t, at, a.CreatedAt)
	assert.Equal(t, at, a.StartTime)
	assert.Equal(t, alert.DeliveryInApp, a.Delivery)
	assert.Nil(t, a.Visibility.Targets)

	require.Len(t, pub.events, 1)
	assert.Equal(t, alert.EventCreated, pub.events[0].Kind)
	assert.Equal(t, []bool{true}, pub.seen)
}

func TestStoreCreateValidation(t *testing.T) {
	s, pub := newStore(t)
	ctx := context.Background()

	in := orgAlert("")
	_, err := s.Create(ctx, in)
	assert.True(t, errors.Is(err, alert.ErrEmptyTitle))
	assert.True(t, alert.IsValidation(err))

	in = orgAlert("x")
	in.Severity = "urgent"
	_, err = s.Create(ctx, in)
	assert.True(t, errors.Is(err, alert.ErrInvalidSeverity))

	in = orgAlert("x")
	in.Visibility.Kind = "galaxy"
	_, err = s.Create(ctx, in)
	assert.True(t, errors.Is(err, alert.ErrInvalidVisibility))

	in = orgAlert("x")
	in.ReminderInterval = 0
	_, err = s.Create(ctx, in)
	assert.True(t, errors.Is(err, alert.ErrInvalidInterval))

	assert.Empty(t, pub.events)
	assert.Equal(t, 0, s.Len())
}

func TestStoreCreateAcceptsEmptyTargets(t *testing.T) {
	s, _ := newStore(t)
	in := orgAlert("nobody")
	in.Visibility = alert.Visibility{Kind: alert.VisibilityTeam}
	a, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, a.Visibility.Targets)
}

func TestStoreUpdateAndArchive(t *testing.T) {
	s, pub := newStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, orgAlert("cpu"))
	require.NoError(t, err)

	title := "cpu high"
	sev := alert.SeverityCritical
	off := false
	got, ok, err := s.Update(ctx, a.ID, alert.Patch{Title: &title, Severity: &sev, RemindersEnabled: &off})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cpu high", got.Title)
	assert.Equal(t, alert.SeverityCritical, got.Severity)
	assert.False(t, got.RemindersEnabled)

	_, ok, err = s.Update(ctx, "missing", alert.Patch{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)

	bad := 0
	_, _, err = s.Update(ctx, a.ID, alert.Patch{ReminderInterval: &bad})
	assert.True(t, alert.IsValidation(err))

	assert.True(t, s.Archive(ctx, a.ID))
	assert.True(t, s.Archive(ctx, a.ID))
	assert.False(t, s.Archive(ctx, "missing"))

	stored, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.False(t, stored.Active)

	kinds := make([]alert.EventKind, 0, len(pub.events))
	for _, e := range pub.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []alert.EventKind{alert.EventCreated, alert.EventUpdated, alert.EventArchived}, kinds)
}

func TestStoreListFilters(t *testing.T) {
	s, _ := newStore(t)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := func(off time.Duration) context.Context {
		return clock.With(context.Background(), clock.Fixed(base.Add(off)))
	}

	live, err := s.Create(ctx(0), orgAlert("live"))
	require.NoError(t, err)

	past := base.Add(-time.Hour)
	in := orgAlert("expired")
	in.Severity = alert.SeverityCritical
	in.ExpiryTime = &past
	expired, err := s.Create(ctx(time.Minute), in)
	require.NoError(t, err)

	archived, err := s.Create(ctx(2*time.Minute), orgAlert("archived"))
	require.NoError(t, err)
	require.True(t, s.Archive(ctx(2*time.Minute), archived.ID))

	ids := func(as []alert.Alert) []string {
		out := make([]string, 0, len(as))
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}

	now := ctx(3 * time.Minute)
	assert.Equal(t, []string{archived.ID, expired.ID, live.ID}, ids(s.List(now, alert.Filter{})))
	assert.Equal(t, []string{live.ID}, ids(s.List(now, alert.Filter{Status: alert.StatusActive})))
	assert.Equal(t, []string{expired.ID}, ids(s.List(now, alert.Filter{Status: alert.StatusExpired})))
	assert.Equal(t, []string{archived.ID}, ids(s.List(now, alert.Filter{Status: alert.StatusArchived})))
	assert.Equal(t, []string{expired.ID}, ids(s.List(now, alert.Filter{Severity: alert.SeverityCritical})))
}

func TestStoreReadsAreSnapshots(t *testing.T) {
	s, _ := newStore(t)
	in := orgAlert("snap")
	in.Visibility = alert.Visibility{Kind: alert.VisibilityUser, Targets: []string{"u1"}}
	a, err := s.Create(context.Background(), in)
	require.NoError(t, err)

	a.Visibility.Targets[0] = "mutated"
	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"u1"}, got.Visibility.Targets)
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, alert.SeverityInfo.Rank(), alert.SeverityWarning.Rank())
	assert.Less(t, alert.SeverityWarning.Rank(), alert.SeverityCritical.Rank())
	assert.False(t, alert.Severity("nope").Valid())
}
