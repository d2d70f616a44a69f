package notification

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from Status
		cmd  Command
		to   Status
		ok   bool
	}{
		{StatusUnread, CmdRead, StatusRead, true},
		{StatusUnread, CmdSnooze, StatusSnoozed, true},
		{StatusUnread, CmdUnread, StatusUnread, true},
		{StatusRead, CmdUnread, StatusUnread, true},
		{StatusRead, CmdRead, StatusRead, true},
		{StatusRead, CmdSnooze, StatusRead, false},
		{StatusSnoozed, CmdRead, StatusRead, true},
		{StatusSnoozed, CmdUnread, StatusUnread, true},
		{StatusSnoozed, CmdSnooze, StatusSnoozed, true},
		{StatusUnread, Command("delete"), StatusUnread, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.cmd), func(t *testing.T) {
			to, ok := next(tt.from, tt.cmd)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSnoozeUntilNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	p := SnoozePolicy{Location: loc}

	// 15:30 UTC is 22:30 local; next local midnight is 17:00 UTC.
	until := p.Until(t0)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, loc), until)
	assert.True(t, until.Equal(time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC)))

	fixed := SnoozePolicy{Window: 2 * time.Hour}
	assert.Equal(t, t0.Add(2*time.Hour), fixed.Until(t0))
}

func TestSnoozeThenIsSnoozed(t *testing.T) {
	p := SnoozePolicy{Location: time.UTC}
	st, err := newState(t0).Apply(CmdSnooze, t0, p.Until(t0))
	require.NoError(t, err)

	assert.Equal(t, StatusSnoozed, st.Status)
	assert.True(t, st.IsSnoozed(t0))
	assert.False(t, st.ShouldRemind(t0, time.Minute))

	midnight := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	assert.True(t, st.IsSnoozed(midnight.Add(-time.Nanosecond)))
	assert.False(t, st.IsSnoozed(midnight))
	assert.Equal(t, StatusSnoozed, st.Status)
	assert.True(t, st.ShouldRemind(midnight, time.Minute))
}

func TestShouldRemindThrottle(t *testing.T) {
	st := newState(t0)
	interval := 5 * time.Minute
	assert.True(t, st.ShouldRemind(t0, interval))

	st.MarkReminded(t0)
	assert.False(t, st.ShouldRemind(t0, interval))
	assert.False(t, st.ShouldRemind(t0.Add(4*time.Minute), interval))
	assert.True(t, st.ShouldRemind(t0.Add(5*time.Minute), interval))

	read, err := st.Apply(CmdRead, t0, time.Time{})
	require.NoError(t, err)
	assert.False(t, read.ShouldRemind(t0.Add(time.Hour), interval))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	once, err := newState(t0).Apply(CmdRead, t0, time.Time{})
	require.NoError(t, err)
	twice, err := once.Apply(CmdRead, t0.Add(time.Minute), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, StatusRead, twice.Status)
	require.NotNil(t, twice.ReadAt)
	assert.Equal(t, t0, *twice.ReadAt)
}

func TestSnoozeFromReadIsRejected(t *testing.T) {
	read, err := newState(t0).Apply(CmdRead, t0, time.Time{})
	require.NoError(t, err)

	got, err := read.Apply(CmdSnooze, t0.Add(time.Minute), t0.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrTransitionRejected))
	assert.Equal(t, read, got)
	assert.Nil(t, got.SnoozedUntil)
	assert.Equal(t, t0, *got.ReadAt)
}

func TestUnreadClearsTimestamps(t *testing.T) {
	st, err := newState(t0).Apply(CmdSnooze, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	st, err = st.Apply(CmdUnread, t0, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnread, st.Status)
	assert.Nil(t, st.SnoozedUntil)
	assert.Nil(t, st.ReadAt)

	st, err = st.Apply(CmdRead, t0, time.Time{})
	require.NoError(t, err)
	st, err = st.Apply(CmdUnread, t0, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, st.ReadAt)
}

func TestSnoozedToReadClearsSnooze(t *testing.T) {
	st, err := newState(t0).Apply(CmdSnooze, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	st, err = st.Apply(CmdRead, t0.Add(time.Minute), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, StatusRead, st.Status)
	assert.Nil(t, st.SnoozedUntil)
	assert.Equal(t, t0.Add(time.Minute), *st.ReadAt)
}
