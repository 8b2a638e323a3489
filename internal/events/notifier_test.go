package events_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/domain"
	"keyrelay/internal/events"
)

type recorder struct {
	got []domain.PoolEvent
	err error
}

func (r *recorder) Notify(_ context.Context, ev domain.PoolEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestLogNotifierWritesFields(t *testing.T) {
	var buf bytes.Buffer
	n := events.NewLogNotifier(log.NewLogfmtLogger(&buf))

	ev := domain.PoolEvent{Kind: domain.PoolLow, Address: domain.Address{User: "alice", Device: 2}, Remaining: 3}
	require.NoError(t, n.Notify(context.Background(), ev))

	out := buf.String()
	assert.Contains(t, out, "event=low")
	assert.Contains(t, out, "user=alice")
	assert.Contains(t, out, "device=2")
	assert.Contains(t, out, "remaining=3")
	assert.Contains(t, out, "level=warn")
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{}, &recorder{err: boom}
	m := events.Multi{a, b}

	ev := domain.PoolEvent{Kind: domain.PoolExhausted}
	err := m.Notify(context.Background(), ev)
	require.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}
