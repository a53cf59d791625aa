package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type evictions struct {
	mu   sync.Mutex
	seen []string
}

func (e *evictions) record(_ context.Context, s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, s.Collection())
}

func sample() *dataset.Dataset {
	return &dataset.Dataset{Columns: []*dataset.Column{{Name: "a", Type: dataset.ColumnNumeric, Values: []dataset.Value{dataset.NewNumericValue(1)}}}}
}

func TestCreateGetDelete(t *testing.T) {
	ev := &evictions{}
	m := NewManager(time.Minute, ev.record, zaptest.NewLogger(t))

	s := m.Create(sample(), "a.xlsx", "rec-1")
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, core.DatasetID("rec-1"), got.RecordID)

	require.NoError(t, m.Delete(context.Background(), s.ID))
	assert.Equal(t, []string{s.Collection()}, ev.seen)

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(context.Background(), s.ID), core.ErrSessionNotFound)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	ev := &evictions{}
	m := NewManager(10*time.Minute, ev.record, nil)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle := m.Create(sample(), "idle.csv", "")
	busy := m.Create(sample(), "busy.csv", "")

	now = now.Add(8 * time.Minute)
	_, err := m.Get(busy.ID)
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, m.Sweep(context.Background()))
	assert.Equal(t, []string{idle.Collection()}, ev.seen)

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(time.Minute, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestReadAndMutate(t *testing.T) {
	m := NewManager(time.Minute, nil, nil)
	s := m.Create(sample(), "a.xlsx", "")

	require.NoError(t, s.Mutate(func(ds *dataset.Dataset) error {
		ds.Columns[0].Name = "renamed"
		return nil
	}))
	var name string
	require.NoError(t, s.Read(func(ds *dataset.Dataset) error {
		name = ds.Columns[0].Name
		return nil
	}))
	assert.Equal(t, "renamed", name)
}

func TestCloseEvictsAll(t *testing.T) {
	ev := &evictions{}
	m := NewManager(time.Minute, ev.record, nil)
	m.Create(sample(), "a", "")
	m.Create(sample(), "b", "")
	m.Close(context.Background())
	assert.Zero(t, m.Len())
	assert.Len(t, ev.seen, 2)
}

func TestMutateAfterDeleteIsRejected(t *testing.T) {
	m := NewManager(time.Minute, nil, nil)
	s := m.Create(sample(), "a.csv", "")

	held, err := m.Get(s.ID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(context.Background(), s.ID))

	ran := false
	err = held.Mutate(func(*dataset.Dataset) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.False(t, ran)
}
