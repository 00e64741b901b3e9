package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"flowbot/core/flow"
)

type rosterStub struct {
	ids []int64
	err error
}

func (r *rosterStub) Add(_ context.Context, _ int64) error { return nil }

func (r *rosterStub) List(_ context.Context) ([]int64, error) { return r.ids, r.err }

type flakyTransport struct {
	recordingTransport
	failFor map[int64]bool
}

func (f *flakyTransport) Send(ctx context.Context, chatID int64, out flow.Outbound) error {
	if f.failFor[chatID] {
		return errors.New("blocked")
	}
	return f.recordingTransport.Send(ctx, chatID, out)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcastReachesEveryUser(t *testing.T) {
	tx := &recordingTransport{}
	b := NewBroadcaster(tx, &rosterStub{ids: []int64{1, 2, 3}}, discardLogger())

	sent, total, err := b.Broadcast(context.Background(), "hello all")
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Equal(t, 3, total)
	require.Equal(t, []int64{1, 2, 3}, tx.chats)
	for _, out := range tx.sends {
		require.Equal(t, "hello all", out.Text)
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	tx := &flakyTransport{failFor: map[int64]bool{2: true, 4: true}}
	b := NewBroadcaster(tx, &rosterStub{ids: []int64{1, 2, 3, 4, 5}}, discardLogger())

	sent, total, err := b.Broadcast(context.Background(), "ping")
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Equal(t, 5, total)
	require.Equal(t, []int64{1, 3, 5}, tx.chats)
}

func TestBroadcastListFailure(t *testing.T) {
	b := NewBroadcaster(&recordingTransport{}, &rosterStub{err: errors.New("io fail")}, discardLogger())

	_, _, err := b.Broadcast(context.Background(), "x")
	require.Error(t, err)
}
