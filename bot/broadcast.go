package bot

import (
	"context"
	"log/slog"

	"flowbot/core/flow"
	"flowbot/core/userstore"
)

// Broadcaster fans one message out to every known user.
type Broadcaster struct {
	tx    flow.Transport
	users userstore.Store
	log   *slog.Logger
}

// NewBroadcaster wires a broadcaster over the transport and user roster.
func NewBroadcaster(tx flow.Transport, users userstore.Store, log *slog.Logger) *Broadcaster {
	return &Broadcaster{tx: tx, users: users, log: log}
}

// Broadcast sends the payload to every known user sequentially. Individual
// delivery failures are logged and skipped; the fan-out never aborts early.
func (b *Broadcaster) Broadcast(ctx context.Context, payload string) (sent, total int, err error) {
	ids, err := b.users.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, id := range ids {
		if err := b.tx.Send(ctx, id, flow.Outbound{Text: payload}); err != nil {
			b.log.Warn("broadcast delivery failed",
				slog.Int64("user_id", id),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	b.log.Info("broadcast complete",
		slog.Int("sent", sent),
		slog.Int("recipients", len(ids)),
	)
	return sent, len(ids), nil
}
