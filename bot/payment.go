package bot

import (
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"flowbot/core/flow"
	tg "flowbot/core/telegram"
	"flowbot/core/telegram/callbacks"
	tghelpers "flowbot/core/telegram/helpers"
)

// RegisterPaymentCallbacks wires the admin decision buttons to the
// interpreter. Malformed payloads are acknowledged and dropped; decisions
// from a non-admin sender get a toast and no side effects.
func RegisterPaymentCallbacks(reg *tg.Registry, interp *flow.Interpreter, log *slog.Logger) error {
	handler := func(c tele.Context) error {
		payload := callbacks.CallbackPayload(c)
		verb, userID, orderTag, ok := flow.ParseDecision(payload)
		if !ok {
			log.Warn("malformed decision payload",
				slog.String("data", payload),
			)
			return nil
		}

		ctx := tghelpers.BuildContext(c)
		actorID := int64(0)
		if c.Sender() != nil {
			actorID = c.Sender().ID
		}

		var err error
		switch verb {
		case flow.VerbConfirm:
			err = interp.Confirm(ctx, actorID, userID, orderTag)
		case flow.VerbDecline:
			err = interp.Decline(ctx, actorID, userID, orderTag)
		default:
			log.Warn("unknown decision verb",
				slog.String("verb", verb),
			)
			return nil
		}

		if errors.Is(err, flow.ErrNotAuthorized) {
			return c.Respond(&tele.CallbackResponse{Text: "Not allowed."})
		}
		return err
	}

	return reg.RegisterCallback(flow.DecisionKey, handler)
}
