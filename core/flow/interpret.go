package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrNotAuthorized indicates a decision attempt by someone other than the
// configured admin.
var ErrNotAuthorized = errors.New("flow: not authorized")

// InterpreterOptions configure an Interpreter.
type InterpreterOptions struct {
	Engine    *Engine
	Transport Transport

	// AdminID is the single externally configured admin identity; zero means
	// no admin is available for receipt review.
	AdminID int64
	// Trigger is the payment-intent trigger word, compared against the
	// normalized message text. Empty disables the payment sub-protocol.
	Trigger string
	// Deliverable is the asset sent to the user on a confirmed payment.
	Deliverable string
	// TerminalStep names the step whose text accompanies the deliverable.
	TerminalStep string
	// Screenshots are the fixed attachments of the screenshot action, sent
	// independently so one missing file does not block the other.
	Screenshots []string

	Texts Texts
	// Clock supplies the time base for order tags; defaults to time.Now.
	Clock func() time.Time
	Log   *slog.Logger
}

// Interpreter executes resolved actions, mutating the session and invoking
// outbound sends. One interpreter serves all steps of a flow; per-step answer
// maps are bound via Bind.
type Interpreter struct {
	engine       *Engine
	tx           Transport
	admin        int64
	trigger      string
	deliverable  string
	terminalStep string
	screenshots  []string
	texts        Texts
	clock        func() time.Time
	log          *slog.Logger
}

// NewInterpreter builds an interpreter from options, filling defaults.
func NewInterpreter(opts InterpreterOptions) *Interpreter {
	if opts.Texts == (Texts{}) {
		opts.Texts = DefaultTexts()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interpreter{
		engine:       opts.Engine,
		tx:           opts.Transport,
		admin:        opts.AdminID,
		trigger:      Normalize(opts.Trigger),
		deliverable:  opts.Deliverable,
		terminalStep: opts.TerminalStep,
		screenshots:  opts.Screenshots,
		texts:        opts.Texts,
		clock:        opts.Clock,
		log:          opts.Log,
	}
}

// boundHandler holds the answer index of a single step. Building it up front
// keeps step handlers free of per-invocation closure state.
type boundHandler struct {
	it    *Interpreter
	index *AnswerIndex
	step  string
}

func (h *boundHandler) handle(ctx context.Context, in Inbound, sess *Session) error {
	return h.it.dispatch(ctx, in, sess, h.index, h.step)
}

// Bind produces the message handler for a step declaring the given answers.
func (it *Interpreter) Bind(stepID string, answers []Answer) Handler {
	h := &boundHandler{
		it:    it,
		index: BuildIndex(answers, it.log),
		step:  stepID,
	}
	return h.handle
}

func (it *Interpreter) dispatch(ctx context.Context, in Inbound, sess *Session, index *AnswerIndex, stepID string) error {
	// Receipt submission takes priority over label matching.
	if in.HasAttachment && sess.PendingPayment != nil {
		return it.submitReceipt(ctx, in, sess)
	}

	norm := Normalize(in.Text)
	ans, ok := index.Match(in.Text)
	if !ok {
		it.log.Info("unmatched reply",
			slog.Int64("user_id", in.UserID),
			slog.String("step", stepID),
			slog.String("text", clip(in.Text, 200)),
			slog.String("normalized", clip(norm, 200)),
			slog.String("labels", strings.Join(index.Labels(), ", ")),
		)
		return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.UseButtons})
	}

	if it.trigger != "" && strings.HasPrefix(norm, it.trigger) {
		return it.markPending(ctx, in, sess, norm)
	}

	switch ans.Action.Kind {
	case ActionGoto:
		return it.engine.Start(ctx, sess, in.ChatID, ans.Action.Target)
	case ActionScreenshot:
		for _, name := range it.screenshots {
			if err := it.tx.Send(ctx, in.ChatID, Outbound{Photo: name}); err != nil && !errors.Is(err, ErrMissingAsset) {
				it.log.Warn("screenshot send failed",
					slog.String("photo", name),
					slog.Int64("chat_id", in.ChatID),
					slog.String("err", err.Error()),
				)
			}
		}
		if ans.Action.Target != "" {
			return it.engine.Start(ctx, sess, in.ChatID, ans.Action.Target)
		}
		return nil
	case ActionRaw:
		return it.tx.Send(ctx, in.ChatID, Outbound{Text: ans.Action.Payload})
	case ActionUnknown:
		return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.UnknownAction})
	}
	return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.UnknownAction})
}

// markPending records the payment intent under a time-derived order tag,
// clears the reply keyboard and asks for the receipt. No further dispatch
// happens this turn.
func (it *Interpreter) markPending(ctx context.Context, in Inbound, sess *Session, method string) error {
	tag := strconv.FormatInt(it.clock().Unix(), 10)
	sess.PendingPayment = &PendingPayment{OrderTag: tag, Method: method}
	it.log.Info("payment pending",
		slog.Int64("user_id", in.UserID),
		slog.String("order_tag", tag),
		slog.String("method", method),
	)
	return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.SendReceipt, ClearKeyboard: true})
}

// submitReceipt forwards the attachment to the admin with decision controls.
// The pending marker is cleared regardless of forward success.
func (it *Interpreter) submitReceipt(ctx context.Context, in Inbound, sess *Session) error {
	pending := sess.PendingPayment
	sess.PendingPayment = nil

	if it.admin == 0 {
		return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.AdminMissing})
	}

	if err := it.forwardReceipt(ctx, in, pending); err != nil {
		it.log.Error("receipt forward failed",
			slog.Int64("user_id", in.UserID),
			slog.String("order_tag", pending.OrderTag),
			slog.String("err", err.Error()),
		)
		return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.ReceiptFailed})
	}
	return it.tx.Send(ctx, in.ChatID, Outbound{Text: it.texts.ReceiptSent})
}

func (it *Interpreter) forwardReceipt(ctx context.Context, in Inbound, pending *PendingPayment) error {
	if err := it.tx.Forward(ctx, it.admin, in.ChatID, in.MessageID); err != nil {
		return err
	}
	notice := fmt.Sprintf(it.texts.PaymentNotice, in.UserID, pending.OrderTag, pending.Method)
	return it.tx.Send(ctx, it.admin, Outbound{
		Text: notice,
		Controls: []InlineControl{
			{Label: it.texts.ConfirmButton, Key: DecisionKey, Data: EncodeDecision(VerbConfirm, in.UserID, pending.OrderTag)},
			{Label: it.texts.DeclineButton, Key: DecisionKey, Data: EncodeDecision(VerbDecline, in.UserID, pending.OrderTag)},
		},
	})
}

// Confirm executes the admin confirm decision: deliver the result document,
// send the terminal-step text and notify the admin. A missing deliverable is
// reported to the admin as a distinct notice instead of silently dropped.
func (it *Interpreter) Confirm(ctx context.Context, actorID, userID int64, orderTag string) error {
	if actorID != it.admin {
		return ErrNotAuthorized
	}

	if it.deliverable != "" {
		if err := it.tx.Send(ctx, userID, Outbound{Document: it.deliverable}); err != nil {
			if errors.Is(err, ErrMissingAsset) {
				if nerr := it.tx.Send(ctx, it.admin, Outbound{Text: it.texts.DeliverableMissing}); nerr != nil {
					it.log.Error("deliverable notice failed", slog.String("err", nerr.Error()))
				}
			} else {
				it.log.Error("deliverable send failed",
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	if step, err := it.engine.Graph().Get(it.terminalStep); err == nil {
		if text := step.Text.Resolve(Meta{}); text != "" {
			// the user may have blocked the bot; not fatal to the decision
			if err := it.tx.Send(ctx, userID, Outbound{Text: text, Preformatted: step.Preformatted}); err != nil {
				it.log.Warn("terminal text send failed",
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	return it.tx.Send(ctx, it.admin, Outbound{Text: fmt.Sprintf(it.texts.PaymentConfirmed, userID, orderTag)})
}

// Decline executes the admin decline decision: notify the requesting user
// and report completion to the admin.
func (it *Interpreter) Decline(ctx context.Context, actorID, userID int64, orderTag string) error {
	if actorID != it.admin {
		return ErrNotAuthorized
	}

	if err := it.tx.Send(ctx, userID, Outbound{Text: it.texts.PaymentDeclinedUser}); err != nil {
		it.log.Warn("decline notice failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return it.tx.Send(ctx, it.admin, Outbound{Text: fmt.Sprintf(it.texts.PaymentDeclined, userID, orderTag)})
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
