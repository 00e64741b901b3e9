package flow

import (
	"context"
	"io"
	"log/slog"
)

// Engine orchestrates step entry and exit: it resolves session positions,
// builds keyboard descriptors, runs enter hooks and delegates inbound
// messages to the active step.
type Engine struct {
	graph *Graph
	tx    Transport
	texts Texts
	log   *slog.Logger
}

// NewEngine wires an engine over a built graph. texts falls back to
// DefaultTexts when zero, log to a discarding logger when nil.
func NewEngine(graph *Graph, tx Transport, texts Texts, log *slog.Logger) *Engine {
	if texts == (Texts{}) {
		texts = DefaultTexts()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{graph: graph, tx: tx, texts: texts, log: log}
}

// Graph exposes the underlying step registry.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Texts exposes the notice set the engine was wired with.
func (e *Engine) Texts() Texts {
	return e.texts
}

// Start resets the session and moves it to the target step. A missing target
// produces a user-visible notice and is otherwise non-fatal.
func (e *Engine) Start(ctx context.Context, sess *Session, chatID int64, stepID string) error {
	step, err := e.graph.Get(stepID)
	if err != nil {
		e.log.Warn("start target missing",
			slog.String("step", stepID),
			slog.Int64("chat_id", chatID),
		)
		return e.tx.Send(ctx, chatID, Outbound{Text: e.texts.StepNotFound + ": " + stepID})
	}

	sess.Reset(e.graph.Name(), stepID)
	e.log.Info("flow start",
		slog.String("flow", e.graph.Name()),
		slog.String("step", stepID),
		slog.Int64("chat_id", chatID),
	)
	return e.enter(ctx, sess, chatID, step)
}

// enter resolves the step text and keyboard, runs the enter hook before the
// main text, and sends the text unless it resolves empty.
func (e *Engine) enter(ctx context.Context, sess *Session, chatID int64, step *Step) error {
	text := step.Text.Resolve(sess.Meta)

	out := Outbound{Text: text, Preformatted: step.Preformatted}
	if kb := step.Keyboard(); len(kb) > 0 {
		out.Keyboard = kb
	} else {
		out.ClearKeyboard = true
	}

	if step.OnEnter != nil {
		if err := step.OnEnter(ctx, chatID, sess); err != nil {
			e.log.Warn("enter hook failed",
				slog.String("step", step.ID),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
		}
	}

	if text == "" {
		return nil
	}
	return e.tx.Send(ctx, chatID, out)
}

// HandleMessage delegates an inbound message to the active step. Sessions
// outside any flow are ignored; steps without a handler produce the generic
// keyboard fallback and mutate nothing.
func (e *Engine) HandleMessage(ctx context.Context, sess *Session, in Inbound) error {
	if sess == nil || sess.StepID == "" {
		return nil
	}

	step, err := e.graph.Get(sess.StepID)
	if err == nil && step.OnMessage != nil {
		return step.OnMessage(ctx, in, sess)
	}

	e.log.Info("no handler for step",
		slog.String("step", sess.StepID),
		slog.Int64("user_id", in.UserID),
	)
	return e.tx.Send(ctx, in.ChatID, Outbound{Text: e.texts.UseButtons})
}
