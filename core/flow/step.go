package flow

import "context"

// Meta holds free-form per-session data available to templated step text.
type Meta map[string]any

// Text is the content of a step: either a fixed string or a function of the
// session meta, resolved on every step entry.
type Text struct {
	static string
	render func(Meta) string
}

// Static returns a Text that always resolves to s.
func Static(s string) Text {
	return Text{static: s}
}

// Templated returns a Text resolved against the current session meta.
func Templated(render func(Meta) string) Text {
	return Text{render: render}
}

// Resolve produces the final string for the given meta.
func (t Text) Resolve(meta Meta) string {
	if t.render != nil {
		return t.render(meta)
	}
	return t.static
}

// ActionKind enumerates the declared action types attached to answers.
type ActionKind int

const (
	// ActionUnknown marks an action whose kind was not recognised.
	ActionUnknown ActionKind = iota
	// ActionGoto transitions the session to the target step.
	ActionGoto
	// ActionRaw sends the literal payload text.
	ActionRaw
	// ActionScreenshot sends the fixed screenshot attachments, then
	// optionally transitions to the target step.
	ActionScreenshot
)

// String returns the script-facing name of the kind.
func (k ActionKind) String() string {
	switch k {
	case ActionGoto:
		return "goto"
	case ActionRaw:
		return "raw"
	case ActionScreenshot:
		return "screenshot"
	}
	return "unknown"
}

// Action is the declarative instruction attached to an answer label.
type Action struct {
	Kind    ActionKind
	Target  string
	Payload string
}

// Answer pairs a keyboard label with its action.
type Answer struct {
	Label  string
	Action Action
}

// EnterHook runs when a session enters a step, before the step text is sent.
// It may emit outbound sends of its own.
type EnterHook func(ctx context.Context, chatID int64, sess *Session) error

// Handler processes an inbound message while the session sits at a step.
type Handler func(ctx context.Context, in Inbound, sess *Session) error

// Step is one node of a flow.
type Step struct {
	ID           string
	Text         Text
	Rows         [][]Answer
	OnEnter      EnterHook
	OnMessage    Handler
	Preformatted bool
}

// Keyboard returns the reply keyboard layout: one row of labels per answer
// row. Nil when the step declares no answers.
func (s *Step) Keyboard() [][]string {
	if len(s.Rows) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		labels := make([]string, 0, len(row))
		for _, a := range row {
			labels = append(labels, a.Label)
		}
		rows = append(rows, labels)
	}
	return rows
}

// Answers flattens the answer rows in declaration order.
func (s *Step) Answers() []Answer {
	var out []Answer
	for _, row := range s.Rows {
		out = append(out, row...)
	}
	return out
}
