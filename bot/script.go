package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"flowbot/core/flow"
)

// ScriptAction declares what pressing an answer button does.
type ScriptAction struct {
	Kind    string `yaml:"kind"`
	Target  string `yaml:"target"`
	Payload string `yaml:"payload"`
}

// ScriptAnswer is one keyboard button of a step.
type ScriptAnswer struct {
	Label  string       `yaml:"label"`
	Action ScriptAction `yaml:"action"`
}

// ScriptStep is one scripted conversation step. Text may be given either as
// a single string or as lines joined with newlines. Document names an asset
// sent on entry; a missing file is skipped silently.
type ScriptStep struct {
	ID           string         `yaml:"id"`
	Text         string         `yaml:"text"`
	Lines        []string       `yaml:"lines"`
	Answers      []ScriptAnswer `yaml:"answers"`
	Document     string         `yaml:"document"`
	Preformatted bool           `yaml:"preformatted"`
}

// Script is the full conversation definition loaded from YAML.
type Script struct {
	Flow           string            `yaml:"flow"`
	Entry          string            `yaml:"entry"`
	PaymentTrigger string            `yaml:"payment_trigger"`
	Deliverable    string            `yaml:"deliverable"`
	TerminalStep   string            `yaml:"terminal_step"`
	Screenshots    []string          `yaml:"screenshots"`
	Steps          []ScriptStep      `yaml:"steps"`
	Texts          map[string]string `yaml:"texts"`
}

// LoadScript parses and validates a conversation script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if strings.TrimSpace(s.Flow) == "" {
		s.Flow = "main"
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script declares no steps")
	}
	if strings.TrimSpace(s.Entry) == "" {
		s.Entry = s.Steps[0].ID
	}
	for i, st := range s.Steps {
		if strings.TrimSpace(st.ID) == "" {
			return nil, fmt.Errorf("step %d has no id", i)
		}
	}
	return &s, nil
}

// TextSet merges script-level overrides over the built-in notice set.
func (s *Script) TextSet() flow.Texts {
	t := flow.DefaultTexts()
	for key, val := range s.Texts {
		switch key {
		case "step_not_found":
			t.StepNotFound = val
		case "use_buttons":
			t.UseButtons = val
		case "unknown_action":
			t.UnknownAction = val
		case "send_receipt":
			t.SendReceipt = val
		case "receipt_sent":
			t.ReceiptSent = val
		case "receipt_failed":
			t.ReceiptFailed = val
		case "admin_missing":
			t.AdminMissing = val
		case "payment_notice":
			t.PaymentNotice = val
		case "confirm_button":
			t.ConfirmButton = val
		case "decline_button":
			t.DeclineButton = val
		case "payment_confirmed":
			t.PaymentConfirmed = val
		case "payment_declined_user":
			t.PaymentDeclinedUser = val
		case "payment_declined":
			t.PaymentDeclined = val
		case "deliverable_missing":
			t.DeliverableMissing = val
		}
	}
	return t
}

// Text returns a bot-level script text by key, or the fallback.
func (s *Script) Text(key, fallback string) string {
	if v, ok := s.Texts[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (st *ScriptStep) text() string {
	if len(st.Lines) > 0 {
		return strings.Join(st.Lines, "\n")
	}
	return st.Text
}

func parseActionKind(s string) flow.ActionKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "goto":
		return flow.ActionGoto
	case "raw":
		return flow.ActionRaw
	case "screenshot":
		return flow.ActionScreenshot
	default:
		return flow.ActionUnknown
	}
}

// BuildOptions parameterize flow assembly from a script.
type BuildOptions struct {
	AdminID int64
	// Clock feeds order-tag generation; nil means wall clock.
	Clock func() time.Time
	Log   *slog.Logger
}

// BuildFlow assembles the step graph, engine and interpreter from a script.
// The returned engine and interpreter share the transport and text set.
func BuildFlow(s *Script, tx flow.Transport, opts BuildOptions) (*flow.Engine, *flow.Interpreter, error) {
	log := opts.Log
	texts := s.TextSet()
	graph := flow.NewGraph(s.Flow)

	for _, st := range s.Steps {
		step := &flow.Step{
			ID:           st.ID,
			Text:         flow.Static(st.text()),
			Preformatted: st.Preformatted,
		}
		for _, a := range st.Answers {
			step.Rows = append(step.Rows, []flow.Answer{{
				Label: a.Label,
				Action: flow.Action{
					Kind:    parseActionKind(a.Action.Kind),
					Target:  a.Action.Target,
					Payload: a.Action.Payload,
				},
			}})
		}
		if doc := st.Document; doc != "" {
			step.OnEnter = documentHook(tx, doc, log)
		}
		graph.Register(step)
	}

	engine := flow.NewEngine(graph, tx, texts, log)
	interp := flow.NewInterpreter(flow.InterpreterOptions{
		Engine:       engine,
		Transport:    tx,
		AdminID:      opts.AdminID,
		Trigger:      s.PaymentTrigger,
		Deliverable:  s.Deliverable,
		TerminalStep: s.TerminalStep,
		Screenshots:  s.Screenshots,
		Texts:        texts,
		Clock:        opts.Clock,
		Log:          log,
	})

	for _, step := range graph.Steps() {
		step.OnMessage = interp.Bind(step.ID, step.Answers())
	}

	if err := graph.Validate(log); err != nil {
		return nil, nil, fmt.Errorf("script validation failed: %w", err)
	}
	return engine, interp, nil
}

// documentHook sends a step attachment on entry. A missing asset file is
// skipped so the step text still goes out.
func documentHook(tx flow.Transport, doc string, log *slog.Logger) flow.EnterHook {
	return func(ctx context.Context, chatID int64, _ *flow.Session) error {
		err := tx.Send(ctx, chatID, flow.Outbound{Document: doc})
		if errors.Is(err, flow.ErrMissingAsset) {
			if log != nil {
				log.Warn("step document missing",
					slog.String("document", doc),
					slog.Int64("chat_id", chatID),
				)
			}
			return nil
		}
		return err
	}
}
