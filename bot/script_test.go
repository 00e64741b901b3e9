package bot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowbot/core/flow"
)

// recordingTransport captures outbound traffic for assertions.
type recordingTransport struct {
	mu    sync.Mutex
	sends []flow.Outbound
	chats []int64
}

func (r *recordingTransport) Send(_ context.Context, chatID int64, out flow.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, out)
	r.chats = append(r.chats, chatID)
	return nil
}

func (r *recordingTransport) Forward(_ context.Context, _, _ int64, _ int) error {
	return nil
}

func (r *recordingTransport) last(t *testing.T) flow.Outbound {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sends)
	return r.sends[len(r.sends)-1]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func loadTestScript(t *testing.T) *Script {
	t.Helper()
	s, err := LoadScript(filepath.Join("testdata", "script.yaml"))
	require.NoError(t, err)
	return s
}

func TestLoadScript(t *testing.T) {
	s := loadTestScript(t)

	require.Equal(t, "onboarding", s.Flow)
	require.Equal(t, "1", s.Entry)
	require.Equal(t, "оплатил", s.PaymentTrigger)
	require.Equal(t, "guide.pdf", s.Deliverable)
	require.Equal(t, "final", s.TerminalStep)
	require.Equal(t, []string{"shot1.jpg", "shot2.jpg"}, s.Screenshots)
	require.Len(t, s.Steps, 3)

	require.Equal(t, "Привет!\nВыбери вариант:", s.Steps[0].text())
	require.Equal(t, "Второй шаг", s.Steps[1].text())
	require.Equal(t, "intro.pdf", s.Steps[1].Document)
	require.True(t, s.Steps[2].Preformatted)
}

func TestLoadScriptDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	writeFile(t, path, `
steps:
  - id: start
    text: hi
`)
	s, err := LoadScript(path)
	require.NoError(t, err)
	require.Equal(t, "main", s.Flow)
	require.Equal(t, "start", s.Entry)
}

func TestLoadScriptRejectsEmptyAndAnonymousSteps(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "flow: x\n")
	_, err := LoadScript(empty)
	require.Error(t, err)

	anon := filepath.Join(dir, "anon.yaml")
	writeFile(t, anon, `
steps:
  - text: "no id"
`)
	_, err = LoadScript(anon)
	require.Error(t, err)
}

func TestTextSetOverrides(t *testing.T) {
	s := loadTestScript(t)
	texts := s.TextSet()

	require.Equal(t, "Пожалуйста, используйте кнопки.", texts.UseButtons)
	require.Equal(t, "Пришлите чек фото или файлом.", texts.SendReceipt)
	// untouched keys keep built-in defaults
	require.Equal(t, flow.DefaultTexts().PaymentNotice, texts.PaymentNotice)
}

func TestBuildFlowWiresHandlers(t *testing.T) {
	s := loadTestScript(t)
	tx := &recordingTransport{}

	engine, interp, err := BuildFlow(s, tx, BuildOptions{AdminID: 99})
	require.NoError(t, err)
	require.NotNil(t, interp)

	for _, step := range engine.Graph().Steps() {
		require.NotNil(t, step.OnMessage, "step %s", step.ID)
	}
}

func TestBuildFlowRejectsBrokenTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	writeFile(t, path, `
steps:
  - id: "1"
    text: hi
    answers:
      - label: "Go"
        action: { kind: goto, target: "missing" }
`)
	s, err := LoadScript(path)
	require.NoError(t, err)

	_, _, err = BuildFlow(s, &recordingTransport{}, BuildOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, flow.ErrStepNotFound)
}

func TestBuiltFlowEndToEnd(t *testing.T) {
	s := loadTestScript(t)
	tx := &recordingTransport{}

	engine, _, err := BuildFlow(s, tx, BuildOptions{
		AdminID: 99,
		Clock:   func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)

	ctx := context.Background()
	sess := &flow.Session{}
	require.NoError(t, engine.Start(ctx, sess, 7, s.Entry))

	out := tx.last(t)
	require.Equal(t, "Привет!\nВыбери вариант:", out.Text)
	require.Equal(t, [][]string{
		{"Да"},
		{"Показать примеры"},
		{"Оплатил(а) картой"},
	}, out.Keyboard)

	// a scripted answer advances the session; the step document goes out
	// before the step text
	require.NoError(t, engine.HandleMessage(ctx, sess, flow.Inbound{ChatID: 7, UserID: 7, Text: "да"}))
	require.Equal(t, "2", sess.StepID)

	tx.mu.Lock()
	docIdx, textIdx := -1, -1
	for i, o := range tx.sends {
		if o.Document == "intro.pdf" {
			docIdx = i
		}
		if o.Text == "Второй шаг" {
			textIdx = i
		}
	}
	tx.mu.Unlock()
	require.GreaterOrEqual(t, docIdx, 0)
	require.Greater(t, textIdx, docIdx)

	// the payment-trigger label marks the session pending instead of
	// following its goto
	require.NoError(t, engine.HandleMessage(ctx, sess, flow.Inbound{ChatID: 7, UserID: 7, Text: "Назад"}))
	require.Equal(t, "1", sess.StepID)
	require.NoError(t, engine.HandleMessage(ctx, sess, flow.Inbound{ChatID: 7, UserID: 7, Text: "Оплатил(а) картой"}))
	require.Equal(t, "1", sess.StepID)
	require.NotNil(t, sess.PendingPayment)
	require.Equal(t, "1700000000", sess.PendingPayment.OrderTag)
	require.Equal(t, "Пришлите чек фото или файлом.", tx.last(t).Text)
}
