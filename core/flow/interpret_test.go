package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testAdmin int64 = 99
	testUser  int64 = 7
)

func testInterpreter(t *testing.T, mutate func(*InterpreterOptions)) (*Interpreter, *Engine, *fakeTransport) {
	t.Helper()

	g := NewGraph("main")
	g.Register(&Step{
		ID:   "1",
		Text: Static("Pick one"),
		Rows: [][]Answer{
			{{Label: "Yes", Action: Action{Kind: ActionGoto, Target: "2"}}},
			{{Label: "Show me", Action: Action{Kind: ActionScreenshot, Target: "2"}}},
			{{Label: "Tell me", Action: Action{Kind: ActionRaw, Payload: "raw reply"}}},
			{{Label: "Pay with card", Action: Action{Kind: ActionGoto, Target: "2"}}},
			{{Label: "Broken", Action: Action{}}},
		},
	})
	g.Register(&Step{ID: "2", Text: Static("Second")})
	g.Register(&Step{ID: "done", Text: Static("All set"), Preformatted: true})

	tx := &fakeTransport{}
	eng := NewEngine(g, tx, Texts{}, nil)

	opts := InterpreterOptions{
		Engine:       eng,
		Transport:    tx,
		AdminID:      testAdmin,
		Trigger:      "Pay",
		Deliverable:  "result.pdf",
		TerminalStep: "done",
		Screenshots:  []string{"one.jpg", "two.jpg"},
		Clock:        func() time.Time { return time.Unix(1700000000, 0) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewInterpreter(opts), eng, tx
}

func step1Handler(it *Interpreter, eng *Engine) Handler {
	step, _ := eng.Graph().Get("1")
	return it.Bind("1", step.Answers())
}

func inboundText(text string) Inbound {
	return Inbound{ChatID: testUser, UserID: testUser, MessageID: 10, Text: text}
}

func TestDispatchGoto(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	for _, raw := range []string{"Yes", "yes", " YES "} {
		tx.sends = nil
		sess.Reset("main", "1")
		require.NoError(t, h(context.Background(), inboundText(raw), sess))
		require.Equal(t, "2", sess.StepID, "raw %q", raw)

		got, ok := tx.lastSend()
		require.True(t, ok)
		require.Equal(t, "Second", got.Out.Text)
	}
}

func TestDispatchUnmatchedKeepsStep(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	require.NoError(t, h(context.Background(), inboundText("something else"), sess))

	require.Equal(t, "1", sess.StepID)
	got, ok := tx.lastSend()
	require.True(t, ok)
	require.Equal(t, DefaultTexts().UseButtons, got.Out.Text)
}

func TestDispatchRaw(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	require.NoError(t, h(context.Background(), inboundText("tell me"), sess))

	require.Equal(t, "1", sess.StepID)
	got, _ := tx.lastSend()
	require.Equal(t, "raw reply", got.Out.Text)
}

func TestDispatchUnknownAction(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	require.NoError(t, h(context.Background(), inboundText("broken"), sess))

	got, _ := tx.lastSend()
	require.Equal(t, DefaultTexts().UnknownAction, got.Out.Text)
}

func TestDispatchScreenshotsContinueOnFailure(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	tx.sendErr = func(_ int64, out Outbound) error {
		if out.Photo == "one.jpg" {
			return ErrMissingAsset
		}
		return nil
	}
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	require.NoError(t, h(context.Background(), inboundText("show me"), sess))

	var photos []string
	for _, s := range tx.sent() {
		if s.Out.Photo != "" {
			photos = append(photos, s.Out.Photo)
		}
	}
	require.Equal(t, []string{"two.jpg"}, photos)
	// the follow-up transition still happened
	require.Equal(t, "2", sess.StepID)
}

func TestPaymentTriggerMarksPending(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	require.NoError(t, h(context.Background(), inboundText("Pay with card"), sess))

	require.NotNil(t, sess.PendingPayment)
	require.Equal(t, "1700000000", sess.PendingPayment.OrderTag)
	require.Equal(t, "pay with card", sess.PendingPayment.Method)
	// the goto target of the answer is not taken
	require.Equal(t, "1", sess.StepID)

	got, _ := tx.lastSend()
	require.Equal(t, DefaultTexts().SendReceipt, got.Out.Text)
	require.True(t, got.Out.ClearKeyboard)
}

func TestAttachmentWithoutPendingFallsThrough(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1"}

	in := inboundText("")
	in.HasAttachment = true
	require.NoError(t, h(context.Background(), in, sess))

	require.Empty(t, tx.forwards)
	got, _ := tx.lastSend()
	require.Equal(t, DefaultTexts().UseButtons, got.Out.Text)
}

func TestReceiptForwardedToAdmin(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1", PendingPayment: &PendingPayment{OrderTag: "555", Method: "pay card"}}

	in := inboundText("")
	in.HasAttachment = true
	require.NoError(t, h(context.Background(), in, sess))

	require.Nil(t, sess.PendingPayment)
	require.Equal(t, []fakeForward{{To: testAdmin, From: testUser, MessageID: 10}}, tx.forwards)

	sends := tx.sent()
	require.Len(t, sends, 2)

	notice := sends[0]
	require.Equal(t, testAdmin, notice.ChatID)
	require.Contains(t, notice.Out.Text, "user_id=7")
	require.Contains(t, notice.Out.Text, "order=555")
	require.Contains(t, notice.Out.Text, "method=pay card")
	require.Len(t, notice.Out.Controls, 2)
	require.Equal(t, DecisionKey, notice.Out.Controls[0].Key)
	require.Equal(t, "confirm:7:555", notice.Out.Controls[0].Data)
	require.Equal(t, "decline:7:555", notice.Out.Controls[1].Data)

	ack := sends[1]
	require.Equal(t, testUser, ack.ChatID)
	require.Equal(t, DefaultTexts().ReceiptSent, ack.Out.Text)
}

func TestReceiptForwardFailureClearsPending(t *testing.T) {
	it, eng, tx := testInterpreter(t, nil)
	tx.forwardErr = errors.New("telegram down")
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1", PendingPayment: &PendingPayment{OrderTag: "555", Method: "pay"}}

	in := inboundText("")
	in.HasAttachment = true
	require.NoError(t, h(context.Background(), in, sess))

	require.Nil(t, sess.PendingPayment)
	got, _ := tx.lastSend()
	require.Equal(t, DefaultTexts().ReceiptFailed, got.Out.Text)
}

func TestReceiptWithoutAdminConfigured(t *testing.T) {
	it, eng, tx := testInterpreter(t, func(o *InterpreterOptions) { o.AdminID = 0 })
	h := step1Handler(it, eng)
	sess := &Session{StepID: "1", PendingPayment: &PendingPayment{OrderTag: "555", Method: "pay"}}

	in := inboundText("")
	in.HasAttachment = true
	require.NoError(t, h(context.Background(), in, sess))

	require.Nil(t, sess.PendingPayment)
	require.Empty(t, tx.forwards)
	got, _ := tx.lastSend()
	require.Equal(t, DefaultTexts().AdminMissing, got.Out.Text)
}

func TestConfirmDeliversAndNotifies(t *testing.T) {
	it, _, tx := testInterpreter(t, nil)

	require.NoError(t, it.Confirm(context.Background(), testAdmin, testUser, "555"))

	sends := tx.sent()
	require.Len(t, sends, 3)

	require.Equal(t, testUser, sends[0].ChatID)
	require.Equal(t, "result.pdf", sends[0].Out.Document)

	require.Equal(t, testUser, sends[1].ChatID)
	require.Equal(t, "All set", sends[1].Out.Text)
	require.True(t, sends[1].Out.Preformatted)

	require.Equal(t, testAdmin, sends[2].ChatID)
	require.Contains(t, sends[2].Out.Text, "user=7")
	require.Contains(t, sends[2].Out.Text, "order=555")
}

func TestConfirmMissingDeliverableNotifiesAdmin(t *testing.T) {
	it, _, tx := testInterpreter(t, nil)
	tx.sendErr = func(_ int64, out Outbound) error {
		if out.Document != "" {
			return ErrMissingAsset
		}
		return nil
	}

	require.NoError(t, it.Confirm(context.Background(), testAdmin, testUser, "555"))

	sends := tx.sent()
	require.Len(t, sends, 3)
	require.Equal(t, testAdmin, sends[0].ChatID)
	require.Equal(t, DefaultTexts().DeliverableMissing, sends[0].Out.Text)
	require.Equal(t, "All set", sends[1].Out.Text)
}

func TestConfirmContinuesWhenUserBlocked(t *testing.T) {
	it, _, tx := testInterpreter(t, nil)
	tx.sendErr = func(chatID int64, _ Outbound) error {
		if chatID == testUser {
			return errors.New("forbidden: bot was blocked by the user")
		}
		return nil
	}

	require.NoError(t, it.Confirm(context.Background(), testAdmin, testUser, "555"))

	sends := tx.sent()
	require.Len(t, sends, 1)
	require.Equal(t, testAdmin, sends[0].ChatID)
	require.Contains(t, sends[0].Out.Text, "order=555")
}

func TestDecisionsRequireAdmin(t *testing.T) {
	it, _, tx := testInterpreter(t, nil)

	require.ErrorIs(t, it.Confirm(context.Background(), testUser, testUser, "555"), ErrNotAuthorized)
	require.ErrorIs(t, it.Decline(context.Background(), testUser, testUser, "555"), ErrNotAuthorized)
	require.Empty(t, tx.sent())
}

func TestDeclineNotifiesBothSides(t *testing.T) {
	it, _, tx := testInterpreter(t, nil)

	require.NoError(t, it.Decline(context.Background(), testAdmin, testUser, "555"))

	sends := tx.sent()
	require.Len(t, sends, 2)
	require.Equal(t, testUser, sends[0].ChatID)
	require.Equal(t, DefaultTexts().PaymentDeclinedUser, sends[0].Out.Text)
	require.Equal(t, testAdmin, sends[1].ChatID)
	require.Contains(t, sends[1].Out.Text, "user=7")
}
