package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T, steps ...*Step) (*Engine, *fakeTransport) {
	t.Helper()
	g := NewGraph("main")
	for _, s := range steps {
		g.Register(s)
	}
	tx := &fakeTransport{}
	return NewEngine(g, tx, Texts{}, nil), tx
}

func TestStartEntersStep(t *testing.T) {
	eng, tx := testEngine(t, &Step{
		ID:   "1",
		Text: Static("Welcome"),
		Rows: [][]Answer{{{Label: "Yes"}, {Label: "No"}}},
	})

	sess := &Session{}
	require.NoError(t, eng.Start(context.Background(), sess, 42, "1"))

	require.Equal(t, "main", sess.Flow)
	require.Equal(t, "1", sess.StepID)

	got, ok := tx.lastSend()
	require.True(t, ok)
	require.Equal(t, int64(42), got.ChatID)
	require.Equal(t, "Welcome", got.Out.Text)
	require.Equal(t, [][]string{{"Yes", "No"}}, got.Out.Keyboard)
	require.False(t, got.Out.ClearKeyboard)
}

func TestStartResetsSessionState(t *testing.T) {
	eng, _ := testEngine(t, &Step{ID: "1", Text: Static("hi")})

	sess := &Session{
		StepID:         "other",
		Meta:           Meta{"k": "v"},
		PendingPayment: &PendingPayment{OrderTag: "t"},
	}
	require.NoError(t, eng.Start(context.Background(), sess, 1, "1"))

	require.Equal(t, "1", sess.StepID)
	require.Empty(t, sess.Meta)
	require.Nil(t, sess.PendingPayment)
}

func TestStartMissingStepNotifiesUser(t *testing.T) {
	eng, tx := testEngine(t, &Step{ID: "1", Text: Static("hi")})

	sess := &Session{StepID: "1"}
	require.NoError(t, eng.Start(context.Background(), sess, 7, "ghost"))

	// session position is untouched
	require.Equal(t, "1", sess.StepID)

	got, ok := tx.lastSend()
	require.True(t, ok)
	require.Contains(t, got.Out.Text, "ghost")
	require.Contains(t, got.Out.Text, DefaultTexts().StepNotFound)
}

func TestEnterClearsKeyboardWithoutAnswers(t *testing.T) {
	eng, tx := testEngine(t, &Step{ID: "end", Text: Static("Done")})

	require.NoError(t, eng.Start(context.Background(), &Session{}, 1, "end"))

	got, _ := tx.lastSend()
	require.True(t, got.Out.ClearKeyboard)
	require.Empty(t, got.Out.Keyboard)
}

func TestEnterHookRunsBeforeText(t *testing.T) {
	var order []string
	tx := &fakeTransport{}
	tx.sendErr = func(_ int64, out Outbound) error {
		order = append(order, "text:"+out.Text)
		return nil
	}

	g := NewGraph("main")
	g.Register(&Step{
		ID:   "1",
		Text: Static("main text"),
		OnEnter: func(_ context.Context, _ int64, _ *Session) error {
			order = append(order, "hook")
			return nil
		},
	})
	eng := NewEngine(g, tx, Texts{}, nil)

	require.NoError(t, eng.Start(context.Background(), &Session{}, 1, "1"))
	require.Equal(t, []string{"hook", "text:main text"}, order)
}

func TestEnterHookFailureDoesNotBlockText(t *testing.T) {
	g := NewGraph("main")
	g.Register(&Step{
		ID:   "1",
		Text: Static("still here"),
		OnEnter: func(_ context.Context, _ int64, _ *Session) error {
			return errors.New("hook broke")
		},
	})
	tx := &fakeTransport{}
	eng := NewEngine(g, tx, Texts{}, nil)

	require.NoError(t, eng.Start(context.Background(), &Session{}, 1, "1"))
	got, ok := tx.lastSend()
	require.True(t, ok)
	require.Equal(t, "still here", got.Out.Text)
}

func TestEnterSkipsEmptyText(t *testing.T) {
	eng, tx := testEngine(t, &Step{ID: "silent", Text: Static("")})

	require.NoError(t, eng.Start(context.Background(), &Session{}, 1, "silent"))
	require.Empty(t, tx.sent())
}

func TestHandleMessageOutsideFlowIsIgnored(t *testing.T) {
	eng, tx := testEngine(t)

	require.NoError(t, eng.HandleMessage(context.Background(), &Session{}, Inbound{ChatID: 1, Text: "hi"}))
	require.NoError(t, eng.HandleMessage(context.Background(), nil, Inbound{ChatID: 1, Text: "hi"}))
	require.Empty(t, tx.sent())
}

func TestHandleMessageDelegatesToStepHandler(t *testing.T) {
	var gotText string
	eng, _ := testEngine(t, &Step{
		ID:   "1",
		Text: Static("q"),
		OnMessage: func(_ context.Context, in Inbound, _ *Session) error {
			gotText = in.Text
			return nil
		},
	})

	sess := &Session{StepID: "1"}
	require.NoError(t, eng.HandleMessage(context.Background(), sess, Inbound{ChatID: 1, Text: "answer"}))
	require.Equal(t, "answer", gotText)
}

func TestHandleMessageWithoutHandlerFallsBack(t *testing.T) {
	eng, tx := testEngine(t, &Step{ID: "1", Text: Static("q")})

	sess := &Session{StepID: "1"}
	require.NoError(t, eng.HandleMessage(context.Background(), sess, Inbound{ChatID: 9, Text: "blah"}))

	require.Equal(t, "1", sess.StepID)
	got, ok := tx.lastSend()
	require.True(t, ok)
	require.Equal(t, DefaultTexts().UseButtons, got.Out.Text)
}

func TestTemplatedTextUsesMeta(t *testing.T) {
	text := Templated(func(m Meta) string {
		name, _ := m["name"].(string)
		return "Hello " + name
	})
	require.Equal(t, "Hello Ada", text.Resolve(Meta{"name": "Ada"}))
}
