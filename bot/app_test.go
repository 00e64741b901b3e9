package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"flowbot/core/flow"
)

// fakeTeleCtx implements the slice of tele.Context the handlers touch.
// Unimplemented methods panic via the embedded nil interface.
type fakeTeleCtx struct {
	tele.Context
	sender *tele.User
	chat   *tele.Chat
	msg    *tele.Message
	kv     map[string]any
	sent   []sentMsg
}

type sentMsg struct {
	what any
	opts []any
}

func (f *fakeTeleCtx) Sender() *tele.User     { return f.sender }
func (f *fakeTeleCtx) Chat() *tele.Chat       { return f.chat }
func (f *fakeTeleCtx) Message() *tele.Message { return f.msg }
func (f *fakeTeleCtx) Update() tele.Update    { return tele.Update{} }

func (f *fakeTeleCtx) Text() string {
	if f.msg == nil {
		return ""
	}
	return f.msg.Text
}

func (f *fakeTeleCtx) Get(key string) any { return f.kv[key] }

func (f *fakeTeleCtx) Set(key string, val any) {
	if f.kv == nil {
		f.kv = map[string]any{}
	}
	f.kv[key] = val
}

func (f *fakeTeleCtx) Send(what any, opts ...any) error {
	f.sent = append(f.sent, sentMsg{what: what, opts: opts})
	return nil
}

func (f *fakeTeleCtx) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	text, ok := f.sent[len(f.sent)-1].what.(string)
	require.True(t, ok, "last send is not text")
	return text
}

func (f *fakeTeleCtx) lastParseMode(t *testing.T) tele.ParseMode {
	t.Helper()
	require.NotEmpty(t, f.sent)
	for _, opt := range f.sent[len(f.sent)-1].opts {
		if so, ok := opt.(*tele.SendOptions); ok {
			return so.ParseMode
		}
	}
	return ""
}

func userCtx(id int64, text string) *fakeTeleCtx {
	return &fakeTeleCtx{
		sender: &tele.User{ID: id},
		chat:   &tele.Chat{ID: id},
		msg:    &tele.Message{ID: 1, Text: text},
	}
}

const appAdmin int64 = 99

func testApp(t *testing.T, roster *rosterStub) (*App, *recordingTransport) {
	t.Helper()

	script := &Script{
		Flow:  "main",
		Entry: "1",
		Steps: []ScriptStep{{ID: "1", Text: "hi"}},
		Texts: map[string]string{"whoami": "Your id: %d."},
	}
	tx := &recordingTransport{}
	engine, interp, err := BuildFlow(script, tx, BuildOptions{AdminID: appAdmin})
	require.NoError(t, err)

	cfg := &Config{}
	cfg.Core.Telegram.AdminID = appAdmin

	return &App{
		cfg:       cfg,
		script:    script,
		engine:    engine,
		interp:    interp,
		sessions:  flow.NewMemoryStore(),
		users:     roster,
		broadcast: NewBroadcaster(tx, roster, discardLogger()),
		log:       discardLogger(),
	}, tx
}

func TestWhoamiRepliesEscapedMarkdown(t *testing.T) {
	app, _ := testApp(t, &rosterStub{})
	c := userCtx(5, "/whoami")

	require.NoError(t, app.handleWhoami(c))

	require.Equal(t, `Your id: 5\.`, c.lastText(t))
	require.Equal(t, tele.ModeMarkdownV2, c.lastParseMode(t))
}

func TestBroadcastBareCommandArmsAndPrompts(t *testing.T) {
	app, tx := testApp(t, &rosterStub{ids: []int64{1, 2}})
	c := userCtx(appAdmin, "/broadcast")
	c.msg.Payload = "  "

	require.NoError(t, app.handleBroadcast(c))

	sess, ok := app.sessions.Peek(appAdmin)
	require.True(t, ok)
	require.True(t, sess.AwaitingBroadcast)
	require.Empty(t, tx.sends)
	require.Contains(t, c.lastText(t), "next message")
}

func TestBroadcastInlinePayloadSendsImmediately(t *testing.T) {
	app, tx := testApp(t, &rosterStub{ids: []int64{1, 2, 3}})
	c := userCtx(appAdmin, "/broadcast hello")
	c.msg.Payload = "hello"

	require.NoError(t, app.handleBroadcast(c))

	require.Equal(t, []int64{1, 2, 3}, tx.chats)
	require.Contains(t, c.lastText(t), "3 of 3")
	require.Equal(t, tele.ModeMarkdownV2, c.lastParseMode(t))
	// the confirmation went through the markdown escaper
	require.True(t, strings.HasSuffix(c.lastText(t), `\.`))
}

func TestArmedBroadcastConsumesNextMessage(t *testing.T) {
	app, tx := testApp(t, &rosterStub{ids: []int64{1, 2}})

	arm := userCtx(appAdmin, "/broadcast")
	require.NoError(t, app.handleBroadcast(arm))

	next := userCtx(appAdmin, "big news")
	require.NoError(t, app.HandleText(next))

	sess, _ := app.sessions.Peek(appAdmin)
	require.False(t, sess.AwaitingBroadcast)
	require.Equal(t, []int64{1, 2}, tx.chats)
	for _, out := range tx.sends {
		require.Equal(t, "big news", out.Text)
	}
	require.Contains(t, next.lastText(t), "2 of 2")
}

func TestArmedBroadcastIgnoresBlankMessage(t *testing.T) {
	app, tx := testApp(t, &rosterStub{ids: []int64{1, 2}})

	arm := userCtx(appAdmin, "/broadcast")
	require.NoError(t, app.handleBroadcast(arm))

	blank := userCtx(appAdmin, "   ")
	require.NoError(t, app.HandleText(blank))

	// still armed, nothing fanned out, admin re-prompted
	sess, _ := app.sessions.Peek(appAdmin)
	require.True(t, sess.AwaitingBroadcast)
	require.Empty(t, tx.sends)
	require.Contains(t, blank.lastText(t), "next message")
}
