package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"flowbot/core/bootstrap"
	coredatabase "flowbot/core/database"
	"flowbot/core/flow"
	"flowbot/core/logger"
	tg "flowbot/core/telegram"
	"flowbot/core/telegram/commands"
	"flowbot/core/telegram/format"
	tghelpers "flowbot/core/telegram/helpers"
	"flowbot/core/telegram/router"
	"flowbot/core/userstore"
)

// App is the conversational flow bot: it owns the script-driven engine,
// the known-user roster and the Telegram wiring.
type App struct {
	cfg *Config
	db  *sqlx.DB

	script    *Script
	tx        *telegramTransport
	engine    *flow.Engine
	interp    *flow.Interpreter
	sessions  flow.Store
	users     userstore.Store
	broadcast *Broadcaster

	log *slog.Logger
}

// New bootstraps infrastructure and assembles the application.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	var dbCfg *coredatabase.Config
	if cfg.Users.Backend == UsersBackendPostgres {
		dbCfg = &cfg.Database
	}
	boot, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: dbCfg,
	})
	if err != nil {
		return nil, err
	}

	var users userstore.Store
	switch cfg.Users.Backend {
	case UsersBackendPostgres:
		users = userstore.NewPostgresStore(boot.DB)
	default:
		users = userstore.NewFileStore(cfg.Users.File)
	}

	script, err := LoadScript(cfg.Script.Path)
	if err != nil {
		return nil, err
	}

	tx := newTelegramTransport(cfg.Script.AssetsDir)
	engine, interp, err := BuildFlow(script, tx, BuildOptions{
		AdminID: cfg.Core.Telegram.AdminID,
		Log:     logger.Flow,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		db:        boot.DB,
		script:    script,
		tx:        tx,
		engine:    engine,
		interp:    interp,
		sessions:  flow.NewMemoryStore(),
		users:     users,
		broadcast: NewBroadcaster(tx, users, logger.Flow),
		log:       logger.Flow,
	}, nil
}

// rememberUser records the sender in the roster. Roster failures never block
// the conversation.
func (a *App) rememberUser(ctx context.Context, userID int64) {
	if err := a.users.Add(ctx, userID); err != nil {
		logger.Users.Warn("user add failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (a *App) isAdmin(userID int64) bool {
	admin := a.cfg.Core.Telegram.AdminID
	return admin != 0 && userID == admin
}

func inboundFrom(c tele.Context, hasAttachment bool) flow.Inbound {
	in := flow.Inbound{
		Text:          c.Text(),
		HasAttachment: hasAttachment,
	}
	if c.Chat() != nil {
		in.ChatID = c.Chat().ID
	}
	if c.Sender() != nil {
		in.UserID = c.Sender().ID
	}
	if c.Message() != nil {
		in.MessageID = c.Message().ID
	}
	return in
}

// HandleText consumes plain text updates that are not commands.
func (a *App) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inboundFrom(c, false)
	a.rememberUser(ctx, in.UserID)

	sess := a.sessions.Get(in.UserID)
	if sess.AwaitingBroadcast && a.isAdmin(in.UserID) {
		payload := strings.TrimSpace(in.Text)
		if payload == "" {
			// stay armed, ask again
			return tghelpers.SendText(c, a.broadcastPrompt())
		}
		sess.AwaitingBroadcast = false
		return a.runBroadcast(ctx, c, payload)
	}

	return a.engine.HandleMessage(ctx, sess, in)
}

// HandleAttachment consumes photo and document updates.
func (a *App) HandleAttachment(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inboundFrom(c, true)
	a.rememberUser(ctx, in.UserID)

	sess := a.sessions.Get(in.UserID)
	return a.engine.HandleMessage(ctx, sess, in)
}

func (a *App) broadcastPrompt() string {
	return a.script.Text("broadcast_prompt", "Send the broadcast text as your next message.")
}

func (a *App) runBroadcast(ctx context.Context, c tele.Context, payload string) error {
	// nothing to send; never fan out an empty message
	if strings.TrimSpace(payload) == "" {
		return tghelpers.SendText(c, a.broadcastPrompt())
	}
	sent, total, err := a.broadcast.Broadcast(ctx, payload)
	if err != nil {
		return err
	}
	done := fmt.Sprintf(a.script.Text("broadcast_done", "Broadcast delivered to %d of %d users."), sent, total)
	return tghelpers.SendMDV2(c, format.Escape(done, false))
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inboundFrom(c, false)
	a.rememberUser(ctx, in.UserID)

	sess := a.sessions.Get(in.UserID)
	return a.engine.Start(ctx, sess, in.ChatID, a.script.Entry)
}

func (a *App) handleWhoami(c tele.Context) error {
	var id int64
	if c.Sender() != nil {
		id = c.Sender().ID
	}
	reply := fmt.Sprintf(a.script.Text("whoami", "Your id: %d"), id)
	return tghelpers.SendMDV2(c, format.Escape(reply, false))
}

// handleBroadcast starts or performs an admin broadcast. An inline payload
// after the command is sent immediately; otherwise the next text message of
// the admin becomes the broadcast body.
func (a *App) handleBroadcast(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var userID int64
	if c.Sender() != nil {
		userID = c.Sender().ID
	}

	if c.Message() != nil {
		if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
			return a.runBroadcast(ctx, c, payload)
		}
	}

	sess := a.sessions.Get(userID)
	sess.AwaitingBroadcast = true
	return tghelpers.SendText(c, a.broadcastPrompt())
}

func (a *App) buildRegistry() (*tg.Registry, error) {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Restart the conversation",
	})
	reg.RegisterCommand("/whoami", commands.Command{
		Handler:     a.handleWhoami,
		Description: "Show your Telegram id",
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.handleBroadcast,
		Description: "Send a message to all known users",
		AdminOnly:   true,
		Hidden:      true,
	})

	if err := RegisterPaymentCallbacks(reg, a.interp, a.log); err != nil {
		return nil, err
	}
	return reg, nil
}

// TelegramRunOptions wires the registry, routes and lifecycle hooks for the
// shared bot runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg, err := a.buildRegistry()
	if err != nil {
		return tg.RunOptions{}, err
	}

	notAdmin := func(c tele.Context) error {
		return tghelpers.SendText(c, a.script.Text("not_admin", "This command is admin-only."))
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Core.Telegram.AdminID,
		OnAdminReject: notAdmin,
	})
	routes = append(routes, router.TextRoutes(a, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.tx.SetBot(rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}
