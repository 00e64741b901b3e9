package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"flowbot/core/flow"
	"flowbot/core/telegram/format"
	"flowbot/core/telegram/keyboard"
)

// telegramTransport adapts flow.Transport onto a telebot connection. The bot
// handle is installed after construction because the connection is owned by
// the runtime loop; sends before SetBot fail loudly.
type telegramTransport struct {
	bot       atomic.Pointer[tele.Bot]
	assetsDir string
}

func newTelegramTransport(assetsDir string) *telegramTransport {
	return &telegramTransport{assetsDir: assetsDir}
}

// SetBot installs the live bot connection.
func (t *telegramTransport) SetBot(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *telegramTransport) conn() (*tele.Bot, error) {
	b := t.bot.Load()
	if b == nil {
		return nil, fmt.Errorf("telegram transport not connected")
	}
	return b, nil
}

// resolveAsset maps an asset name to an on-disk path under the assets dir.
func (t *telegramTransport) resolveAsset(name string) (string, error) {
	path := filepath.Join(t.assetsDir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", flow.ErrMissingAsset, name)
		}
		return "", err
	}
	return path, nil
}

func (t *telegramTransport) Send(_ context.Context, chatID int64, out flow.Outbound) error {
	b, err := t.conn()
	if err != nil {
		return err
	}
	rcpt := tele.ChatID(chatID)

	if out.Document != "" {
		path, err := t.resolveAsset(out.Document)
		if err != nil {
			return err
		}
		doc := &tele.Document{File: tele.FromDisk(path), FileName: filepath.Base(path)}
		_, err = b.Send(rcpt, doc)
		return err
	}
	if out.Photo != "" {
		path, err := t.resolveAsset(out.Photo)
		if err != nil {
			return err
		}
		_, err = b.Send(rcpt, &tele.Photo{File: tele.FromDisk(path)})
		return err
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	switch {
	case len(out.Controls) > 0:
		opts.ReplyMarkup = controlsMarkup(out.Controls)
	case len(out.Keyboard) > 0:
		opts.ReplyMarkup = keyboard.ReplyButtons(out.Keyboard...)
	case out.ClearKeyboard:
		opts.ReplyMarkup = keyboard.RemoveKeyboard()
	}

	_, err = b.Send(rcpt, format.Escape(out.Text, out.Preformatted), opts)
	return err
}

func (t *telegramTransport) Forward(_ context.Context, toChat, fromChat int64, messageID int) error {
	b, err := t.conn()
	if err != nil {
		return err
	}
	stored := &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    fromChat,
	}
	_, err = b.Forward(tele.ChatID(toChat), stored)
	return err
}

// controlsMarkup renders inline decision buttons on a single row.
func controlsMarkup(controls []flow.InlineControl) *tele.ReplyMarkup {
	row := make([]keyboard.InlineBtn, 0, len(controls))
	for _, c := range controls {
		row = append(row, keyboard.InlineBtn{Text: c.Label, Unique: c.Key, Data: c.Data})
	}
	return keyboard.InlineButtonsRows(row)
}
