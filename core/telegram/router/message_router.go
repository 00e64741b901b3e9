package router

import (
	"time"

	tg "flowbot/core/telegram"
	"flowbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FlowHandler is the minimal interface the router needs from a
// conversational flow application.
type FlowHandler interface {
	// HandleText consumes a plain text update that is not a command.
	HandleText(c tele.Context) error
	// HandleAttachment consumes a photo or document update.
	HandleAttachment(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/attachment updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers that route text to registered commands first
// and to the flow application otherwise, and attachments straight to the
// flow application.
func TextRoutes(fh FlowHandler, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if fh != nil {
			return handleWithSummary(c, "flow", start, "", "", func() error {
				return fh.HandleText(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	attachmentHandler := func(c tele.Context) error {
		start := time.Now()
		if fh != nil {
			return handleWithSummary(c, "flow_attachment", start, "", "", func() error {
				return fh.HandleAttachment(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(attachmentHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(attachmentHandler)},
	}
}
