package flow

import (
	"context"
	"errors"
)

// ErrMissingAsset is returned by a Transport when a referenced document or
// photo does not exist at the collaborator layer. Callers decide whether the
// miss is skippable (screenshots, step documents) or must be reported.
var ErrMissingAsset = errors.New("flow: asset not found")

// Inbound is a single inbound message event as delivered by the transport.
type Inbound struct {
	ChatID        int64
	UserID        int64
	MessageID     int
	Text          string
	HasAttachment bool
}

// InlineControl describes one inline decision button attached to an outbound
// message. Key selects the callback handler, Data carries its payload.
type InlineControl struct {
	Label string
	Key   string
	Data  string
}

// Outbound describes one outgoing message. Text is escaped for the
// destination rich-text renderer by the transport; Preformatted selects the
// escaping mode that preserves paired emphasis markers. At most one of
// Keyboard and ClearKeyboard is set; Document and Photo name assets resolved
// by the transport.
type Outbound struct {
	Text          string
	Preformatted  bool
	Keyboard      [][]string
	ClearKeyboard bool
	Document      string
	Photo         string
	Controls      []InlineControl
}

// Transport is the outbound contract the engine depends on. Implementations
// own delivery, retries and asset resolution.
type Transport interface {
	Send(ctx context.Context, chatID int64, out Outbound) error
	Forward(ctx context.Context, toChat, fromChat int64, messageID int) error
}
