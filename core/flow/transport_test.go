package flow

import (
	"context"
	"sync"
)

// fakeTransport records outbound traffic and lets tests inject failures.
type fakeTransport struct {
	mu       sync.Mutex
	sends    []fakeSend
	forwards []fakeForward

	sendErr    func(chatID int64, out Outbound) error
	forwardErr error
}

type fakeSend struct {
	ChatID int64
	Out    Outbound
}

type fakeForward struct {
	To, From  int64
	MessageID int
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, out Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(chatID, out); err != nil {
			return err
		}
	}
	f.sends = append(f.sends, fakeSend{ChatID: chatID, Out: out})
	return nil
}

func (f *fakeTransport) Forward(_ context.Context, toChat, fromChat int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return f.forwardErr
	}
	f.forwards = append(f.forwards, fakeForward{To: toChat, From: fromChat, MessageID: messageID})
	return nil
}

func (f *fakeTransport) sent() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeSend, len(f.sends))
	copy(out, f.sends)
	return out
}

func (f *fakeTransport) lastSend() (fakeSend, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sends) == 0 {
		return fakeSend{}, false
	}
	return f.sends[len(f.sends)-1], true
}
