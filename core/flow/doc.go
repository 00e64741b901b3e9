// Package flow implements a declarative conversational flow engine: a step
// graph with per-user sessions, reply-label matching, an action interpreter
// with a payment-confirmation sub-protocol, and a transport-agnostic outbound
// contract. It depends on nothing Telegram-specific so it can be driven and
// tested through the Transport interface alone.
package flow
