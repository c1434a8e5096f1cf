package transport

import "context"

type EventKind string

const (
	// EventQR carries a fresh QR payload that must be scanned to authenticate.
	EventQR EventKind = "qr"
	// EventAuthenticated fires once the scan completed.
	EventAuthenticated EventKind = "authenticated"
	// EventReady fires once the session handshake completed and sends may start.
	EventReady EventKind = "ready"
	// EventDisconnected fires when the session drops (any reason).
	EventDisconnected EventKind = "disconnected"
)

// Event is a transport lifecycle signal.
type Event struct {
	Kind EventKind

	// QR is set for EventQR.
	QR string
	// Reason is set for EventDisconnected.
	Reason string
}

// Client is the chat transport capability. Implementations deliver a message
// to a recipient identifier of the form <country><number>@<domain> and
// surface session lifecycle events on the out channel passed to Start.
//
// Send, Logout and Restart report transport problems as plain errors; callers
// treat them as per-operation failures, never as fatal.
type Client interface {
	Start(ctx context.Context, out chan<- Event) error
	Stop(ctx context.Context) error

	Send(ctx context.Context, to string, text string) error

	// Logout invalidates the stored credentials of the current session.
	Logout(ctx context.Context) error
	// Restart tears the client session down and brings up a fresh one,
	// which produces a new QR event when no credentials remain.
	Restart(ctx context.Context) error

	// Connected reports whether a session is currently established.
	Connected() bool
}
