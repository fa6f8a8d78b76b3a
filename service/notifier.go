package service

// Notifier is the capability to emit an event into a user's room. The
// websocket hub implements it; services receive it at construction so the
// realtime layer stays an explicit dependency rather than a global handle.
// Delivery is best-effort: a user with no connected sockets simply misses
// the event.
type Notifier interface {
	EmitToUser(userID, event string, data interface{})
}

// NopNotifier discards every event. Useful in tests and tooling.
type NopNotifier struct{}

func (NopNotifier) EmitToUser(userID, event string, data interface{}) {}
