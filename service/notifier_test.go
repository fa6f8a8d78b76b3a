package service

import "sync"

type emittedEvent struct {
	UserID string
	Event  string
	Data   interface{}
}

// recordingNotifier captures emits for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (n *recordingNotifier) EmitToUser(userID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emittedEvent{UserID: userID, Event: event, Data: data})
}

func (n *recordingNotifier) eventsFor(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var names []string
	for _, e := range n.events {
		if e.UserID == userID {
			names = append(names, e.Event)
		}
	}
	return names
}
