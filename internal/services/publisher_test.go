package services_test

import (
	"sync"

	"live-quiz-backend/internal/ws"
)

// recordingPublisher delivers messages into per-connection inboxes the way
// the hub would, so tests can check who saw what.
type recordingPublisher struct {
	mu      sync.Mutex
	rooms   map[string]map[string]bool
	inboxes map[string][]ws.WSMessage
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		rooms:   make(map[string]map[string]bool),
		inboxes: make(map[string][]ws.WSMessage),
	}
}

func (p *recordingPublisher) Subscribe(pin, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rooms[pin] == nil {
		p.rooms[pin] = make(map[string]bool)
	}
	p.rooms[pin][connID] = true
}

func (p *recordingPublisher) Send(connID string, msg ws.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inboxes[connID] = append(p.inboxes[connID], msg)
}

func (p *recordingPublisher) Broadcast(pin string, msg ws.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for connID := range p.rooms[pin] {
		p.inboxes[connID] = append(p.inboxes[connID], msg)
	}
}

func (p *recordingPublisher) RoomSize(pin string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rooms[pin])
}

func (p *recordingPublisher) inbox(connID string) []ws.WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ws.WSMessage(nil), p.inboxes[connID]...)
}

func (p *recordingPublisher) ofType(connID, eventType string) []ws.WSMessage {
	var out []ws.WSMessage
	for _, m := range p.inbox(connID) {
		if m.Type == eventType {
			out = append(out, m)
		}
	}
	return out
}

func (p *recordingPublisher) types(connID string) []string {
	msgs := p.inbox(connID)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func (p *recordingPublisher) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inboxes = make(map[string][]ws.WSMessage)
}
