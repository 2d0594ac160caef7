// Package websocket keeps a lightweight connection hub whose only job is to
// tell a device's peers that notes changed. Note data never travels over the
// socket; devices pull it through the sync endpoints.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Manager struct {
	clients        map[string]*Client
	ownerIndex     map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	Inbound        chan *ClientMessage
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		ownerIndex:     make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		Inbound:        make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.Inbound:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.ownerIndex[client.OwnerID] == nil {
		m.ownerIndex[client.OwnerID] = make(map[string]bool)
	}

	if len(m.ownerIndex[client.OwnerID]) >= m.maxConnPerUser {
		slog.Warn("max websocket connections reached", "owner", client.OwnerID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.ownerIndex[client.OwnerID][client.ID] = true

	slog.Debug("websocket client registered", "client", client.ID, "credential", client.CredentialID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.ownerIndex[client.OwnerID], client.ID)

		if len(m.ownerIndex[client.OwnerID]) == 0 {
			delete(m.ownerIndex, client.OwnerID)
		}

		close(client.Send)
		slog.Debug("websocket client unregistered", "client", client.ID)
	}
}

// processMessage answers pings; anything else from a client is ignored. The
// socket is a one-way nudge channel, not a command surface.
func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		slog.Warn("discarding malformed websocket message", "client", clientMsg.Client.ID, "error", err)
		return
	}

	if msg.Type == TypePing {
		pong, err := NewMessage(TypePong, nil)
		if err != nil {
			return
		}
		m.sendToClient(clientMsg.Client.ID, pong)
	}
}

// NotesChanged broadcasts a nudge naming the changed notes to every socket
// the owner has open. It satisfies the sync coordinator's Notifier.
func (m *Manager) NotesChanged(ownerID string, noteIDs []string, syncTime int64) {
	msg, err := NewMessage(TypeNotesChanged, &NotesChangedPayload{
		NoteIDs:  noteIDs,
		SyncTime: syncTime,
	})
	if err != nil {
		slog.Warn("failed to build notes_changed message", "error", err)
		return
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for clientID := range m.ownerIndex[ownerID] {
		client := m.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			slog.Warn("websocket send buffer full, dropping client", "client", clientID)
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}
}

func (m *Manager) sendToClient(clientID string, message *Message) {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
	}
}

func (m *Manager) OwnerConnections(ownerID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.ownerIndex[ownerID])
}
