package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/logging"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager fans audit events out to connected admin clients. Registration and
// inbound messages are serialized through Run.
type Manager struct {
	clients        map[string]*Client
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	done           chan struct{}
	maxConnections int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         *logging.Logger
}

func NewManager(maxConnections int, writeWait, pongWait, pingPeriod time.Duration, logger *logging.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		done:           make(chan struct{}),
		maxConnections: maxConnections,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		logger:         logger.With("component", "websocket"),
	}
}

func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			close(m.done)
			return

		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

// Add hands client to Run for registration. It reports false once the
// manager has stopped.
func (m *Manager) Add(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

// unregister hands client to Run, or drops it once Run has stopped.
func (m *Manager) unregister(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) dispatch(msg *ClientMessage) bool {
	select {
	case m.HandleMessage <- msg:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if len(m.clients) >= m.maxConnections {
		m.logger.Warn("max event stream connections reached", "client_id", client.ID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.logger.Info("client registered", "client_id", client.ID, "remote", client.Remote)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		m.logger.Info("client unregistered", "client_id", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		delete(m.clients, id)
		close(client.Send)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Debug("ignoring malformed message", "client_id", clientMsg.Client.ID, "error", err)
		return
	}

	switch msg.Type {
	case TypePing:
		pong, err := NewMessage(TypePong, nil)
		if err != nil {
			return
		}
		m.SendToClient(clientMsg.Client.ID, pong)
	default:
		m.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// BroadcastEvent queues event for every client without blocking. Clients
// whose buffer is full are disconnected.
func (m *Manager) BroadcastEvent(event domain.Event) {
	msg, err := NewMessage(TypeEvent, event)
	if err != nil {
		m.logger.Error("failed to encode event", "error", err)
		return
	}
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("failed to encode event", "error", err)
		return
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for clientID, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Warn("client send buffer full, closing connection", "client_id", clientID)
			go m.unregister(client)
		}
	}
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn("client send buffer full", "client_id", clientID)
	}

	return nil
}

func (m *Manager) Connections() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}
