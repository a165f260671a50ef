package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"calendar-share/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// WebSocket message types
const (
	MsgTypeSession           = "session"
	MsgTypePairStatus        = "pair_status"
	MsgTypePairInvite        = "pair_invite"
	MsgTypePairCreated       = "pair_created"
	MsgTypePairDeleted       = "pair_deleted"
	MsgTypeConnectionUpdated = "connection_updated"
	MsgTypeWeek              = "week"
	MsgTypeError             = "error"
	MsgTypeViewWeek          = "view_week"
	MsgTypeShiftWeek         = "shift_week"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type       string      `json:"type"`
	Message    string      `json:"message,omitempty"`
	Generation uint64      `json:"generation,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// WSClient is one registered connection. Writes are serialized because a
// gorilla connection supports a single concurrent writer.
type WSClient struct {
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// Send writes a message to the connection
func (c *WSClient) Send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub manages WebSocket connections
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*WSClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*WSClient),
	}
}

// Register registers a new WebSocket connection for a user, replacing any
// previous one.
func (h *WSHub) Register(userID string, conn *websocket.Conn) *WSClient {
	client := &WSClient{UserID: userID, conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = client

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
	return client
}

// Unregister removes client if it is still the user's current connection
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.connections[client.UserID]; exists && current == client {
		delete(h.connections, client.UserID)
		log.Info().Str("user_id", client.UserID).Msg("WebSocket connection unregistered")
	}
	client.conn.Close()
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if err := client.Send(message); err != nil {
		h.Unregister(client)
		return err
	}
	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifySession forwards a session change to the user's connection. A
// signed out user's connection is closed afterwards.
func (h *WSHub) NotifySession(event SessionEvent) {
	if !h.IsOnline(event.UserID) {
		return
	}

	payload := event
	if payload.Session != nil {
		s := *payload.Session
		s.Token = ""
		payload.Session = &s
	}
	if err := h.SendToUser(event.UserID, WSMessage{Type: MsgTypeSession, Data: payload}); err != nil {
		log.Error().Err(err).Str("user_id", event.UserID).Msg("Failed to send session event")
		return
	}

	if event.Type == SessionSignedOut {
		h.mu.RLock()
		client, exists := h.connections[event.UserID]
		h.mu.RUnlock()
		if exists {
			h.Unregister(client)
		}
	}
}

// NotifyInvite tells a registered invitee that an invite is waiting
func (h *WSHub) NotifyInvite(inviteeID string, invite *models.Invite) error {
	return h.SendToUser(inviteeID, WSMessage{
		Type: MsgTypePairInvite,
		Data: map[string]string{
			"invite_id":  invite.ID,
			"inviter_id": invite.InviterID,
		},
	})
}

// NotifyPairCreated notifies a member when a pair is created
func (h *WSHub) NotifyPairCreated(userID string, pair *models.Pair) error {
	message := WSMessage{
		Type: MsgTypePairCreated,
		Data: map[string]interface{}{
			"pair_id":    pair.ID,
			"user_a_id":  pair.UserAID,
			"user_b_id":  pair.UserBID,
			"created_at": pair.CreatedAt,
		},
	}
	return h.SendToUser(userID, message)
}

// NotifyPairDeleted notifies the partner when a pair is deleted
func (h *WSHub) NotifyPairDeleted(partnerID string) error {
	return h.SendToUser(partnerID, WSMessage{Type: MsgTypePairDeleted})
}

// NotifyConnectionUpdated tells partnerID that userID connected a calendar
func (h *WSHub) NotifyConnectionUpdated(partnerID, userID string) error {
	return h.SendToUser(partnerID, WSMessage{
		Type: MsgTypeConnectionUpdated,
		Data: map[string]string{"user_id": userID},
	})
}

// CloseAll closes every registered connection
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.connections {
		client.conn.Close()
		delete(h.connections, id)
	}
}
