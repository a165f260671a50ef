package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"calendar-share/internal/middleware"
	"calendar-share/internal/models"
	"calendar-share/internal/schedule"
	"calendar-share/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PairReader looks up a user's pair
type PairReader interface {
	GetPairByUserID(ctx context.Context, userID string) (*models.Pair, error)
}

// wsRequest is a message sent by the client
type wsRequest struct {
	Type      string `json:"type"`
	PartnerID string `json:"partner_id"`
	Week      string `json:"week"`
	Delta     int    `json:"delta"`
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub    *services.WSHub
	shared SharedLoader
	pairs  PairReader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, shared SharedLoader, pairs PairReader) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, shared: shared, pairs: pairs}
}

// weekSession is the shared calendar a connection is currently viewing
type weekSession struct {
	userID    string
	partnerID string
	week      schedule.Week
	tracker   schedule.Tracker
	client    *services.WSClient
}

// HandleWebSocket handles GET /ws. The route is behind AuthMiddleware.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(userID, conn)
	defer h.hub.Unregister(client)

	ctx := r.Context()
	h.sendPairStatus(ctx, client)
	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ws := &weekSession{userID: userID, client: client}
	defer ws.tracker.Stop()

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg wsRequest
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(client, 0, "Invalid message format")
			continue
		}

		h.handleMessage(ctx, ws, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, ws *weekSession, msg wsRequest) {
	switch msg.Type {
	case services.MsgTypeViewWeek:
		if msg.PartnerID == "" {
			h.sendError(ws.client, 0, "partner_id is required")
			return
		}
		week, err := h.shared.Week(msg.Week)
		if err != nil {
			h.sendError(ws.client, 0, err.Error())
			return
		}
		ws.partnerID = msg.PartnerID
		ws.week = week
	case services.MsgTypeShiftWeek:
		if ws.partnerID == "" {
			h.sendError(ws.client, 0, "No calendar open")
			return
		}
		if msg.Delta == 0 {
			return
		}
		ws.week = ws.week.Shift(msg.Delta)
	default:
		h.sendError(ws.client, 0, "Unknown message type")
		return
	}

	h.fetchWeek(ctx, ws)
}

// fetchWeek loads the session's current week in the background. Starting a
// new fetch cancels the previous one and only the latest result is sent.
func (h *WebSocketHandler) fetchWeek(ctx context.Context, ws *weekSession) {
	fetchCtx, gen := ws.tracker.Begin(ctx)
	userID, partnerID, week := ws.userID, ws.partnerID, ws.week

	go func() {
		cal, err := h.shared.Load(fetchCtx, userID, partnerID, week)
		if fetchCtx.Err() != nil {
			return
		}

		delivered := ws.tracker.Deliver(gen, func() {
			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Str("week", week.Key()).Msg("Failed to load week")
				h.sendError(ws.client, gen, "Failed to load calendar")
				return
			}
			cal.Generation = gen
			if err := ws.client.Send(services.WSMessage{Type: services.MsgTypeWeek, Generation: gen, Data: cal}); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to send week")
			}
		})
		if !delivered {
			log.Debug().Str("user_id", userID).Uint64("generation", gen).Msg("Dropped stale week")
		}
	}()
}

func (h *WebSocketHandler) sendPairStatus(ctx context.Context, client *services.WSClient) {
	data := map[string]interface{}{"has_pair": false}
	pair, err := h.pairs.GetPairByUserID(ctx, client.UserID)
	if err == nil && pair != nil {
		data = map[string]interface{}{
			"has_pair":   true,
			"pair_id":    pair.ID,
			"partner_id": pair.PartnerOf(client.UserID),
		}
	}

	if err := client.Send(services.WSMessage{Type: services.MsgTypePairStatus, Data: data}); err != nil {
		log.Error().
			Err(err).
			Str("user_id", client.UserID).
			Msg("Failed to send pair_status message")
	}
}

// sendError sends an error message to the WebSocket connection
func (h *WebSocketHandler) sendError(client *services.WSClient, gen uint64, message string) {
	msg := services.WSMessage{
		Type:       services.MsgTypeError,
		Message:    message,
		Generation: gen,
	}
	if err := client.Send(msg); err != nil {
		log.Error().Err(err).Str("user_id", client.UserID).Msg("Failed to send error")
	}
}
