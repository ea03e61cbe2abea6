package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	coordinator *app.Coordinator
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	Room     string           `json:"room"`
	Settings *domain.Settings `json:"settings"`
}

type joinRoomPayload struct {
	Room   string `json:"room"`
	Player struct {
		Name string `json:"name"`
	} `json:"player"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type updateSettingsPayload struct {
	Room     string          `json:"room"`
	Settings domain.Settings `json:"settings"`
}

type readyPayload struct {
	Room  string `json:"room"`
	Ready bool   `json:"ready"`
}

type answerPayload struct {
	Room       string  `json:"room"`
	QuestionID int     `json:"questionId"`
	Answer     *string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session coordinator. Each connection gets a fresh identity; that identity
// is the player id for every room the connection joins.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// One subscription per room this connection is attached to.
	cancels := make(map[string]func())
	subscribe := func(room string) error {
		if _, ok := cancels[room]; ok {
			return nil
		}
		events, cancel, _, err := h.coordinator.Subscribe(room)
		if err != nil {
			return err
		}
		cancels[room] = cancel
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			for {
				select {
				case evt, ok := <-events:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: string(evt.Type), Payload: evt.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return nil
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(connID, inbound, send, subscribe)
	}

	close(closeSignals)
	pumps.Wait()
	for _, cancel := range cancels {
		cancel()
	}
	h.coordinator.Disconnect(connID)
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(connID string, inbound inboundMessage, send chan<- outboundMessage[any], subscribe func(string) error) {
	switch inbound.Type {
	case "create_room":
		var payload createRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		h.coordinator.EnsureRoom(payload.Room, connID, payload.Settings)

	case "join_room":
		var payload joinRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		// Subscribe before joining so the roster broadcast triggered by our
		// own join reaches us too.
		if err := subscribe(payload.Room); err != nil {
			send <- errorMessage(err)
			return
		}
		state, err := h.coordinator.Join(payload.Room, domain.Player{ID: connID, Name: payload.Player.Name})
		if err != nil {
			send <- errorMessage(err)
			return
		}
		// State catch-up for the late joiner only; roster arrives via broadcast.
		send <- outboundMessage[any]{Type: string(domain.EventSettingsUpdate), Payload: state.Settings}
		send <- outboundMessage[any]{Type: string(domain.EventReadyStates), Payload: state.Ready}

	case "subscribe_room":
		var payload roomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		if err := subscribe(payload.Room); err != nil {
			send <- errorMessage(err)
			return
		}
		players, err := h.coordinator.Roster(payload.Room)
		if err != nil {
			send <- errorMessage(err)
			return
		}
		// Only the subscribing connection gets the current roster.
		send <- outboundMessage[any]{Type: string(domain.EventPlayerJoined), Payload: players}

	case "update_settings":
		var payload updateSettingsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		if err := h.coordinator.UpdateSettings(payload.Room, connID, payload.Settings); err != nil {
			send <- errorMessage(err)
		}

	case "player_ready":
		var payload readyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		if err := h.coordinator.SetReady(payload.Room, connID, payload.Ready); err != nil {
			send <- errorMessage(err)
		}

	case "start_game":
		var payload roomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		if err := h.coordinator.StartGame(context.Background(), payload.Room); err != nil {
			send <- errorMessage(err)
		}

	case "submit_answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Room == "" {
			send <- invalidPayload()
			return
		}
		answer := domain.NoAnswer
		if payload.Answer != nil {
			answer = *payload.Answer
		}
		if err := h.coordinator.SubmitAnswer(payload.Room, connID, payload.QuestionID, answer); err != nil {
			send <- errorMessage(err)
		}

	default:
		send <- outboundMessage[any]{Type: "game_error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

// errorMessage maps coordinator errors onto the wire-level error events the
// clients understand.
func errorMessage(err error) outboundMessage[any] {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return outboundMessage[any]{Type: "room_not_found", Payload: errorPayload{Message: err.Error()}}
	case errors.Is(err, domain.ErrRoomLocked):
		return outboundMessage[any]{Type: "room_locked", Payload: struct{}{}}
	default:
		return outboundMessage[any]{Type: "game_error", Payload: errorPayload{Message: err.Error()}}
	}
}

func invalidPayload() outboundMessage[any] {
	return outboundMessage[any]{Type: "game_error", Payload: errorPayload{Message: "invalid payload"}}
}
