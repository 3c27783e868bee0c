package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/auth"
	"github.com/shanekizito/Thinkly/internal/domain"
)

const writeWait = 10 * time.Second

// WSHandler streams a user's presentation events and accepts modal
// dismissals and challenge answers.
type WSHandler struct {
	users      app.UserRepository
	hub        *app.Hub
	challenges *app.ChallengeService
	clock      app.Clock
	upgrader   websocket.Upgrader
	log        *logrus.Entry
}

func NewWSHandler(users app.UserRepository, hub *app.Hub, challenges *app.ChallengeService, clock app.Clock) *WSHandler {
	return &WSHandler{
		users:      users,
		hub:        hub,
		challenges: challenges,
		clock:      clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logrus.WithField("component", "ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connPublisher delivers level-up announcements to this connection only.
type connPublisher struct {
	ctx  context.Context
	send chan<- outboundMessage
}

func (p connPublisher) Publish(_ context.Context, ev domain.Event) {
	select {
	case p.send <- outboundMessage{Type: string(ev.Type), Payload: ev}:
	case <-p.ctx.Done():
	}
}

// ServeWS upgrades an authenticated request and runs the connection until the client leaves.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := h.users.Get(r.Context(), uid); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	log := h.log.WithField("uid", uid)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := h.hub.Subscribe(uid)
	defer unsubscribe()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	watcherDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				cancel()
				// keep draining so producers never block
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	watcher := app.NewLevelWatcher(h.users, connPublisher{ctx: ctx, send: send}, h.clock, uid)
	go func() {
		defer close(watcherDone)
		if err := watcher.Run(ctx); err != nil {
			log.WithError(err).Warn("level watcher stopped")
		}
	}()

	h.readLoop(ctx, conn, uid, watcher, send)

	cancel()
	<-watcherDone
	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, uid string, watcher *app.LevelWatcher, send chan<- outboundMessage) {
	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-ctx.Done():
		}
	}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "dismiss":
			watcher.Dismiss(ctx)
		case "answer":
			var payload answerRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == "" {
				reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			res, err := h.challenges.Submit(ctx, uid, payload.Option)
			if err != nil {
				msg, status := publicMessage(err)
				if status >= 500 {
					h.log.WithField("uid", uid).WithError(err).Error("ws answer failed")
				}
				reply(outboundMessage{Type: "error", Payload: errorPayload{Message: msg}})
				continue
			}
			reply(outboundMessage{Type: "challengeResult", Payload: res})
		default:
			reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
