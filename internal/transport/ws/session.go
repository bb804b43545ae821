package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

type State int32

const (
	StateConnecting State = iota
	StateIdentityResolved
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentityResolved:
		return "identity_resolved"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type ChatSvc interface {
	JoinRoom(ctx context.Context, code, name string) (*domain.Room, string, error)
	GetHistory(ctx context.Context, code string) ([]domain.Message, error)
	PostMessage(ctx context.Context, room *domain.Room, sender, content string) (*domain.Message, error)
}

// Session ведёт жизненный цикл одного WS-клиента:
// Connecting -> IdentityResolved -> Active -> Closed.
type Session struct {
	code      string
	requested string // имя из ?name=, может быть пустым

	conn     *wsConn
	registry *Registry
	chat     ChatSvc
	validate *validator.Validate
	cfg      Config
	log      *slog.Logger

	state atomic.Int32

	// заполняются при переходе в IdentityResolved
	room *domain.Room
	name string

	attached  atomic.Bool
	closeOnce sync.Once
}

func newSession(code, name string, conn *wsConn, registry *Registry, chat ChatSvc, v *validator.Validate, cfg Config) *Session {
	return &Session{
		code:      code,
		requested: name,
		conn:      conn,
		registry:  registry,
		chat:      chat,
		validate:  v,
		cfg:       cfg,
		log:       slog.With("room", code, "conn", conn.ID()),
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Name() string { return s.name }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run проводит сессию через все состояния и возвращается после отключения клиента.
func (s *Session) Run(ctx context.Context) {
	s.log = logger.FromContext(ctx).With("room", s.code, "conn", s.conn.ID())

	if err := s.resolveIdentity(ctx); err != nil {
		s.reject(err)
		return
	}

	go s.conn.writeLoop()

	if err := s.activate(ctx); err != nil {
		s.log.Warn("ws activate failed", "err", err)
		s.conn.closeWith(websocket.CloseInternalServerErr, "history unavailable")
		s.Close()
		return
	}

	s.readLoop(ctx)
	s.Close()
}

func (s *Session) resolveIdentity(ctx context.Context) error {
	room, name, err := s.chat.JoinRoom(ctx, s.code, s.requested)
	if err != nil {
		return err
	}
	s.room, s.name = room, name
	s.log = s.log.With("name", name)
	s.setState(StateIdentityResolved)
	return nil
}

func (s *Session) reject(err error) {
	if errors.Is(err, domain.ErrRoomNotFound) {
		s.log.Info("ws rejected: room not found")
		s.conn.closeWith(websocket.ClosePolicyViolation, "room not found")
	} else {
		s.log.Error("ws identity failed", "err", err)
		s.conn.closeWith(websocket.CloseInternalServerErr, "internal error")
	}
	s.setState(StateClosed)
}

// activate: регистрация, your_identity, history, затем "X joined." всей комнате.
func (s *Session) activate(ctx context.Context) error {
	err := s.registry.Attach(s.code, s.conn, func() error {
		if err := s.send(identityFrame(s.name)); err != nil {
			return err
		}
		msgs, err := s.chat.GetHistory(ctx, s.code)
		if err != nil {
			return err
		}
		return s.send(historyFrame(msgs))
	})
	if err != nil {
		return err
	}
	s.attached.Store(true)
	s.setState(StateActive)
	s.log.Info("ws joined")

	return s.registry.Broadcast(s.code, systemFrame(s.name+" joined."))
}

func (s *Session) readLoop(ctx context.Context) {
	c := s.conn.conn
	c.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read failed", "err", err)
			}
			return
		}
		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		s.sendError("invalid json")
		return
	}
	if err := s.validate.Struct(in); err != nil {
		s.log.Debug("ws invalid frame", "err", err)
		s.sendError("invalid frame")
		return
	}

	switch in.Type {
	case TypeChatMessage:
		s.handleChat(ctx, *in.Content)
	default:
		s.sendError("unknown message type: " + in.Type)
	}
}

// handleChat: сначала запись в хранилище, потом рассылка. Ошибка записи уходит
// только отправителю, сессия продолжает работу.
func (s *Session) handleChat(ctx context.Context, content string) {
	err := s.registry.Publish(s.code, func() (any, error) {
		msg, err := s.chat.PostMessage(ctx, s.room, s.name, content)
		if err != nil {
			return nil, err
		}
		return chatFrame(msg.ParticipantName, msg.Content), nil
	})
	if err == nil {
		return
	}
	s.log.Warn("ws chat save failed", "err", err)
	s.sendError("message not delivered: store failure")
}

func (s *Session) send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.conn.Enqueue(data)
}

func (s *Session) sendError(msg string) {
	if err := s.send(errorFrame(msg)); err != nil {
		s.log.Debug("ws send error frame failed", "err", err)
	}
}

// Close снимает сессию с комнаты и закрывает транспорт. Повторный вызов ничего не делает;
// "X left." уходит не больше одного раза.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.registry.Unregister(s.code, s.conn) && s.attached.Load() {
			if err := s.registry.Broadcast(s.code, systemFrame(s.name+" left.")); err != nil {
				s.log.Warn("ws leave broadcast failed", "err", err)
			}
			s.log.Info("ws left")
		}
		_ = s.conn.Close()
		s.setState(StateClosed)
	})
}
