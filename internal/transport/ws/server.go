package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
	return c
}

type Server struct {
	upgrader websocket.Upgrader
	registry *Registry
	chat     ChatSvc
	validate *validator.Validate
	cfg      Config
}

func NewServer(registry *Registry, chat ChatSvc, cfg Config) *Server {
	return &Server{
		registry: registry,
		chat:     chat,
		validate: validator.New(),
		cfg:      cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WS endpoint: GET /ws/{code}?name=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	name := r.URL.Query().Get("name")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам ответил клиенту ошибкой
		slog.Warn("ws upgrade failed", "room", code, "err", err)
		return
	}

	c := newWsConn(conn, ulid.Make().String(), s.cfg)
	newSession(code, name, c, s.registry, s.chat, s.validate, s.cfg).Run(r.Context())
}
