package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type Conn interface {
	ID() string
	Enqueue(data []byte) error
	Close() error
}

// Registry хранит живые подключения по коду комнаты.
// Общий mu держится только на поиск/создание/удаление записи комнаты;
// всё остальное идёт под замками конкретной комнаты.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	// pubMu упорядочивает публикации в комнате: порядок рассылки = порядок сохранения
	pubMu sync.Mutex

	mu    sync.RWMutex
	conns map[Conn]struct{}

	refs int // участники + публикации в полёте; под Registry.mu
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomEntry)}
}

func (r *Registry) acquire(code string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[code]
	if !ok {
		e = &roomEntry{conns: make(map[Conn]struct{})}
		r.rooms[code] = e
	}
	e.refs++
	return e
}

// release снимает ссылку; пустая комната удаляется.
func (r *Registry) release(code string, e *roomEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.refs--
	if e.refs == 0 && r.rooms[code] == e {
		delete(r.rooms, code)
	}
}

func (r *Registry) lookup(code string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rooms[code]
}

// Register добавляет подключение в комнату и держит на неё ссылку до Unregister.
// Возвращает false, если c уже был в комнате: повторный Register ничего не меняет.
func (r *Registry) Register(code string, c Conn) bool {
	e := r.acquire(code)
	if !e.add(c) {
		r.release(code, e)
		return false
	}
	return true
}

// Attach делает Register и под замком публикаций комнаты вызывает prime:
// никакая рассылка не вклинится между регистрацией и кадрами prime.
// Если prime вернул ошибку, подключение снимается с комнаты.
func (r *Registry) Attach(code string, c Conn, prime func() error) error {
	e := r.acquire(code) // держит запись, пока берём её pubMu
	defer r.release(code, e)

	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	if !r.Register(code, c) {
		return nil
	}
	if err := prime(); err != nil {
		r.Unregister(code, c)
		return err
	}
	return nil
}

// Unregister идемпотентен; возвращает true, если c действительно был в комнате.
func (r *Registry) Unregister(code string, c Conn) bool {
	e := r.lookup(code)
	if e == nil {
		return false
	}
	if !e.remove(c) {
		return false
	}
	r.release(code, e)
	return true
}

// Publish под замком публикаций комнаты вызывает produce (например, запись в БД)
// и рассылает результат всем, кто в комнате на этот момент.
func (r *Registry) Publish(code string, produce func() (any, error)) error {
	e := r.acquire(code)
	defer r.release(code, e)

	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	msg, err := produce()
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	e.fanout(code, data)
	return nil
}

func (r *Registry) Broadcast(code string, msg any) error {
	return r.Publish(code, func() (any, error) { return msg, nil })
}

// Count: число живых подключений в комнате.
func (r *Registry) Count(code string) int {
	e := r.lookup(code)
	if e == nil {
		return 0
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.conns)
}

// Rooms возвращает снимок: код комнаты -> число подключений.
func (r *Registry) Rooms() map[string]int {
	r.mu.Lock()
	entries := make(map[string]*roomEntry, len(r.rooms))
	for code, e := range r.rooms {
		entries[code] = e
	}
	r.mu.Unlock()

	out := make(map[string]int, len(entries))
	for code, e := range entries {
		e.mu.RLock()
		if n := len(e.conns); n > 0 {
			out[code] = n
		}
		e.mu.RUnlock()
	}
	return out
}

// CloseAll закрывает транспорт всех подключений; снятие с комнат делают сами сессии.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	entries := make([]*roomEntry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	closed := 0
	for _, e := range entries {
		for _, c := range e.snapshot() {
			_ = c.Close()
			closed++
		}
	}
	return closed
}

func (e *roomEntry) add(c Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.conns[c]; ok {
		return false
	}
	e.conns[c] = struct{}{}
	return true
}

func (e *roomEntry) remove(c Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.conns[c]; !ok {
		return false
	}
	delete(e.conns, c)
	return true
}

func (e *roomEntry) snapshot() []Conn {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Conn, 0, len(e.conns))
	for c := range e.conns {
		out = append(out, c)
	}
	return out
}

// fanout доставляет data каждому подключению независимо. Переполненная очередь
// означает медленного потребителя: закрываем его транспорт, а из комнаты его снимет его же сессия.
func (e *roomEntry) fanout(code string, data []byte) {
	for _, c := range e.snapshot() {
		err := c.Enqueue(data)
		switch {
		case err == nil:
		case errors.Is(err, ErrQueueFull):
			slog.Warn("ws slow consumer, closing", "room", code, "conn", c.ID())
			_ = c.Close()
		default:
			slog.Debug("ws skip closed conn", "room", code, "conn", c.ID(), "err", err)
		}
	}
}
