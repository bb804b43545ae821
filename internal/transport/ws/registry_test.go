package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed atomic.Int32
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Enqueue(data []byte) error {
	if f.closed.Load() > 0 {
		return ErrConnClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return ErrQueueFull
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed.Add(1)
	return nil
}

func (f *fakeConn) texts(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, b := range f.frames {
		var m MessageFrame
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m.Text)
	}
	return out
}

func TestRegistry_RegisterBroadcastUnregister(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a, b, other := newFakeConn("a"), newFakeConn("b"), newFakeConn("other")

	r.Register("room1", a)
	r.Register("room1", b)
	r.Register("room2", other)
	req.Equal(2, r.Count("room1"))

	req.NoError(r.Broadcast("room1", systemFrame("hello")))
	req.Equal([]string{"hello"}, a.texts(t))
	req.Equal([]string{"hello"}, b.texts(t))
	req.Empty(other.texts(t))

	req.True(r.Unregister("room1", a))
	req.False(r.Unregister("room1", a), "second unregister must be a no-op")
	req.False(r.Unregister("nowhere", a))

	req.NoError(r.Broadcast("room1", systemFrame("after")))
	req.Equal([]string{"hello"}, a.texts(t))
	req.Equal([]string{"hello", "after"}, b.texts(t))
}

func TestRegistry_PrunesEmptyRooms(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newFakeConn("a")

	req.True(r.Register("room1", a))
	req.False(r.Register("room1", a), "повтор не должен удвоить ссылку")
	req.Equal(map[string]int{"room1": 1}, r.Rooms())

	req.True(r.Unregister("room1", a))
	req.Empty(r.Rooms())
	r.mu.Lock()
	req.Empty(r.rooms)
	r.mu.Unlock()

	req.NoError(r.Broadcast("ghost", systemFrame("nobody")))
	r.mu.Lock()
	req.Empty(r.rooms)
	r.mu.Unlock()
}

func TestRegistry_SlowConsumerDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	slow, fast := newFakeConn("slow"), newFakeConn("fast")
	slow.full = true

	r.Register("room1", slow)
	r.Register("room1", fast)

	req.NoError(r.Broadcast("room1", systemFrame("hi")))
	req.Equal([]string{"hi"}, fast.texts(t))
	req.EqualValues(1, slow.closed.Load(), "slow consumer transport must be closed")
	// снимает с комнаты сессия, а не рассылка
	req.Equal(2, r.Count("room1"))
}

func TestRegistry_ClosedConnIsSkipped(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	gone, alive := newFakeConn("gone"), newFakeConn("alive")
	r.Register("room1", gone)
	r.Register("room1", alive)
	_ = gone.Close()

	req.NoError(r.Broadcast("room1", systemFrame("hi")))
	req.Equal([]string{"hi"}, alive.texts(t))
	req.EqualValues(1, gone.closed.Load())
}

func TestRegistry_PublishErrorSkipsBroadcast(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newFakeConn("a")
	r.Register("room1", a)

	boom := errors.New("store down")
	err := r.Publish("room1", func() (any, error) { return nil, boom })
	req.ErrorIs(err, boom)
	req.Empty(a.texts(t))
}

func TestRegistry_AttachPrimeFailureDetaches(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newFakeConn("a")

	err := r.Attach("room1", a, func() error { return errors.New("no history") })
	req.Error(err)
	req.Zero(r.Count("room1"))
	req.Empty(r.Rooms())

	req.NoError(r.Attach("room1", a, func() error { return nil }))
	req.Equal(1, r.Count("room1"))
	req.True(r.Unregister("room1", a))
	req.Empty(r.Rooms())
}

func TestRegistry_PublishOrderMatchesProduceOrder(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	listener := newFakeConn("listener")
	r.Register("room1", listener)

	var (
		seqMu    sync.Mutex
		produced []string
		wg       sync.WaitGroup
	)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Publish("room1", func() (any, error) {
				text := fmt.Sprintf("m%d", i)
				seqMu.Lock()
				produced = append(produced, text)
				seqMu.Unlock()
				return systemFrame(text), nil
			})
		}()
	}
	wg.Wait()

	req.Equal(produced, listener.texts(t))
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := fmt.Sprintf("room%d", i%3)
			for j := range 50 {
				c := newFakeConn(fmt.Sprintf("%d-%d", i, j))
				r.Register(code, c)
				_ = r.Broadcast(code, systemFrame("x"))
				r.Unregister(code, c)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, r.Rooms())
	r.mu.Lock()
	require.Empty(t, r.rooms)
	r.mu.Unlock()
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Register("room1", a)
	r.Register("room2", b)

	require.Equal(t, 2, r.CloseAll())
	require.EqualValues(t, 1, a.closed.Load())
	require.EqualValues(t, 1, b.closed.Load())
}

func TestRegistry_AttachAfterRegisterSkipsPrime(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newFakeConn("a")

	req.True(r.Register("room1", a))
	primed := false
	req.NoError(r.Attach("room1", a, func() error { primed = true; return nil }))
	req.False(primed)
	req.Equal(1, r.Count("room1"))

	// одна ссылка участника: одного Unregister хватает для удаления комнаты
	req.True(r.Unregister("room1", a))
	req.Empty(r.Rooms())
	r.mu.Lock()
	req.Empty(r.rooms)
	r.mu.Unlock()
}
