package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestStore_Rooms(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openStore(t)

	room, err := s.InsertRoom(ctx, "abc123")
	req.NoError(err)
	req.NotZero(room.ID)

	_, err = s.InsertRoom(ctx, "abc123")
	req.ErrorIs(err, domain.ErrRoomExists)

	got, err := s.FindRoomByCode(ctx, "abc123")
	req.NoError(err)
	req.Equal(room.ID, got.ID)
	req.Equal(room.CreatedAt, got.CreatedAt)

	_, err = s.FindRoomByCode(ctx, "missing")
	req.ErrorIs(err, domain.ErrRoomNotFound)
}

func TestStore_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openStore(t)
	room, err := s.InsertRoom(ctx, "abc123")
	req.NoError(err)

	_, err = s.InsertParticipant(ctx, room.ID, "Badmos 1")
	req.NoError(err)
	_, err = s.InsertParticipant(ctx, room.ID, "Badmos 1")
	req.ErrorIs(err, domain.ErrNameTaken)

	n, err := s.CountParticipants(ctx, room.ID)
	req.NoError(err)
	req.Equal(1, n)
}

func TestStore_MessagesOrdered(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openStore(t)
	room, err := s.InsertRoom(ctx, "abc123")
	req.NoError(err)
	other, err := s.InsertRoom(ctx, "zzz999")
	req.NoError(err)

	const n = 20
	for i := range n {
		_, err := s.InsertMessage(ctx, room.ID, "Zoe", fmt.Sprintf("m%d", i))
		req.NoError(err)
	}
	_, err = s.InsertMessage(ctx, other.ID, "Zoe", "elsewhere")
	req.NoError(err)

	msgs, err := s.ListMessages(ctx, room.ID)
	req.NoError(err)
	req.Len(msgs, n)
	for i, m := range msgs {
		req.Equal(fmt.Sprintf("m%d", i), m.Content)
		req.Equal("Zoe", m.ParticipantName)
		if i > 0 {
			req.False(m.SentAt.Before(msgs[i-1].SentAt))
		}
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := openStore(t)
	room, err := s.InsertRoom(ctx, "abc123")
	req.NoError(err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.InsertMessage(ctx, room.ID, "Zoe", fmt.Sprintf("c%d", i)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	msgs, err := s.ListMessages(ctx, room.ID)
	req.NoError(err)
	req.Len(msgs, 10)
}
