package postgres

// Store собирает репозитории в одно хранилище для сервиса.
type Store struct {
	*RoomRepository
	*ParticipantRepository
	*ChatRepository
}

func NewStore(db *DB) *Store {
	return &Store{
		RoomRepository:        NewRoomRepository(db.Pool),
		ParticipantRepository: NewParticipantRepository(db.Pool),
		ChatRepository:        NewChatRepository(db.Pool),
	}
}
