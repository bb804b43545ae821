package domain

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room code already exists")
	ErrNameTaken    = errors.New("participant name already taken in the room")
	ErrStoreFailure = errors.New("store failure")
)
