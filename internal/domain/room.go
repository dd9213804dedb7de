package domain

import "errors"

type (
	RoomID   string
	RoomType string
)

const (
	RoomTypeLobby RoomType = "lobby"
	RoomTypeGame  RoomType = "game"
)

var (
	ErrUnknownRoomType = errors.New("unknown room type")
	ErrRoomFull        = errors.New("room full")
	ErrRoomDisposed    = errors.New("room disposed")
)
