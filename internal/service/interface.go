package service

import (
	"context"

	"github.com/jointrip/companion-service/internal/domain"
)

// RoomService defines the room lifecycle contract: rooms live in the
// cache while open, close exactly once, and leave a durable trail in
// the relational store.
type RoomService interface {
	CreateRoom(ctx context.Context, ownerID string, req *domain.CreateRoomRequest) (*domain.RoomState, error)
	JoinRoom(ctx context.Context, userID, roomID string) (*domain.RoomState, error)
	ExitRoom(ctx context.Context, userID, roomID string) (*domain.RoomState, error)
	CloseRoom(ctx context.Context, roomID string) error
	GetRoom(ctx context.Context, roomID string) (*domain.RoomResponse, error)
	GetLiveRoom(ctx context.Context, roomID string) (*domain.RoomState, error)
	GetJoinedRooms(ctx context.Context, userID string, offset, limit int) (*domain.RoomListResponse, error)
	SearchRooms(ctx context.Context, req *domain.SearchRoomsRequest) (*domain.RoomListResponse, error)
}

// UserService defines registration, login and session resolution.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterUserRequest) (*domain.User, error)
	UpdateContact(ctx context.Context, userID string, req *domain.UpdateContactRequest) error
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Authenticate(ctx context.Context, sessionID string) (string, error)
}
