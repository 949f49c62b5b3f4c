package repository

import (
	"context"
	"errors"

	"github.com/jointrip/companion-service/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
	// ErrNoEffect means a write touched zero rows.
	ErrNoEffect = errors.New("write had no effect")
)

// SearchCriteria filters durable room queries.
type SearchCriteria struct {
	Destination string
	Status      string
	OwnerID     string
	Offset      int
	Limit       int
}

// RoomRepository is the durable accessor for room records.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// UpdateStatus moves a room from one status to another; ErrNoEffect
	// when no row was in the expected source status.
	UpdateStatus(ctx context.Context, id string, from, to domain.RoomStatus) error
	// SaveSnapshot captures the live state into the archived snapshot
	// column. Only a still-NULL snapshot is written.
	SaveSnapshot(ctx context.Context, id string, state *domain.RoomState) error
	Search(ctx context.Context, criteria SearchCriteria) ([]domain.Room, int, error)
}

// UserRepository is the durable accessor for user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateContact applies only the non-nil contact fields.
	UpdateContact(ctx context.Context, id string, req *domain.UpdateContactRequest) error
}

// MembershipRepository is the append-only join-event ledger. Entries
// are never updated or deleted, which lets "which rooms has user X
// ever joined" queries work independent of cache TTL.
type MembershipRepository interface {
	Append(ctx context.Context, entry *domain.Membership) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Membership, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
