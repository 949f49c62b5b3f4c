package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jointrip/companion-service/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.RoomModel{},
		&domain.UserModel{},
		&domain.MembershipModel{},
	))
	return db
}

func TestRoomCreateGet(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := &domain.Room{
		ID:          "room-1",
		OwnerID:     "user-a",
		Destination: "Chengdu",
		Origin:      "Mianyang",
		Status:      domain.RoomStatusOpen,
	}
	require.NoError(t, repo.Create(ctx, room))

	got, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "user-a", got.OwnerID)
	assert.Equal(t, domain.RoomStatusOpen, got.Status)
	assert.Nil(t, got.ArchivedSnapshot)

	_, err = repo.GetByID(ctx, "absent")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomUpdateStatusGuard(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Room{
		ID: "room-1", OwnerID: "user-a", Destination: "Chengdu", Status: domain.RoomStatusOpen,
	}))

	require.NoError(t, repo.UpdateStatus(ctx, "room-1", domain.RoomStatusOpen, domain.RoomStatusClosed))

	got, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusClosed, got.Status)

	// Second transition finds no row in the source status.
	err = repo.UpdateStatus(ctx, "room-1", domain.RoomStatusOpen, domain.RoomStatusClosed)
	require.ErrorIs(t, err, ErrNoEffect)
}

func TestRoomSaveSnapshotOnce(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Room{
		ID: "room-1", OwnerID: "user-a", Destination: "Chengdu", Status: domain.RoomStatusOpen,
	}))

	state := &domain.RoomState{
		RoomID:          "room-1",
		OwnerID:         "user-a",
		Members:         []string{"user-a", "user-b"},
		MaxMembers:      2,
		RequiredContact: domain.ContactPhone,
		Status:          domain.RoomStatusClosed,
	}
	require.NoError(t, repo.SaveSnapshot(ctx, "room-1", state))

	got, err := repo.GetByID(ctx, "room-1")
	require.NoError(t, err)
	require.NotNil(t, got.ArchivedSnapshot)
	assert.Equal(t, []string{"user-a", "user-b"}, got.ArchivedSnapshot.Members)
	assert.Equal(t, domain.ContactPhone, got.ArchivedSnapshot.RequiredContact)

	// The first capture is stable; a second write touches nothing.
	err = repo.SaveSnapshot(ctx, "room-1", &domain.RoomState{RoomID: "room-1"})
	require.ErrorIs(t, err, ErrNoEffect)
}

func TestRoomSearch(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	for _, room := range []*domain.Room{
		{ID: "r1", OwnerID: "a", Destination: "Chengdu", Status: domain.RoomStatusOpen},
		{ID: "r2", OwnerID: "a", Destination: "Chengdu", Status: domain.RoomStatusClosed},
		{ID: "r3", OwnerID: "b", Destination: "Xi'an", Status: domain.RoomStatusOpen},
	} {
		require.NoError(t, repo.Create(ctx, room))
	}

	rooms, total, err := repo.Search(ctx, SearchCriteria{Destination: "Chengdu", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rooms, 2)

	rooms, total, err = repo.Search(ctx, SearchCriteria{Status: string(domain.RoomStatusOpen), Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	rooms, total, err = repo.Search(ctx, SearchCriteria{OwnerID: "a", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, rooms, 1)
}

func TestUserCreateGetUpdateContact(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "user-a", Nickname: "alex"}))

	got, err := repo.GetByID(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, "alex", got.Nickname)
	assert.Empty(t, got.Phone)

	phone := "13800000000"
	require.NoError(t, repo.UpdateContact(ctx, "user-a", &domain.UpdateContactRequest{Phone: &phone}))

	got, err = repo.GetByID(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
	assert.Empty(t, got.QQ)

	_, err = repo.GetByID(ctx, "absent")
	require.ErrorIs(t, err, ErrUserNotFound)

	err = repo.UpdateContact(ctx, "absent", &domain.UpdateContactRequest{Phone: &phone})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestMembershipLedgerAppendOnly(t *testing.T) {
	repo := NewGormMembershipRepository(newTestDB(t))
	ctx := context.Background()

	entries := []*domain.Membership{
		{ID: "m1", RoomID: "r1", UserID: "user-a", JoinedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "m2", RoomID: "r2", UserID: "user-a", JoinedAt: time.Now().Add(-time.Hour)},
		{ID: "m3", RoomID: "r1", UserID: "user-b", JoinedAt: time.Now()},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
	}

	got, err := repo.ListByUser(ctx, "user-a", 0, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Most recent first.
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m1", got[1].ID)

	count, err := repo.CountByUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err = repo.ListByUser(ctx, "user-a", 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}
