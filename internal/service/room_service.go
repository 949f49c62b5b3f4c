package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jointrip/companion-service/internal/audit"
	"github.com/jointrip/companion-service/internal/cache"
	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/events"
	"github.com/jointrip/companion-service/internal/fault"
	"github.com/jointrip/companion-service/internal/identity"
	"github.com/jointrip/companion-service/internal/log"
	"github.com/jointrip/companion-service/internal/repository"
)

const defaultLimit = 20

// roomServiceImpl implements RoomService. Live room state lives in the
// cache store with no expiry while open; the relational store holds the
// durable record and the append-only membership ledger. Writes across
// the two stores are not transactional: a failure mid-sequence aborts
// without rolling back earlier steps.
type roomServiceImpl struct {
	rooms      repository.RoomRepository
	users      repository.UserRepository
	ledger     repository.MembershipRepository
	states     *cache.Typed[domain.RoomState]
	minter     *identity.Minter
	publisher  events.Publisher
	locks      *keyedMutex
	sf         singleflight.Group
	mintWait   time.Duration
	maxMembers int
}

// NewRoomService creates a new room service. maxMembers caps the room
// capacity a creator may ask for.
func NewRoomService(
	rooms repository.RoomRepository,
	users repository.UserRepository,
	ledger repository.MembershipRepository,
	store *cache.Store,
	minter *identity.Minter,
	publisher events.Publisher,
	mintWait time.Duration,
	maxMembers int,
) RoomService {
	return &roomServiceImpl{
		rooms:      rooms,
		users:      users,
		ledger:     ledger,
		states:     cache.NewTyped[domain.RoomState](store, cache.TagRoomState),
		minter:     minter,
		publisher:  publisher,
		locks:      newKeyedMutex(),
		mintWait:   mintWait,
		maxMembers: maxMembers,
	}
}

func validContactMethod(m domain.ContactMethod) bool {
	switch m {
	case domain.ContactQQ, domain.ContactWechat, domain.ContactPhone:
		return true
	}
	return false
}

// CreateRoom mints a room id, writes the durable record, seeds the live
// state with the owner as sole member and appends the owner's ledger
// entry, in that order.
func (s *roomServiceImpl) CreateRoom(ctx context.Context, ownerID string, req *domain.CreateRoomRequest) (*domain.RoomState, error) {
	if req.MaxMembers < 1 || req.MaxMembers > s.maxMembers {
		return nil, fault.Preconditionf("max members must be between 1 and %d, got %d", s.maxMembers, req.MaxMembers)
	}
	if !validContactMethod(req.ContactMethod) {
		return nil, fault.Preconditionf("unknown contact method %q", req.ContactMethod)
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fault.NotFoundf("user %s not found", ownerID)
		}
		return nil, err
	}

	roomID, err := s.minter.Next(ctx, s.mintWait)
	if err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:          roomID.Hex(),
		OwnerID:     ownerID,
		Destination: req.Destination,
		Origin:      req.Origin,
		DepartAt:    req.DepartAt,
		Status:      domain.RoomStatusOpen,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fault.Operationf("failed to persist room: %v", err)
	}

	state := &domain.RoomState{
		RoomID:          room.ID,
		OwnerID:         ownerID,
		Members:         []string{ownerID},
		MaxMembers:      req.MaxMembers,
		RequiredContact: req.ContactMethod,
		Status:          domain.RoomStatusOpen,
	}
	// Live state carries no TTL: an open room must not expire.
	if err := s.states.Insert(ctx, room.ID, state, 0); err != nil {
		return nil, fault.Operationf("failed to store room state: %v", err)
	}

	if err := s.appendLedger(ctx, room.ID, ownerID); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeRoomCreated, room.ID, state)
	audit.Log(ctx, audit.ActionCreateRoom, ownerID, room.ID, "room created")
	return state, nil
}

// JoinRoom adds a user to an open room and appends their ledger entry.
// The whole read-modify-write runs under the room's key lock.
func (s *roomServiceImpl) JoinRoom(ctx context.Context, userID, roomID string) (*domain.RoomState, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fault.NotFoundf("user %s not found", userID)
		}
		return nil, err
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, fault.NotFoundf("room %s not found", roomID)
		}
		return nil, err
	}

	s.locks.lock(roomID)
	defer s.locks.unlock(roomID)

	state, err := s.getState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if state.Status != domain.RoomStatusOpen {
		return nil, fault.Preconditionf("room %s is closed", roomID)
	}
	if state.IsFull() {
		return nil, fault.Preconditionf("room %s is full", roomID)
	}
	if state.HasMember(userID) {
		return nil, fault.Preconditionf("user %s is already in room %s", userID, roomID)
	}
	if user.Contact(state.RequiredContact) == "" {
		return nil, fault.Preconditionf("user %s has no %s on file", userID, state.RequiredContact)
	}

	next := *state
	next.Members = append(append([]string(nil), state.Members...), userID)
	if err := s.states.Upsert(ctx, roomID, &next, cache.KeepTTL); err != nil {
		return nil, fault.Operationf("failed to update room state: %v", err)
	}

	if err := s.appendLedger(ctx, roomID, userID); err != nil {
		return nil, err
	}

	updated, err := s.getState(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeRoomJoined, roomID, updated)
	audit.Log(ctx, audit.ActionJoinRoom, userID, roomID, "user joined room")
	return updated, nil
}

// ExitRoom removes a user from an open room. The ledger keeps the join
// event; exit frees the slot without leaving a durable trace.
func (s *roomServiceImpl) ExitRoom(ctx context.Context, userID, roomID string) (*domain.RoomState, error) {
	s.locks.lock(roomID)
	defer s.locks.unlock(roomID)

	state, err := s.getState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if state.Status != domain.RoomStatusOpen {
		return nil, fault.Preconditionf("room %s is closed", roomID)
	}
	if !state.HasMember(userID) {
		return nil, fault.Preconditionf("user %s is not in room %s", userID, roomID)
	}

	next := *state
	next.Members = make([]string, 0, len(state.Members)-1)
	for _, m := range state.Members {
		if m != userID {
			next.Members = append(next.Members, m)
		}
	}
	if err := s.states.Upsert(ctx, roomID, &next, cache.KeepTTL); err != nil {
		return nil, fault.Operationf("failed to update room state: %v", err)
	}

	s.publish(ctx, events.TypeRoomExited, roomID, &next)
	audit.Log(ctx, audit.ActionExitRoom, userID, roomID, "user exited room")
	return &next, nil
}

// CloseRoom transitions a room from open to closed. The cache write
// lands before the durable one; a crash between the two leaves the
// cache closed and the record open until the next successful close.
func (s *roomServiceImpl) CloseRoom(ctx context.Context, roomID string) error {
	s.locks.lock(roomID)
	defer s.locks.unlock(roomID)

	state, err := s.getState(ctx, roomID)
	if err != nil {
		return err
	}
	if state.Status == domain.RoomStatusClosed {
		return fault.Preconditionf("room %s is already closed", roomID)
	}

	next := *state
	next.Status = domain.RoomStatusClosed
	if err := s.states.Upsert(ctx, roomID, &next, cache.KeepTTL); err != nil {
		return fault.Operationf("failed to update room state: %v", err)
	}

	if err := s.rooms.UpdateStatus(ctx, roomID, domain.RoomStatusOpen, domain.RoomStatusClosed); err != nil {
		if errors.Is(err, repository.ErrNoEffect) {
			return fault.Operationf("room %s status update had no effect", roomID)
		}
		return err
	}

	s.publish(ctx, events.TypeRoomClosed, roomID, &next)
	audit.Log(ctx, audit.ActionCloseRoom, state.OwnerID, roomID, "room closed")
	return nil
}

// GetRoom reads the durable record and embeds the archived snapshot
// when one exists, otherwise the live state. The live state is not
// persisted back here; archival happens on the joined-rooms path.
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*domain.RoomResponse, error) {
	v, err, _ := s.sf.Do("room:"+roomID, func() (interface{}, error) {
		room, err := s.rooms.GetByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return nil, fault.NotFoundf("room %s not found", roomID)
			}
			return nil, err
		}

		var live *domain.RoomState
		if room.ArchivedSnapshot == nil {
			live, err = s.states.Get(ctx, roomID)
			if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				return nil, err
			}
		}

		resp := room.ToResponse(live)
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.RoomResponse), nil
}

// GetLiveRoom reads the live cache state only.
func (s *roomServiceImpl) GetLiveRoom(ctx context.Context, roomID string) (*domain.RoomState, error) {
	return s.getState(ctx, roomID)
}

// GetJoinedRooms answers "which rooms has this user ever joined" from
// the ledger, surviving cache expiry: the archived snapshot wins when
// present, otherwise the live state is read and, for a closed room,
// captured into the record so later queries no longer need the cache.
func (s *roomServiceImpl) GetJoinedRooms(ctx context.Context, userID string, offset, limit int) (*domain.RoomListResponse, error) {
	l := log.Ctx(ctx)

	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = defaultLimit
	}

	entries, err := s.ledger.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.ledger.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	rooms := make([]domain.RoomResponse, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.RoomID] {
			continue
		}
		seen[entry.RoomID] = true

		room, err := s.rooms.GetByID(ctx, entry.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				l.Warn().Str(log.FieldRoomID, entry.RoomID).Msg("ledger references missing room")
				continue
			}
			return nil, err
		}

		var live *domain.RoomState
		if room.ArchivedSnapshot == nil {
			live, err = s.states.Get(ctx, entry.RoomID)
			if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				return nil, err
			}
			if live != nil && room.Status == domain.RoomStatusClosed {
				if err := s.rooms.SaveSnapshot(ctx, entry.RoomID, live); err != nil &&
					!errors.Is(err, repository.ErrNoEffect) {
					l.Warn().Err(err).Str(log.FieldRoomID, entry.RoomID).Msg("failed to archive room snapshot")
				}
			}
		}

		rooms = append(rooms, room.ToResponse(live))
	}

	return &domain.RoomListResponse{
		Rooms:  rooms,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

// SearchRooms queries the durable store with the given criteria.
func (s *roomServiceImpl) SearchRooms(ctx context.Context, req *domain.SearchRoomsRequest) (*domain.RoomListResponse, error) {
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}

	found, total, err := s.rooms.Search(ctx, repository.SearchCriteria{
		Destination: req.Destination,
		Status:      req.Status,
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.RoomResponse, len(found))
	for i := range found {
		rooms[i] = found[i].ToResponse(nil)
	}

	return &domain.RoomListResponse{
		Rooms:  rooms,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

func (s *roomServiceImpl) getState(ctx context.Context, roomID string) (*domain.RoomState, error) {
	state, err := s.states.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fault.NotFoundf("room %s has no live state", roomID)
		}
		return nil, err
	}
	return state, nil
}

func (s *roomServiceImpl) appendLedger(ctx context.Context, roomID, userID string) error {
	membershipID, err := s.minter.Next(ctx, s.mintWait)
	if err != nil {
		return err
	}
	entry := &domain.Membership{
		ID:     membershipID.Hex(),
		RoomID: roomID,
		UserID: userID,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return fault.Operationf("failed to append membership entry: %v", err)
	}
	return nil
}

func (s *roomServiceImpl) publish(ctx context.Context, eventType, roomID string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(eventType, roomID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, events.Channel, event)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Str("event_type", eventType).Msg("failed to publish room event")
	}
}
