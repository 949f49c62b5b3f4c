package domain

import (
	"time"
)

// RoomStatus represents room status. The only transition is
// open -> closed; closed is terminal.
type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "open"
	RoomStatusClosed RoomStatus = "closed"
)

// ContactMethod is the contact channel a room requires of its members.
type ContactMethod string

const (
	ContactQQ      ContactMethod = "qq"
	ContactWechat  ContactMethod = "wechat"
	ContactPhone   ContactMethod = "phone"
	ContactUnknown ContactMethod = "unknown"
)

// RoomState is the live, cache-held state of a room. It is
// authoritative for membership, capacity and status while the room is
// hot; the durable RoomRecord only catches up at close and archival.
type RoomState struct {
	RoomID          string        `json:"room_id"`
	OwnerID         string        `json:"owner_id"`
	Members         []string      `json:"members"`
	MaxMembers      int           `json:"max_members"`
	RequiredContact ContactMethod `json:"required_contact"`
	Status          RoomStatus    `json:"status"`
}

// HasMember reports whether the user is currently in the room.
func (s *RoomState) HasMember(userID string) bool {
	for _, m := range s.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the room has reached capacity.
func (s *RoomState) IsFull() bool {
	return len(s.Members) >= s.MaxMembers
}

// Room is the durable room record together with its trip details.
type Room struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Destination      string     `json:"destination"`
	Origin           string     `json:"origin,omitempty"`
	DepartAt         *time.Time `json:"depart_at,omitempty"`
	Status           RoomStatus `json:"status"`
	ArchivedSnapshot *RoomState `json:"archived_snapshot,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Membership is one append-only join-event ledger entry. Entries are
// never updated or deleted, even when the user later exits.
type Membership struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// CreateRoomRequest represents a create room request.
type CreateRoomRequest struct {
	MaxMembers    int           `json:"max_members" binding:"required,min=1,max=4"`
	ContactMethod ContactMethod `json:"contact_method" binding:"required"`
	Destination   string        `json:"destination" binding:"required,min=1,max=100"`
	Origin        string        `json:"origin" binding:"max=100"`
	DepartAt      *time.Time    `json:"depart_at"`
}

// SearchRoomsRequest represents a room search request.
type SearchRoomsRequest struct {
	Destination string `form:"destination"`
	Status      string `form:"status"`
	Offset      int    `form:"offset"`
	Limit       int    `form:"limit"`
}

// RoomResponse is a room in API responses. State carries the archived
// snapshot when one exists, otherwise the live cache state.
type RoomResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Destination string     `json:"destination"`
	Origin      string     `json:"origin,omitempty"`
	DepartAt    *time.Time `json:"depart_at,omitempty"`
	Status      RoomStatus `json:"status"`
	State       *RoomState `json:"state,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RoomListResponse is a paginated list of rooms.
type RoomListResponse struct {
	Rooms  []RoomResponse `json:"rooms"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// ToResponse converts Room to RoomResponse with an optional live state.
func (r *Room) ToResponse(live *RoomState) RoomResponse {
	state := r.ArchivedSnapshot
	if state == nil {
		state = live
	}
	return RoomResponse{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Destination: r.Destination,
		Origin:      r.Origin,
		DepartAt:    r.DepartAt,
		Status:      r.Status,
		State:       state,
		CreatedAt:   r.CreatedAt,
	}
}
