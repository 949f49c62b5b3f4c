package domain

import (
	"encoding/json"
	"time"

	"github.com/jointrip/companion-service/internal/database"
)

// RoomModel is the GORM model for the rooms table. ArchivedSnapshot is
// NULL until the room's live state has been captured into it; once set
// it replaces cache reads for this room.
type RoomModel struct {
	ID               string            `gorm:"type:char(32);primaryKey"`
	OwnerID          string            `gorm:"type:char(32);index;not null"`
	Destination      string            `gorm:"type:varchar(100);index;not null"`
	Origin           string            `gorm:"type:varchar(100)"`
	DepartAt         *time.Time        `gorm:"index"`
	Status           string            `gorm:"type:varchar(20);index;not null;default:'open'"`
	ArchivedSnapshot database.JSONText `gorm:"type:text"`
	CreatedAt        time.Time         `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *Room {
	room := &Room{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Destination: m.Destination,
		Origin:      m.Origin,
		DepartAt:    m.DepartAt,
		Status:      RoomStatus(m.Status),
		CreatedAt:   m.CreatedAt,
	}
	if len(m.ArchivedSnapshot) > 0 {
		var state RoomState
		if err := json.Unmarshal(m.ArchivedSnapshot, &state); err == nil {
			room.ArchivedSnapshot = &state
		}
	}
	return room
}

// RoomToModel converts domain Room to RoomModel.
func RoomToModel(r *Room) *RoomModel {
	model := &RoomModel{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Destination: r.Destination,
		Origin:      r.Origin,
		DepartAt:    r.DepartAt,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
	}
	if r.ArchivedSnapshot != nil {
		if data, err := json.Marshal(r.ArchivedSnapshot); err == nil {
			model.ArchivedSnapshot = data
		}
	}
	return model
}

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string    `gorm:"type:char(32);primaryKey"`
	Nickname  string    `gorm:"type:varchar(50);not null"`
	QQ        string    `gorm:"type:varchar(20)"`
	Wechat    string    `gorm:"type:varchar(50)"`
	Phone     string    `gorm:"type:varchar(20);index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Nickname:  m.Nickname,
		QQ:        m.QQ,
		Wechat:    m.Wechat,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Nickname:  u.Nickname,
		QQ:        u.QQ,
		Wechat:    u.Wechat,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// MembershipModel is the GORM model for the append-only membership
// ledger. Rows are inserted on join and never touched again.
type MembershipModel struct {
	ID       string    `gorm:"type:char(32);primaryKey"`
	RoomID   string    `gorm:"type:char(32);index;not null"`
	UserID   string    `gorm:"type:char(32);index;not null"`
	JoinedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for MembershipModel.
func (MembershipModel) TableName() string {
	return "memberships"
}

// ToDomain converts MembershipModel to domain Membership.
func (m *MembershipModel) ToDomain() *Membership {
	return &Membership{
		ID:       m.ID,
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		JoinedAt: m.JoinedAt,
	}
}

// MembershipToModel converts domain Membership to MembershipModel.
func MembershipToModel(e *Membership) *MembershipModel {
	return &MembershipModel{
		ID:       e.ID,
		RoomID:   e.RoomID,
		UserID:   e.UserID,
		JoinedAt: e.JoinedAt,
	}
}
