package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User represents a registered account.
// Guests never get a row here; they exist only as signed anonymous IDs.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url"`
	IsVerified  bool           `json:"is_verified"`
	Gender      string         `json:"gender"`
	Interests   pq.StringArray `gorm:"type:text[]" json:"interests"`

	// Privacy controls what a matched stranger is allowed to see.
	ShowUsername bool `gorm:"default:true" json:"show_username"`
	ShowAvatar   bool `gorm:"default:true" json:"show_avatar"`

	// Moderation state, mutated by the moderation service and admin CLI only.
	ReputationScore int   `gorm:"default:1000"`
	IsBlocked       bool  `gorm:"default:false"`
	BlockLevel      int   `gorm:"default:0"`
	BlockEndTime    int64 `gorm:"default:0"`
	LastBanDate     int64 `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate is a GORM hook that assigns a UUID if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Friendship is a single directed edge of an accepted friend relation.
// Both directions are written when a request is accepted, so lookups
// only ever filter on UserID.
type Friendship struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   string `gorm:"index:idx_friend_pair,unique;not null"`
	FriendID string `gorm:"index:idx_friend_pair,unique;not null"`

	CreatedAt time.Time
}
