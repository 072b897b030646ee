package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'User' is the account record. 'Online' is the login status flag flipped on
 * login/logout; the rest of presence lives in the session directory.
 */
type User struct {
	Username     string         `gorm:"primaryKey;size:50;not null"`
	PasswordHash string         `gorm:"size:255;not null"`
	Online       bool           `gorm:"default:false"`
	UserStats    datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	MemberSince  time.Time      `gorm:"default:CURRENT_TIMESTAMP"`

	Friendships1    []Friendship        `gorm:"foreignKey:Username1"`
	Friendships2    []Friendship        `gorm:"foreignKey:Username2"`
	SentRequests    []FriendshipRequest `gorm:"foreignKey:Sender"`
	PendingRequests []FriendshipRequest `gorm:"foreignKey:Receiver"`
}
