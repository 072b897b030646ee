package postgres

import (
	"time"
)

/*
 * 'FriendshipRequest' is a pending friend request from Sender to Receiver.
 * Deleted once accepted or declined.
 */
type FriendshipRequest struct {
	Sender    string    `gorm:"primaryKey;size:50;not null" json:"sender"`
	Receiver  string    `gorm:"primaryKey;size:50;not null" json:"receiver"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"-"`

	SenderUser   User `gorm:"foreignKey:Sender" json:"-"`
	ReceiverUser User `gorm:"foreignKey:Receiver" json:"-"`
}
