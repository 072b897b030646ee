package postgres

import (
	"errors"

	"gorm.io/gorm"
)

/*
 * 'Friendship' links two users. Rows are stored with Username1 < Username2 so
 * a pair can only exist once.
 */
type Friendship struct {
	Username1 string `gorm:"primaryKey;size:50;index:idx_friendships_username2"`
	Username2 string `gorm:"primaryKey;size:50"`

	User1 User `gorm:"foreignKey:Username1;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	User2 User `gorm:"foreignKey:Username2;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// BeforeSave rejects self-friendships and normalizes the pair ordering.
func (f *Friendship) BeforeSave(tx *gorm.DB) error {
	if f.Username1 == f.Username2 {
		return errors.New("cannot create a friendship with yourself")
	}
	if f.Username1 > f.Username2 {
		f.Username1, f.Username2 = f.Username2, f.Username1
	}
	return nil
}
