package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account contains the login information specific to each registered player.
type Account struct {
	ID               uint64 `gorm:"primaryKey"`
	Username         string `gorm:"unique; not null"`
	Password         string `gorm:"not null"`
	PlayerID         string `gorm:"unique; not null"`
	RegistrationDate time.Time
	LastLogin        time.Time
	Banned           bool `gorm:"default:false"`
	Active           bool `gorm:"default:true"`

	DeletedAt gorm.DeletedAt
}

// FindAccountByUsername searches for an account with the specified username,
// returning the *Account instance if found or nil if there is no match.
func FindAccountByUsername(db *gorm.DB, username string) (*Account, error) {
	var account Account
	err := db.Where("username = ?", username).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// FindAccountByPlayerID searches for an account by its player UUID string,
// returning the *Account instance if found or nil if there is no match.
func FindAccountByPlayerID(db *gorm.DB, playerID string) (*Account, error) {
	var account Account
	err := db.Where("player_id = ?", playerID).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Create(account).Error
}

// UpdateLastLogin stamps the account with the time of its latest login.
func UpdateLastLogin(db *gorm.DB, account *Account) error {
	account.LastLogin = time.Now()
	return db.Save(account).Error
}

// DeleteAccount soft-deletes an Account record from the database.
func DeleteAccount(db *gorm.DB, account *Account) error {
	return db.Delete(account).Error
}
