package auth

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mcastelli/minegate/internal/core/data"
)

var (
	ErrUnknown         = errors.New("an unexpected error occurred, please contact your server administrator")
	ErrAccountBanned   = errors.New("this account has been suspended")
	ErrInvalidUsername = errors.New("usernames must be 3-16 characters of letters, digits, or underscores")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// Identity is the resolved identity of a player who has completed login.
type Identity struct {
	Username string
	PlayerID uuid.UUID
}

// GrantIdentity resolves a login-phase username to a player identity,
// creating an account record on first join (offline-mode servers have no
// external authority to consult). Returns ErrAccountBanned for suspended
// accounts; database failures are reported to the player as ErrUnknown.
func GrantIdentity(db *gorm.DB, username string) (*Identity, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	account, err := data.FindAccountByUsername(db, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	playerID := OfflinePlayerID(username)

	if account == nil {
		account = &data.Account{
			Username: username,
			PlayerID: playerID.String(),
		}
		if err := data.CreateAccount(db, account); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
	}

	if account.Banned {
		return nil, ErrAccountBanned
	}

	if err := data.UpdateLastLogin(db, account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	return &Identity{Username: account.Username, PlayerID: playerID}, nil
}

// OfflinePlayerID derives the deterministic offline-mode UUID for a username:
// a version 3 (MD5) UUID over "OfflinePlayer:<name>", matching the scheme
// clients expect from servers that skip external authentication.
func OfflinePlayerID(username string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))

	var id uuid.UUID
	copy(id[:], sum[:])
	id[6] = (id[6] & 0x0F) | 0x30 // version 3
	id[8] = (id[8] & 0x3F) | 0x80 // RFC 4122 variant
	return id
}

// HashPassword returns a version of password with the server's chosen
// hashing strategy. Used by the account administration tooling.
func HashPassword(password string) string {
	hash := sha256.New()
	hash.Write([]byte(password))
	return hex.EncodeToString(hash.Sum(nil))
}

// CreateAccount takes the specified credentials and creates a new record in
// the database, returning either the result or any errors encountered.
func CreateAccount(db *gorm.DB, username, password string) (*data.Account, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	account := &data.Account{
		Username: username,
		Password: HashPassword(password),
		PlayerID: OfflinePlayerID(username).String(),
	}

	if err := data.CreateAccount(db, account); err != nil {
		return nil, err
	}
	return account, nil
}
