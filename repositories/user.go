//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	userPrefix  = "user:"
	loginPrefix = "login:"
	emailPrefix = "email:"
)

type IUserRepository interface {
	CreateAccount(name string, account domain.Account) (domain.User, error)
	CreateGuest(name string, ttl time.Duration) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	GetUserByLogin(login string) (domain.User, error)
	UpdateName(id, name string) (domain.User, error)
	DeleteUser(id string) error
	ListUsers() ([]domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log, now: time.Now}
}

// DiskUser is the persisted representation of a user.
// Login, PasswordHash and Email are empty for guests.
type DiskUser struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	IsGuest      bool    `json:"is_guest"`
	Login        string  `json:"login,omitempty"`
	PasswordHash string  `json:"password_hash,omitempty"`
	Email        *string `json:"email,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}

// CreateAccount persists a registered user and its login/email indexes.
// Uniqueness is checked in the same transaction as the writes.
func (r *UserRepository) CreateAccount(name string, account domain.Account) (domain.User, error) {
	user := domain.NewAccountUser(uuid.NewString(), name, account, r.now().UTC())
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if exists, err := keyExists(txn, loginKey(account.Login)); err != nil {
			return err
		} else if exists {
			return errors.ErrUserAlreadyExists
		}
		if account.Email != nil {
			if exists, err := keyExists(txn, emailKey(*account.Email)); err != nil {
				return err
			} else if exists {
				return errors.ErrEmailAlreadyExists
			}
			if err := txn.Set(emailKey(*account.Email), []byte(user.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(loginKey(account.Login), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		// A concurrent registration committed first with the same login or email
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CreateGuest persists a guest user which badger expires after ttl.
// A ttl <= 0 keeps the guest forever.
func (r *UserRepository) CreateGuest(name string, ttl time.Duration) (domain.User, error) {
	user := domain.NewGuest(uuid.NewString(), name, r.now().UTC())
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(userKey(user.ID), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUserByID reads one user inside a scoped read transaction.
func (r *UserRepository) GetUserByID(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		u, _, err := getUser(txn, id)
		user = u
		return err
	})
	return user, err
}

func (r *UserRepository) GetUserByLogin(login string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(loginKey(login))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		u, _, err := getUser(txn, string(id))
		user = u
		return err
	})
	return user, err
}

// UpdateName renames a user. A guest keeps its remaining lifetime.
func (r *UserRepository) UpdateName(id, name string) (domain.User, error) {
	var user domain.User
	err := r.db.Update(func(txn *badger.Txn) error {
		u, expiresAt, err := getUser(txn, id)
		if err != nil {
			return err
		}
		u.Name = name
		data, err := json.Marshal(fromUser(u))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}

		entry := badger.NewEntry(userKey(id), data)
		if expiresAt > 0 {
			remaining := time.Until(time.Unix(int64(expiresAt), 0))
			if remaining <= 0 {
				return errors.ErrUserNotFound
			}
			entry = entry.WithTTL(remaining)
		}
		user = u
		return txn.SetEntry(entry)
	})
	return user, err
}

// DeleteUser removes the user and its indexes.
func (r *UserRepository) DeleteUser(id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		u, _, err := getUser(txn, id)
		if err != nil {
			return err
		}
		if u.Account != nil {
			if err := txn.Delete(loginKey(u.Account.Login)); err != nil {
				return err
			}
			if u.Account.Email != nil {
				if err := txn.Delete(emailKey(*u.Account.Email)); err != nil {
					return err
				}
			}
		}
		return txn.Delete(userKey(id))
	})
}

// ListUsers scans every live user record.
func (r *UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var disk DiskUser
				if err := json.Unmarshal(val, &disk); err != nil {
					r.log.Warn("Skipping unreadable user record", "key", string(item.Key()), "error", err)
					return nil
				}
				users = append(users, toUser(disk))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}

// DecodeUser reads one persisted user record.
func DecodeUser(val []byte) (domain.User, error) {
	var disk DiskUser
	if err := json.Unmarshal(val, &disk); err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// getUser returns the user and its badger expiry (0 when it never expires).
func getUser(txn *badger.Txn, id string) (domain.User, uint64, error) {
	item, err := txn.Get(userKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, 0, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, 0, err
	}

	var user domain.User
	err = item.Value(func(val []byte) error {
		user, err = DecodeUser(val)
		return err
	})
	if err != nil {
		return domain.User{}, 0, err
	}
	return user, item.ExpiresAt(), nil
}

func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func userKey(id string) []byte { return []byte(userPrefix + id) }
func loginKey(login string) []byte { return []byte(loginPrefix + login) }
func emailKey(email string) []byte { return []byte(emailPrefix + email) }

func fromUser(u domain.User) DiskUser {
	disk := DiskUser{
		ID:        u.ID,
		Name:      u.Name,
		IsGuest:   u.IsGuest,
		CreatedAt: u.CreatedAt.UnixNano(),
	}
	if u.Account != nil {
		disk.Login = u.Account.Login
		disk.PasswordHash = u.Account.PasswordHash
		disk.Email = u.Account.Email
	}
	return disk
}

func toUser(disk DiskUser) domain.User {
	createdAt := time.Unix(0, disk.CreatedAt).UTC()
	if disk.IsGuest {
		return domain.NewGuest(disk.ID, disk.Name, createdAt)
	}
	return domain.NewAccountUser(disk.ID, disk.Name, domain.Account{
		Login:        disk.Login,
		PasswordHash: disk.PasswordHash,
		Email:        disk.Email,
	}, createdAt)
}
