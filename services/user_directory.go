package services

import (
	"chat-relay/errors"
	"chat-relay/repositories"
	stderrors "errors"
)

// UserDirectory exposes the read side of the user repository to the realtime core.
// Every call is one scoped badger read transaction, nothing is cached so renames
// and deletions are visible to the next event.
type UserDirectory struct {
	userRepository repositories.IUserRepository
}

func NewUserDirectory(repo repositories.IUserRepository) UserDirectory {
	return UserDirectory{userRepository: repo}
}

// DisplayName returns errors.ErrUserNotFound when the user no longer exists.
func (d UserDirectory) DisplayName(userID string) (string, error) {
	user, err := d.userRepository.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

func (d UserDirectory) UserExists(userID string) (bool, error) {
	_, err := d.userRepository.GetUserByID(userID)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, errors.ErrUserNotFound):
		return false, nil
	default:
		return false, err
	}
}
