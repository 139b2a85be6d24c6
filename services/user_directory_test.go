package services_test

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/services"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestUserDirectory(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	directory := services.NewUserDirectory(mockRepo)

	mockRepo.EXPECT().GetUserByID("alice-id").
		Return(domain.NewGuest("alice-id", "Alice", time.Now()), nil).Times(2)
	mockRepo.EXPECT().GetUserByID("ghost").
		Return(domain.User{}, errors.ErrUserNotFound).Times(2)
	mockRepo.EXPECT().GetUserByID("broken").
		Return(domain.User{}, fmt.Errorf("disk on fire")).Times(1)

	name, err := directory.DisplayName("alice-id")
	req.NoError(err)
	req.Equal("Alice", name)

	exists, err := directory.UserExists("alice-id")
	req.NoError(err)
	req.True(exists)

	_, err = directory.DisplayName("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)

	exists, err = directory.UserExists("ghost")
	req.NoError(err)
	req.False(exists)

	exists, err = directory.UserExists("broken")
	req.Error(err)
	req.False(exists)
}
