//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type IAuthService interface {
	CreateGuest(name string) (Session, error)
	Register(req auth.RegisterRequest) (Session, error)
	Login(login, password string) (Session, error)
	Profile(userID string) (domain.User, error)
	Rename(userID, name string) (domain.User, error)
	Delete(userID string) error
}

type Token string

// Session is handed back to a client after guest creation, registration or login.
type Session struct {
	UserID string `json:"user_id"`
	Token  Token  `json:"token"`
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         contract.ITokenService
	guestTTL       time.Duration
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository,
	tokens contract.ITokenService, guestTTL time.Duration) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens, guestTTL: guestTTL}
}

func (s *AuthService) CreateGuest(name string) (Session, error) {
	if err := auth.ValidateName(name); err != nil {
		return Session{}, err
	}
	user, err := s.userRepository.CreateGuest(strings.TrimSpace(name), s.guestTTL)
	if err != nil {
		return Session{}, err
	}
	s.log.Debug("Guest created", "user_id", user.ID)
	return s.session(user.ID)
}

func (s *AuthService) Register(req auth.RegisterRequest) (Session, error) {
	req = req.Normalize()

	// Business rules are checked before any expensive cryptographic operation
	if err := auth.ValidateRegister(req); err != nil {
		return Session{}, err
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateAccount(req.Name, domain.Account{
		Login:        req.Login,
		PasswordHash: hashedPassword,
		Email:        req.Email,
	})
	if err != nil {
		return Session{}, err
	}
	s.log.Debug("Account registered", "user_id", user.ID)
	return s.session(user.ID)
}

func (s *AuthService) Login(login, password string) (Session, error) {
	user, err := s.userRepository.GetUserByLogin(login)
	if err != nil || user.Account == nil {
		// Generic error to prevent user enumeration attacks
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.Account.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}
	return s.session(user.ID)
}

func (s *AuthService) Profile(userID string) (domain.User, error) {
	return s.userRepository.GetUserByID(userID)
}

func (s *AuthService) Rename(userID, name string) (domain.User, error) {
	if err := auth.ValidateName(name); err != nil {
		return domain.User{}, err
	}
	return s.userRepository.UpdateName(userID, strings.TrimSpace(name))
}

func (s *AuthService) Delete(userID string) error {
	if err := s.userRepository.DeleteUser(userID); err != nil {
		return err
	}
	s.log.Info("User deleted", "user_id", userID)
	return nil
}

func (s *AuthService) session(userID string) (Session, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrTokenGeneration) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return Session{UserID: userID, Token: Token(token)}, nil
}
