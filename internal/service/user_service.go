package service

import (
	"context"
	"errors"
	"time"

	"github.com/jointrip/companion-service/internal/audit"
	"github.com/jointrip/companion-service/internal/cache"
	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/fault"
	"github.com/jointrip/companion-service/internal/identity"
	"github.com/jointrip/companion-service/internal/repository"
)

// userServiceImpl implements UserService. Sessions live in the cache
// store under the UserSession tag with a TTL; the durable store holds
// the user records.
type userServiceImpl struct {
	users      repository.UserRepository
	sessions   *cache.Typed[domain.Session]
	minter     *identity.Minter
	sessionTTL time.Duration
	mintWait   time.Duration
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	store *cache.Store,
	minter *identity.Minter,
	sessionTTL time.Duration,
	mintWait time.Duration,
) UserService {
	return &userServiceImpl{
		users:      users,
		sessions:   cache.NewTyped[domain.Session](store, cache.TagUserSession),
		minter:     minter,
		sessionTTL: sessionTTL,
		mintWait:   mintWait,
	}
}

// Register mints a user id and persists the user record.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterUserRequest) (*domain.User, error) {
	userID, err := s.minter.Next(ctx, s.mintWait)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:       userID.Hex(),
		Nickname: req.Nickname,
		QQ:       req.QQ,
		Wechat:   req.Wechat,
		Phone:    req.Phone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fault.Operationf("failed to persist user: %v", err)
	}
	return user, nil
}

// UpdateContact applies the non-nil contact fields to the user record.
func (s *userServiceImpl) UpdateContact(ctx context.Context, userID string, req *domain.UpdateContactRequest) error {
	if err := s.users.UpdateContact(ctx, userID, req); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fault.NotFoundf("user %s not found", userID)
		}
		return err
	}
	return nil
}

// Login verifies the user and mints a cached session. The SMS
// verification round-trip happens upstream; this only checks the phone
// against the record when one is supplied.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fault.NotFoundf("user %s not found", req.UserID)
		}
		return nil, err
	}
	if req.Phone != "" && user.Phone != req.Phone {
		return nil, fault.Preconditionf("phone number does not match the record")
	}

	sessionID, err := s.minter.Next(ctx, s.mintWait)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		SessionID: sessionID.Hex(),
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	if err := s.sessions.Insert(ctx, session.SessionID, session, s.sessionTTL); err != nil {
		return nil, fault.Operationf("failed to store session: %v", err)
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "", "user logged in")
	return &domain.LoginResponse{
		SessionID: session.SessionID,
		UserID:    user.ID,
	}, nil
}

// Authenticate resolves a session id to the user it belongs to.
func (s *userServiceImpl) Authenticate(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", fault.NotFoundf("session not found or expired")
		}
		return "", err
	}
	return session.UserID, nil
}
