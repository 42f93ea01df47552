// Package services contains server-side business logic. This file implements
// AuthService: signup, credential login, access-token renewal from a refresh
// token, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sujinchoi3/my-todolist/internal/common"
	"github.com/sujinchoi3/my-todolist/internal/cryptox"
	"github.com/sujinchoi3/my-todolist/internal/dbx"
	"github.com/sujinchoi3/my-todolist/internal/logging"
	"github.com/sujinchoi3/my-todolist/internal/server/auth"
	"github.com/sujinchoi3/my-todolist/internal/server/models"
	"github.com/sujinchoi3/my-todolist/internal/server/repositories/repomanager"
)

// TokenIssuer is the subset of *auth.Issuer the service needs.
type TokenIssuer interface {
	IssueAccess(auth.Identity) (string, error)
	IssueRefresh(auth.Identity) (string, error)
	VerifyRefresh(token string) (auth.Identity, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// AuthService provides authentication operations on top of the user
// repository, the password hasher and the token issuer.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	issuer      TokenIssuer
	logger      logging.Logger
	newID       func() string

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires an AuthService.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher, issuer TokenIssuer, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		logger:      logger.With("component", "auth_service"),
		newID:       uuid.NewString,
	}
}

// Signup creates a new identity. It returns common.ErrEmailAlreadyExists
// when the email is taken, including when a concurrent signup wins the
// race and the unique constraint fires.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	// reject a taken email before hashing
	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
		s.logger.Info(ctx, "signup rejected", "reason", "email exists")
		return nil, common.ErrEmailAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	user := &models.User{
		ID:           s.newID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return common.ErrEmailAlreadyExists
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		created, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailAlreadyExists) {
			s.logger.Info(ctx, "signup rejected", "reason", "email exists")
			return nil, common.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", created.ID)
	return created, nil
}

// Login checks credentials and mints a token pair. Every credential failure
// is reported as common.ErrInvalidCredentials; the actual cause is only logged.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep timing close to the known-email path
			_ = s.hasher.Compare(s.dummy(), password)
			s.logger.Info(ctx, "login failed", "reason", "unknown email")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if user.PasswordHash == "" {
		s.logger.Warn(ctx, "login failed", "reason", "empty password hash", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			s.logger.Info(ctx, "login failed", "reason", "wrong password", "user_id", user.ID)
		} else {
			s.logger.Warn(ctx, "login failed", "reason", "unusable password hash", "user_id", user.ID, "error", err)
		}
		return nil, common.ErrInvalidCredentials
	}

	id := auth.Identity{UserID: user.ID, Email: user.Email}

	access, err := s.issuer.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.issuer.IssueRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated. Any verification failure is reported as
// common.ErrRefreshTokenExpired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		s.logger.Warn(ctx, "refresh rejected", "reason", "missing token")
		return "", common.ErrRefreshTokenExpired
	}

	id, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Warn(ctx, "refresh rejected", "error", err)
		return "", common.ErrRefreshTokenExpired
	}

	access, err := s.issuer.IssueAccess(id)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Logout is stateless; the transport clears the refresh cookie.
func (s *AuthService) Logout(ctx context.Context) {
	s.logger.Info(ctx, "user logged out")
}

// Me loads the identity behind a verified access token.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password-0")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
