package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/model"
)

// NewUser is the input of Register and CreateUser.
type NewUser struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role,omitempty"`
}

// UserPatch updates selected fields of a user. Nil fields are left unchanged.
type UserPatch struct {
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Role     *model.Role `json:"role,omitempty"`
	Password *string     `json:"password,omitempty"`
}

var errBadCredentials = fmt.Errorf("invalid email or password: %w", core.ErrUnauthorized)

// Register signs up a student account.
func (s *Service) Register(ctx context.Context, in NewUser) (*model.User, error) {
	in.Role = model.RoleStudent
	return s.createUser(ctx, in)
}

// CreateUser adds an account with any role.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in NewUser) (*model.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, invalid("unknown role %q", in.Role)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           newID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Users().Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "userID", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	u, err := s.repo.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, errBadCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errBadCredentials
	}

	now := s.now()
	sess := &model.Session{
		Token:     newID(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.repo.Sessions().Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	return sess, u, nil
}

// Logout closes the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Sessions().Delete(ctx, token); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing session: %w", core.ErrUnauthorized)
	}

	sess, err := s.repo.Sessions().Get(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("unknown session: %w", core.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.repo.Sessions().Delete(ctx, token)
		return nil, fmt.Errorf("session expired: %w", core.ErrUnauthorized)
	}

	u, err := s.repo.Users().Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("session user is gone: %w", core.ErrUnauthorized)
		}
		return nil, err
	}
	return u, nil
}

// PurgeExpiredSessions deletes every expired session.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.Sessions().DeleteExpired(ctx, s.now())
}

func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.Users().Get(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, role model.Role) ([]*model.User, error) {
	if role != "" && !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	return s.repo.Users().List(ctx, role)
}

// UpdateUser applies patch to the user id.
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	u, err := s.repo.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if err := required("name", *patch.Name); err != nil {
			return nil, err
		}
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		u.Email = email
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, invalid("unknown role %q", *patch.Role)
		}
		u.Role = *patch.Role
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Users().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.Users().Delete(ctx, id)
}

// SetSubscription marks a rider as abonado until expiresAt. A zero expiresAt never expires.
func (s *Service) SetSubscription(ctx context.Context, userID string, subscribed bool, expiresAt time.Time) (*model.User, error) {
	u, err := s.repo.Users().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subscribed && !expiresAt.IsZero() && !expiresAt.After(s.now()) {
		return nil, invalid("subscription expiry %s is in the past", expiresAt.Format(time.RFC3339))
	}

	u.Subscribed = subscribed
	u.SubscriptionExpiresAt = time.Time{}
	if subscribed {
		u.SubscriptionExpiresAt = expiresAt.UTC()
	}
	if err := s.repo.Users().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logger.Info("Subscription updated", "userID", u.ID, "subscribed", subscribed)
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", invalid("invalid email %q", email)
	}
	return strings.ToLower(addr.Address), nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password must have at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", invalid("unusable password: %v", err)
	}
	return string(hash), nil
}
