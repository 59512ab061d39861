package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// UserRepository defines the identity persistence used by AuthService.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	HasAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate, at time.Time) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// SessionIssuer mints bearer tokens.
type SessionIssuer interface {
	Issue(u *models.User, now time.Time) (string, time.Time, error)
	TTL() time.Duration
}

// Auditor records an audit entry for a completed action.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action models.Action, resourceType string, resourceID *string, details map[string]any)
}

// AuthService manages identities and sessions.
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions SessionIssuer
	audit    Auditor
	log      *zap.Logger
	now      func() time.Time

	// dummyHash is verified against when the username is unknown so that
	// both login failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserRepository, hasher PasswordHasher, sessions SessionIssuer, audit Auditor, log *zap.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		sessions:  sessions,
		audit:     audit,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates a new identity on behalf of actor.
func (s *AuthService) Register(ctx context.Context, actor *models.User, in models.NewUser) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = models.RoleOperator
	}
	if strings.TrimSpace(in.Site) == "" {
		in.Site = models.DefaultSite
	}
	if err := validateNewUser(&in); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: username or email already registered", models.ErrAlreadyExists)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: digest,
		Role:         in.Role,
		IsActive:     true,
		Site:         in.Site,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: username or email already registered", models.ErrAlreadyExists)
		}
		return nil, err
	}

	s.audit.Record(ctx, actor, models.ActionCreate, models.ResourceUser, &u.ID,
		map[string]any{"new_user": u.Username, "role": string(u.Role)})
	s.log.Info("user registered", zap.String("actor", actor.Username), zap.String("username", u.Username))
	return u, nil
}

// Login verifies credentials and issues a session. Unknown usernames and
// wrong passwords fail identically with models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, models.ErrNotFound):
		s.hasher.Verify(password, s.dummyHash)
		return nil, models.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, models.ErrIdentityInactive
	}

	now := s.now().UTC()
	token, _, err := s.sessions.Issue(u, now)
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("stamp last login", zap.String("actor", u.Username), zap.Error(err))
	} else {
		u.LastLogin = &now
	}

	s.audit.Record(ctx, u, models.ActionLogin, models.ResourceAuth, nil,
		map[string]any{"login_time": now.Format(time.RFC3339)})
	s.log.Info("login", zap.String("actor", u.Username))

	return &models.LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.sessions.TTL().Seconds()),
		User:        u,
	}, nil
}

// Logout records the end of actor's session. Tokens are stateless and stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, actor *models.User) {
	s.audit.Record(ctx, actor, models.ActionLogout, models.ResourceAuth, nil, nil)
	s.log.Info("logout", zap.String("actor", actor.Username))
}

// ListUsers returns all identities ordered by username.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// UpdateUser applies the allow-listed changes in upd to the identity id.
func (s *AuthService) UpdateUser(ctx context.Context, actor *models.User, id string, upd models.UserUpdate) (*models.User, error) {
	if err := validateUserUpdate(&upd); err != nil {
		return nil, err
	}
	u, err := s.users.Update(ctx, id, upd, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrAlreadyExists)
		}
		return nil, err
	}

	fields := append(upd.Fields(), "updated_at")
	s.audit.Record(ctx, actor, models.ActionUpdate, models.ResourceUser, &u.ID,
		map[string]any{"updated_fields": fields, "target_user": u.Username})
	s.log.Info("user updated", zap.String("actor", actor.Username), zap.String("username", u.Username))
	return u, nil
}

// BootstrapAdmin describes the identity created when no admin exists.
type BootstrapAdmin struct {
	Username string
	Email    string
	FullName string
	Password string
}

// EnsureAdmin creates the bootstrap admin when no admin identity exists.
// It reports whether one was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, b BootstrapAdmin) (bool, error) {
	exists, err := s.users.HasAdmin(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	digest, err := s.hasher.Hash(b.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     b.Username,
		Email:        b.Email,
		FullName:     b.FullName,
		PasswordHash: digest,
		Role:         models.RoleAdmin,
		IsActive:     true,
		Site:         models.DefaultSite,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return true, nil
}
