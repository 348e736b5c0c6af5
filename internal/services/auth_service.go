package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// Password length bounds accepted by Register. bcrypt reads at most 72
// bytes, so longer passwords are rejected.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// PendingApprovalMessage is returned to users whose account awaits an admin.
const PendingApprovalMessage = "Аккаунт создан и ожидает подтверждения администратором"

type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
}

type TokenSigner func(uid string, role models.Role, email string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func() string
	signToken TokenSigner
	tokenTTL  time.Duration
	cost      int
}

// AuthResult is the outcome of Register or Login. Token is empty while the
// account is pending approval.
type AuthResult struct {
	Token   string       `json:"token,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Pending reports whether the account still needs an admin's approval.
func (r *AuthResult) Pending() bool { return r.Token == "" }

func NewAuthService(store AuthStore, signer TokenSigner, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     newID,
		signToken: signer,
		tokenTTL:  ttl,
		cost:      bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Admin and HR accounts are approved at once and
// receive a token; everyone else waits for an admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, NewInvalidError("email required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, NewInvalidError("Пароль должен быть минимум 6 символов")
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, NewInvalidError("Пароль должен быть не длиннее 72 байт")
	}
	role := models.RoleEmployee
	if r := strings.TrimSpace(in.Role); r != "" {
		role = models.Role(strings.ToLower(r))
		if !role.Valid() {
			return nil, NewInvalidError("unknown role")
		}
	}
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("User already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:         s.idGen(),
		Email:      email,
		PassHash:   hash,
		Name:       strings.TrimSpace(in.Name),
		Role:       role,
		Department: strings.TrimSpace(in.Department),
		Position:   strings.TrimSpace(in.Position),
		Approved:   role == models.RoleAdmin || role == models.RoleHR,
		CreatedAt:  s.now(),
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, err
	}
	if !u.Approved {
		return &AuthResult{User: u, Message: PendingApprovalMessage}, nil
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("Invalid credentials")
	}
	if !u.Approved {
		return nil, ErrPendingApproval
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

// Me returns the account behind a verified token.
func (s *AuthService) Me(ctx context.Context, uid string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

func (s *AuthService) issue(u *models.User) (string, error) {
	if s.signToken == nil {
		return "", NewUnavailableError("token signer not configured")
	}
	return s.signToken(u.ID, u.Role, u.Email, s.tokenTTL)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
