package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/avstrong/hotelbooking/internal/booking"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Storage interface {
	SaveUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type Claims struct {
	UserID uint `json:"user_id"`
	Role   Role `json:"role"`
	jwt.RegisteredClaims
}

type Conf struct {
	Secret   []byte
	TokenTTL time.Duration
}

type Manager struct {
	storage  Storage
	conf     Conf
	validate *validator.Validate
	now      func() time.Time
}

func New(storage Storage, conf Conf) *Manager {
	if conf.TokenTTL == 0 {
		conf.TokenTTL = 24 * time.Hour //nolint:gomnd
	}

	return &Manager{
		storage:  storage,
		conf:     conf,
		validate: booking.NewValidator(),
		now:      time.Now,
	}
}

func (m *Manager) Register(ctx context.Context, input *RegisterInput) (*User, error) {
	if err := booking.Validate(m.validate, input); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	return m.createUser(ctx, email, input.Password, input.FirstName, input.LastName, RoleGuest)
}

// EnsureAdmin creates the admin account if no user with that e-mail exists.
func (m *Manager) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := m.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, booking.ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return m.createUser(ctx, email, password, "Hotel", "Admin", RoleAdmin)
}

func (m *Manager) createUser(ctx context.Context, email, password, firstName, lastName string, role Role) (*User, error) {
	_, err := m.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, booking.NewFieldError("email", "email already registered")
	}

	if !errors.Is(err, booking.ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	//nolint:exhaustruct
	u := &User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
	}

	if err := m.storage.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	return u, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := m.storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, booking.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := m.now()
	expiresAt := now.Add(m.conf.TokenTTL)

	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{ //nolint:exhaustruct
			Subject:   fmt.Sprint(u.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.conf.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	//nolint:exhaustruct
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return m.conf.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) GetUser(ctx context.Context, id uint) (*User, error) {
	u, err := m.storage.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return u, nil
}
