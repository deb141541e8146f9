package models

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8

	// PasswordSymbols lists the special characters a password must draw from.
	PasswordSymbols = "!#%^*"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// IsAdmin reports whether the user may judge board reports.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// OwnerID is the history owner key for this user.
func (u *User) OwnerID() string {
	return strconv.FormatInt(u.ID, 10)
}

// NewUser holds registration input.
type NewUser struct {
	Email    string
	Password string
	Nickname string
}

type UserService struct {
	pool       *pgxpool.Pool
	bcryptCost int
}

func NewUserService(pool *pgxpool.Pool, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{pool: pool, bcryptCost: bcryptCost}
}

// ValidatePassword enforces the registration password rules: at least
// MinPasswordLength characters, one uppercase letter, one digit and one
// symbol from PasswordSymbols, with nothing outside letters, digits and
// those symbols.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		default:
			return ErrWeakPassword
		}
	}

	if !hasUpper || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user with a bcrypt hashed password.
func (us *UserService) Create(ctx context.Context, nu NewUser) (*User, error) {
	email := normalizeEmail(nu.Email)
	nickname := strings.TrimSpace(nu.Nickname)
	if email == "" || nu.Password == "" || nickname == "" {
		return nil, ErrMissingField
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := ValidatePassword(nu.Password); err != nil {
		return nil, err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(nu.Password), us.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        email,
		Nickname:     nickname,
		Role:         RoleUser,
		PasswordHash: string(hashedBytes),
	}

	query := `
		INSERT INTO users (email, password_hash, nickname, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = us.pool.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Nickname, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks email/password and returns the user.
func (us *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := us.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ByEmail retrieves a user by email.
func (us *UserService) ByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, nickname, role, created_at, updated_at, last_login
		FROM users
		WHERE email = $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	user := &User{}
	err := us.pool.QueryRow(ctx, query, normalizeEmail(email)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Role,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// EmailExists reports whether an account uses the email.
func (us *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool
	err := us.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		normalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin updates user's last login time
func (us *UserService) UpdateLastLogin(ctx context.Context, userID int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := us.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdateNickname renames the user.
func (us *UserService) UpdateNickname(ctx context.Context, userID int64, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return ErrMissingField
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := us.pool.Exec(ctx,
		`UPDATE users SET nickname = $1, updated_at = NOW() WHERE id = $2`,
		nickname, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
