package models

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Session struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	//Token is only set when creating a new session. When looking up a session
	//this will be left empty, as we only store the hash of a session token
	//in our database and we cannot reverse it into a raw token.
	Token     string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

const (
	// MinBytesPerToken is the minimum number of bytes for a session token
	MinBytesPerToken = 32
	// DefaultSessionDuration is how long a session lasts
	DefaultSessionDuration = 30 * 24 * time.Hour
)

type SessionService struct {
	pool *pgxpool.Pool

	BytesPerToken   int
	SessionDuration time.Duration
}

func NewSessionService(pool *pgxpool.Pool, duration time.Duration) *SessionService {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionService{
		pool:            pool,
		BytesPerToken:   MinBytesPerToken,
		SessionDuration: duration,
	}
}

// Create starts a new session for the user, replacing any previous one.
func (ss *SessionService) Create(ctx context.Context, userID int64) (*Session, error) {
	bytesPerToken := ss.BytesPerToken
	if bytesPerToken < MinBytesPerToken {
		bytesPerToken = MinBytesPerToken
	}
	token, err := generateToken(bytesPerToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session := Session{
		UserID:    userID,
		Token:     token,
		TokenHash: hashToken(token),
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = ss.pool.QueryRow(ctx, `
	INSERT INTO sessions (user_id, token_hash, created_at, expires_at)
	VALUES ($1, $2, NOW(), $3)
	ON CONFLICT (user_id)
	DO UPDATE
	SET token_hash = EXCLUDED.token_hash, created_at = NOW(), expires_at = EXCLUDED.expires_at
	RETURNING id, created_at, expires_at
	`, session.UserID, session.TokenHash, time.Now().Add(ss.SessionDuration)).
		Scan(&session.ID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// User validates the token and returns its user.
func (ss *SessionService) User(ctx context.Context, token string) (*User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user User
	err := ss.pool.QueryRow(ctx, `
	SELECT users.id, users.email, users.password_hash, users.nickname, users.role,
		users.created_at, users.updated_at, users.last_login
	FROM sessions
	JOIN users ON users.id = sessions.user_id
	WHERE sessions.token_hash = $1 AND sessions.expires_at > NOW()`, hashToken(token)).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Nickname, &user.Role,
			&user.CreatedAt, &user.UpdatedAt, &user.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	return &user, nil
}

func (ss *SessionService) Delete(ctx context.Context, token string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := ss.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func generateToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
