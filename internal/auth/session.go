package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"saipov-admin/internal/models"
	"saipov-admin/internal/upstream"
	"saipov-admin/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidSession is returned when a token is unknown or expired.
var ErrInvalidSession = errors.New("invalid or expired session")

// Session is the authenticated operator bound to one console token.
// The upstream token is kept server-side only; browsers never see it.
type Session struct {
	Token         string    `json:"token"`
	AdminID       string    `json:"admin_id"`
	FullName      string    `json:"full_name"`
	PhoneNumber   string    `json:"phone_number"`
	UpstreamToken string    `json:"upstream_token"`
	CreatedAt     time.Time `json:"created_at"`
}

// CredentialAPI is the slice of the commerce API the session manager
// needs.
type CredentialAPI interface {
	Login(ctx context.Context, phoneNumber, password string) (*upstream.LoginResult, error)
	GetMe(ctx context.Context, token string) (*models.Admin, error)
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
}

// SessionManager owns the console's session lifecycle. It is built once
// at startup and injected into the HTTP layer; there is no package-level
// session state.
type SessionManager struct {
	rdb    *redis.Client
	api    CredentialAPI
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionManager connects to Redis and returns a ready manager.
func NewSessionManager(addr, password string, db int, api CredentialAPI, ttl time.Duration) (*SessionManager, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &SessionManager{
		rdb:    rdb,
		api:    api,
		ttl:    ttl,
		logger: util.GetLogger(),
	}, nil
}

// Close closes the Redis connection
func (m *SessionManager) Close() error {
	return m.rdb.Close()
}

func sessionKey(token string) string {
	return "session:" + token
}

// Login verifies credentials against the commerce API and issues a
// console session token.
func (m *SessionManager) Login(ctx context.Context, phoneNumber, password string) (*Session, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, models.NewValidationError("phoneNumber", "telefon raqami kiritilishi shart")
	}
	if password == "" {
		return nil, models.NewValidationError("password", "parol kiritilishi shart")
	}

	result, err := m.api.Login(ctx, phoneNumber, password)
	if err != nil {
		util.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	session := &Session{
		Token:         uuid.New().String(),
		AdminID:       result.Admin.ID,
		FullName:      result.Admin.FullName,
		PhoneNumber:   result.Admin.PhoneNumber,
		UpstreamToken: result.Token,
		CreatedAt:     time.Now(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.rdb.Set(ctx, sessionKey(session.Token), data, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	util.LoginsTotal.WithLabelValues("success").Inc()
	m.logger.Info("Admin logged in",
		zap.String("admin_id", session.AdminID),
		zap.String("full_name", session.FullName))

	return session, nil
}

// Validate resolves a token to its session and slides the expiry.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	data, err := m.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	_ = m.rdb.Expire(ctx, sessionKey(token), m.ttl).Err()

	return &session, nil
}

// Profile fetches the fresh admin profile bound to the session,
// verifying the upstream token is still accepted.
func (m *SessionManager) Profile(ctx context.Context, session *Session) (*models.Admin, error) {
	return m.api.GetMe(ctx, session.UpstreamToken)
}

// Logout drops the session. Unknown tokens are a no-op.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := m.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ChangePassword checks the new password locally, then delegates to the
// commerce API under the session's upstream token.
func (m *SessionManager) ChangePassword(ctx context.Context, session *Session, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return models.NewValidationError("currentPassword", "joriy parol kiritilishi shart")
	}
	if len(newPassword) < 6 {
		return models.NewValidationError("newPassword", "parol kamida 6 ta belgidan iborat bo'lishi kerak")
	}

	if err := m.api.ChangePassword(ctx, session.UpstreamToken, currentPassword, newPassword); err != nil {
		return err
	}

	m.logger.Info("Password changed", zap.String("admin_id", session.AdminID))
	return nil
}
