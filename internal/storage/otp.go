package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"skillswap/backend/internal/errs"

	"github.com/redis/go-redis/v9"
)

// ErrNoOTP is returned when no code is pending for an email.
var ErrNoOTP = errs.NotFound("verification code")

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

// SaveOTP stores the code for email; it is dropped after ttl.
func (s *Service) SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	if s.Redis == nil {
		s.otps.set(otpKey(email), code, ttl)
		return nil
	}
	return s.Redis.Set(ctx, otpKey(email), code, ttl).Err()
}

func (s *Service) GetOTP(ctx context.Context, email string) (string, error) {
	if s.Redis == nil {
		if code, ok := s.otps.get(otpKey(email)); ok {
			return code, nil
		}
		return "", ErrNoOTP
	}
	code, err := s.Redis.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoOTP
	}
	return code, err
}

func (s *Service) DeleteOTP(ctx context.Context, email string) error {
	if s.Redis == nil {
		s.otps.del(otpKey(email))
		return nil
	}
	return s.Redis.Del(ctx, otpKey(email)).Err()
}

// memoryOTP is the single-instance stand-in for Redis.
type memoryOTP struct {
	mu    sync.Mutex
	codes map[string]otpEntry
	now   func() time.Time
}

type otpEntry struct {
	code    string
	expires time.Time
}

func newMemoryOTP() *memoryOTP {
	return &memoryOTP{codes: map[string]otpEntry{}, now: time.Now}
}

func (m *memoryOTP) set(key, code string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.codes {
		if !now.Before(e.expires) {
			delete(m.codes, k)
		}
	}
	m.codes[key] = otpEntry{code: code, expires: now.Add(ttl)}
}

func (m *memoryOTP) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.codes[key]
	if !ok || !m.now().Before(e.expires) {
		return "", false
	}
	return e.code, true
}

func (m *memoryOTP) del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, key)
}
