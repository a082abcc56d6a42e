package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOTP_Expiry(t *testing.T) {
	s := NewStorageService(nil, nil, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.otps.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.SaveOTP(ctx, "Alice@Example.com ", "123456", time.Minute))
	code, err := s.GetOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	now = now.Add(time.Minute)
	_, err = s.GetOTP(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNoOTP)

	require.NoError(t, s.SaveOTP(ctx, "bob@example.com", "654321", time.Minute))
	assert.Len(t, s.otps.codes, 1, "expired codes are swept on write")
	require.NoError(t, s.DeleteOTP(ctx, "bob@example.com"))
	_, err = s.GetOTP(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNoOTP)
}
