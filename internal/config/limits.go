package config

import "time"

const (
	// Auth
	DefaultTokenTTL = 72 * time.Hour
	DefaultOTPTTL   = 10 * time.Minute
	OTPLength       = 6

	// Realtime
	TypingTTL       = 3 * time.Second
	TypingIdleAfter = 1 * time.Second
	ClientSendQueue = 256

	// Chat
	MaxMessageLength = 4000
)
