package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long an admin session stays valid
const DefaultSessionTTL = 12 * time.Hour

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrExpiredToken    = errors.New("session token expired")
	ErrNotConfigured   = errors.New("admin access is not configured")
)

// Authenticator checks the admin password and issues signed session tokens
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator from a bcrypt hash and an HMAC secret
func NewAuthenticator(passwordHash, secret string, ttl time.Duration) (*Authenticator, error) {
	if passwordHash == "" || secret == "" {
		return nil, ErrNotConfigured
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Authenticator{
		hash:   []byte(passwordHash),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash to configure as the admin password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// TTL is the lifetime of issued tokens
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Login checks the password and returns a session token with its expiry
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidPassword
	}
	expires := a.now().Add(a.ttl)
	token, err := a.issue(expires)
	return token, expires, err
}

// token layout: <unix expiry>.<nonce>.<hex hmac-sha256 of the first two parts>
func (a *Authenticator) issue(expires time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := strconv.FormatInt(expires.Unix(), 10) + "." + hex.EncodeToString(nonce)
	return payload + "." + a.sign(payload), nil
}

func (a *Authenticator) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature and expiry of a session token
func (a *Authenticator) Verify(token string) error {
	i := strings.LastIndexByte(token, '.')
	if i <= 0 {
		return ErrInvalidToken
	}
	payload, sig := token[:i], token[i+1:]
	if !hmac.Equal([]byte(sig), []byte(a.sign(payload))) {
		return ErrInvalidToken
	}

	exp, _, ok := strings.Cut(payload, ".")
	if !ok {
		return ErrInvalidToken
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}
	if !a.now().Before(time.Unix(unix, 0)) {
		return ErrExpiredToken
	}
	return nil
}
