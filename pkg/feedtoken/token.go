package feedtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed feed token")
	ErrSignature = errors.New("invalid feed token signature")
	ErrExpired   = errors.New("feed token expired")
)

// Claims is what a feed token grants: read access to one scope of one user's calendar.
type Claims struct {
	UserID    string
	Scope     string
	ExpiresAt time.Time
}

// Signer issues and verifies HMAC-signed calendar subscription tokens. Calendar apps cannot send
// bearer tokens, so the token travels in the feed URL itself.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token of the form userID.expiry.scope.signature.
func (s *Signer) Issue(userID, scope string) (string, time.Time, error) {
	if userID == "" || scope == "" {
		return "", time.Time{}, fmt.Errorf("userID and scope required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedUser := base64.RawURLEncoding.EncodeToString([]byte(userID))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	sig := s.sign(encodedUser, exp, scope)
	return strings.Join([]string{encodedUser, exp, scope, sig}, "."), expiresAt, nil
}

// Verify validates the signature and expiry of a token.
func (s *Signer) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Claims{}, ErrMalformed
	}
	encodedUser, exp, scope, sig := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedUser, exp, scope)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Claims{}, ErrSignature
	}
	rawUser, err := base64.RawURLEncoding.DecodeString(encodedUser)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	claims := Claims{UserID: string(rawUser), Scope: scope, ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

func (s *Signer) sign(encodedUser, exp, scope string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedUser + "|" + exp + "|" + scope))
	return hex.EncodeToString(mac.Sum(nil))
}
