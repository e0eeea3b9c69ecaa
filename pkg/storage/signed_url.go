package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed and tampered download tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner creates and validates tokens granting temporary access to a
// single file of a submission.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token for file index of the given submission.
func (s *SignedURLSigner) Generate(submissionID string, index int) (string, time.Time, error) {
	if submissionID == "" || index < 0 {
		return "", time.Time{}, fmt.Errorf("submission id and file index required")
	}
	if strings.Contains(submissionID, ".") {
		return "", time.Time{}, fmt.Errorf("submission id %q not signable", submissionID)
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	idx := strconv.Itoa(index)
	token := strings.Join([]string{submissionID, idx, exp, s.sign(submissionID, idx, exp)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the submission id and file index.
func (s *SignedURLSigner) Parse(token string) (submissionID string, index int, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", 0, ErrInvalidToken
	}
	submissionID, idx, exp, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(submissionID, idx, exp)), []byte(signature)) {
		return "", 0, ErrInvalidToken
	}

	index, err = strconv.Atoi(idx)
	if err != nil || index < 0 {
		return "", 0, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", 0, ErrTokenExpired
	}
	return submissionID, index, nil
}

func (s *SignedURLSigner) sign(submissionID, idx, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(submissionID + "|" + idx + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
