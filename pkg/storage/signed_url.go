package storage

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
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadGrant is what a signed download token authorises: one user fetching
// one listing's object.
type DownloadGrant struct {
	ListingID  string
	UserID     string
	ObjectPath string
	ExpiresAt  time.Time
}

// SignedURLSigner creates and validates signed download tokens.
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

// Issue returns a token of the form listing.user.exp.b64path.sig.
func (s *SignedURLSigner) Issue(listingID, userID, objectPath string) (string, time.Time, error) {
	if listingID == "" || userID == "" || objectPath == "" {
		return "", time.Time{}, fmt.Errorf("listing id, user id and object path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(objectPath))
	signature := s.sign(listingID, userID, exp, encodedPath)
	token := strings.Join([]string{listingID, userID, exp, encodedPath, signature}, ".")
	return token, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded grant.
func (s *SignedURLSigner) Verify(token string) (DownloadGrant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return DownloadGrant{}, ErrInvalidToken
	}
	listingID, userID, exp, encodedPath, signature := parts[0], parts[1], parts[2], parts[3], parts[4]

	expected := s.sign(listingID, userID, exp, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return DownloadGrant{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return DownloadGrant{}, ErrInvalidToken
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return DownloadGrant{}, ErrInvalidToken
	}
	grant := DownloadGrant{
		ListingID:  listingID,
		UserID:     userID,
		ObjectPath: string(rawPath),
		ExpiresAt:  time.Unix(expUnix, 0).UTC(),
	}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(listingID, userID, exp, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(listingID + "|" + userID + "|" + exp + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
