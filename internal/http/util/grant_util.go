package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidGrant  = errors.New("invalid or expired upload grant")
	ErrMissingSecret = errors.New("grant secret is not configured")
)

// GrantSigner issues compact HMAC grants that let a visitor who already
// satisfied a link's access policy post an upload manifest without
// re-sending the password.
type GrantSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewGrantSigner returns a signer with the given TTL.
func NewGrantSigner(secret []byte, ttl time.Duration) *GrantSigner {
	return &GrantSigner{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a grant bound to the slug/topic pair.
func (s *GrantSigner) Issue(slug, topic string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, 12) // 4 bytes expiry + 8 random bytes
	expires := uint32(time.Now().Add(s.ttl).Unix())
	binary.BigEndian.PutUint32(payload[:4], expires)
	if _, err := rand.Read(payload[4:]); err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(slug, topic, payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature[:16])
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), nil
}

// Validate checks signature integrity and TTL of the grant.
func (s *GrantSigner) Validate(slug, topic, grant string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	parts := strings.SplitN(grant, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidGrant
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidGrant
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidGrant
	}
	if len(sigProvided) != 16 {
		return ErrInvalidGrant
	}

	expected := s.sign(slug, topic, payload)
	if !hmac.Equal(sigProvided, expected[:16]) {
		return ErrInvalidGrant
	}

	if len(payload) < 4 {
		return ErrInvalidGrant
	}
	expires := binary.BigEndian.Uint32(payload[:4])
	if time.Now().Unix() > int64(expires) {
		return ErrInvalidGrant
	}

	return nil
}

func (s *GrantSigner) sign(slug, topic string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(slug))
	mac.Write([]byte("/"))
	mac.Write([]byte(topic))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
