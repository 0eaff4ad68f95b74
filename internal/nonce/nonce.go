// Package nonce issues and checks short-lived, action-bound tokens that
// guard state-changing admin requests.
package nonce

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an issued nonce stays valid.
const DefaultTTL = 24 * time.Hour

// ephemeralKeySize is the length of the key generated when no secret is
// configured.
const ephemeralKeySize = 32

// Issuer signs nonces with a shared secret.
type Issuer struct {
	secret    []byte
	ephemeral bool
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer returns an issuer keyed with secret. An empty secret is replaced
// by a random per-process key, so nonces only verify in the process that
// issued them.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	iss := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	if secret == "" {
		iss.secret = make([]byte, ephemeralKeySize)
		if _, err := rand.Read(iss.secret); err != nil {
			panic(fmt.Sprintf("nonce: generate key: %v", err))
		}
		iss.ephemeral = true
	}
	return iss
}

// Ephemeral reports whether the issuer runs on a generated key.
func (i *Issuer) Ephemeral() bool {
	return i.ephemeral
}

// Issue returns a nonce for action in the form id.expiry.signature.
func (i *Issuer) Issue(action string) string {
	id := uuid.NewString()
	expiry := strconv.FormatInt(i.now().Add(i.ttl).Unix(), 10)
	return id + "." + expiry + "." + i.sign(action, id, expiry)
}

// Verify reports whether token was issued for action and has not expired.
func (i *Issuer) Verify(action, token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	id, expiry, sig := parts[0], parts[1], parts[2]
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	exp, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil || i.now().Unix() > exp {
		return false
	}
	want := i.sign(action, id, expiry)
	return hmac.Equal([]byte(sig), []byte(want))
}

func (i *Issuer) sign(action, id, expiry string) string {
	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%s|%s|%s", action, id, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}
