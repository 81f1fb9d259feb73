package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadToken = errors.New("invalid token")

// GenerateSalt returns 32 hex chars of randomness, one per user.
func GenerateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// digest is HMAC-SHA256 keyed by the salt. Hex output stays under bcrypt's
// 72 byte input limit.
func digest(pw, salt string) []byte {
	m := hmac.New(sha256.New, []byte(salt))
	m.Write([]byte(pw))
	return []byte(hex.EncodeToString(m.Sum(nil)))
}

func HashPassword(pw, salt string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(digest(pw, salt), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, salt, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), digest(pw, salt)) == nil
}

// dummyHash is compared against when the user does not exist so both
// failure paths cost one bcrypt run.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func BurnCompare(pw string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies session tokens. The key lives only in memory.
type Signer struct {
	key []byte
}

// NewSigner generates a fresh key, so tokens from a previous process are
// rejected after restart.
func NewSigner() (*Signer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

func newSignerWithKey(key []byte) *Signer {
	return &Signer{key: key}
}

func (s *Signer) MakeToken(sessionID, uid string, expires time.Time) (string, error) {
	c := Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
}

func (s *Signer) ParseToken(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.ID == "" || c.UserID == "" {
		return nil, ErrBadToken
	}
	return c, nil
}
