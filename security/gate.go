package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"

	"teamflow/bizerror"

	"github.com/sirupsen/logrus"
)

const HeaderDeleteSecret = "X-Delete-Secret"

// Gate guards destructive operations with one shared secret. It keeps honest users
// from deleting by mistake, it does not identify anybody.
type Gate struct {
	secretHash string
}

// NewGate an empty secret makes every check fail.
func NewGate(secret string) *Gate {
	if secret == "" {
		return &Gate{}
	}
	return &Gate{secretHash: HashSha256(secret)}
}

// GateFromEnv DELETE_SECRET
func GateFromEnv() *Gate {
	secret := os.Getenv("DELETE_SECRET")
	if secret == "" {
		logrus.Warn("DELETE_SECRET is not set, deletion is disabled")
	}
	return NewGate(secret)
}

func (g *Gate) Check(token string) error {
	if g == nil || g.secretHash == "" || token == "" {
		return bizerror.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(HashSha256(token)), []byte(g.secretHash)) != 1 {
		return bizerror.ErrUnauthorized
	}
	return nil
}

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
