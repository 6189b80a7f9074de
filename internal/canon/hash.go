package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes. The version suffix leaves room for a new encoding
// without colliding with stored fingerprints.
const (
	DomainRecord = "graphsync/record/v1"
	DomainTree   = "graphsync/tree/v1"
)

// Sum computes SHA256(domain + 0x00 + data) as lowercase hex.
func Sum(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash fingerprints the canonical encoding of v under domain.
func Hash(domain string, v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return Sum(domain, b), nil
}
