package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// BadgeSigner produces and checks the payload encoded in an attendee's badge
// QR code: "attendee:<ref>;signature:<hex hmac-sha256 of ref>".
type BadgeSigner struct {
	SecretKey string
}

func NewBadgeSigner(secretKey string) *BadgeSigner {
	return &BadgeSigner{SecretKey: secretKey}
}

func (b *BadgeSigner) signature(ref string) string {
	mac := hmac.New(sha256.New, []byte(b.SecretKey))
	mac.Write([]byte("attendee:" + ref))
	return hex.EncodeToString(mac.Sum(nil))
}

func (b *BadgeSigner) Payload(ref string) string {
	return fmt.Sprintf("attendee:%s;signature:%s", ref, b.signature(ref))
}

// Verify returns the ref carried by payload when its signature is valid.
func (b *BadgeSigner) Verify(payload string) (string, bool) {
	parts := strings.Split(payload, ";")
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "attendee:") || !strings.HasPrefix(parts[1], "signature:") {
		return "", false
	}

	ref := strings.TrimPrefix(parts[0], "attendee:")
	signature := strings.TrimPrefix(parts[1], "signature:")
	if ref == "" {
		return "", false
	}
	if !hmac.Equal([]byte(b.signature(ref)), []byte(signature)) {
		return "", false
	}
	return ref, true
}
