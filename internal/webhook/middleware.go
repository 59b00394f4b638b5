package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderSignature carries the hex HMAC-SHA256 of the raw body.
	HeaderSignature = "X-Retell-Signature"
	// HeaderSignatureFallback is accepted for vendors that use a generic name.
	HeaderSignatureFallback = "X-Webhook-Signature"
)

// SignatureMiddleware rejects callbacks whose body signature does not match
// secret. An empty secret disables the check. The body is restored for the
// handler after verification.
func SignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		signature := strings.TrimSpace(c.GetHeader(HeaderSignature))
		if signature == "" {
			signature = strings.TrimSpace(c.GetHeader(HeaderSignatureFallback))
		}
		signature = strings.TrimPrefix(signature, "sha256=")
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errReadBody})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidSignature(secret, body, signature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}

// ValidSignature reports whether signature is the hex HMAC-SHA256 of body under secret.
func ValidSignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(secret, body))
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
