package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

// CaptchaTokenTTL is how long a solved captcha stays acceptable, measured from
// the timestamp embedded in the token.
const CaptchaTokenTTL = 5 * time.Minute

// CaptchaToken is the opaque blob handed back by the captcha widget: base64
// over a small JSON payload. When a signing secret is configured the payload
// additionally carries an HMAC so client-forged tokens are rejected.
type CaptchaToken struct {
	Verified  bool   `json:"verified"`
	Timestamp int64  `json:"timestamp"`
	Sig       string `json:"sig,omitempty"`
}

func captchaSecret() string {
	return viper.GetString("captcha.secret")
}

func signCaptchaPayload(verified bool, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%t:%d", verified, timestamp)))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// IssueCaptchaToken mints a token for a solved challenge. Unsigned when no
// secret is configured, to stay compatible with the legacy widget.
func IssueCaptchaToken(verified bool, at time.Time) string {
	token := CaptchaToken{
		Verified:  verified,
		Timestamp: at.UnixMilli(),
	}
	if secret := captchaSecret(); len(secret) > 0 {
		token.Sig = signCaptchaPayload(token.Verified, token.Timestamp, secret)
	}

	raw, _ := jsoniter.Marshal(token)
	return base64.StdEncoding.EncodeToString(raw)
}

// VerifyCaptchaToken checks encoding, verification flag, age and, when a
// secret is configured, the signature. It reports why a token is unacceptable
// so the gate can hand the voter an actionable reason.
func VerifyCaptchaToken(raw string) error {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("malformed captcha token")
	}

	var token CaptchaToken
	if err := jsoniter.Unmarshal(decoded, &token); err != nil {
		return fmt.Errorf("malformed captcha token")
	}

	if !token.Verified {
		return fmt.Errorf("captcha was not solved")
	}

	issued := time.UnixMilli(token.Timestamp)
	if time.Since(issued) > CaptchaTokenTTL {
		return fmt.Errorf("captcha token expired")
	}

	if secret := captchaSecret(); len(secret) > 0 {
		expected := signCaptchaPayload(token.Verified, token.Timestamp, secret)
		if !hmac.Equal([]byte(token.Sig), []byte(expected)) {
			return fmt.Errorf("captcha token signature mismatch")
		}
	}

	return nil
}
