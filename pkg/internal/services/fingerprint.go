package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/spf13/viper"
)

const (
	IdentityWindowDaily   = "daily"
	IdentityWindowSession = "session"
	IdentityWindowNone    = "none"
)

// GenerateFingerprint derives a best-effort device signature from the client
// signals. The value is deterministic for one browser/device combination but
// neither globally unique nor stable across browser updates.
func GenerateFingerprint(signals models.ClientSignals) string {
	seed := strings.Join([]string{
		signals.UserAgent,
		signals.Language,
		fmt.Sprintf("%dx%d", signals.ScreenWidth, signals.ScreenHeight),
		strconv.Itoa(signals.TimezoneOffset),
		signals.Platform,
		signals.CanvasData,
	}, "|")

	hash := rollingHash(seed)
	if hash == math.MinInt32 {
		hash = math.MaxInt32
	} else if hash < 0 {
		hash = -hash
	}

	return strconv.FormatInt(int64(hash), 36)
}

// rollingHash is the 31-multiplier string hash the platform UI has always used
// for fingerprints, wrapped to 32-bit signed. It runs over UTF-16 code units so
// values line up with fingerprints recorded by older clients.
func rollingHash(seed string) int32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(seed)) {
		hash = hash<<5 - hash + int32(unit)
	}
	return hash
}

// IdentityWindow reports how long a hashed identity stays stable before it
// rotates.
func IdentityWindow() string {
	switch viper.GetString("fraud.identity_window") {
	case IdentityWindowSession:
		return IdentityWindowSession
	case IdentityWindowNone:
		return IdentityWindowNone
	default:
		return IdentityWindowDaily
	}
}

// HashIdentity produces the privacy-preserving pseudo-identity used for rate
// limiting. It deliberately excludes the real network address; with the default
// daily window the value rotates every 24 hours, which is a documented privacy
// tradeoff rather than a strong anti-abuse signal.
func HashIdentity(signals models.ClientSignals, sessionID string) string {
	return hashIdentityAt(signals, sessionID, time.Now())
}

func hashIdentityAt(signals models.ClientSignals, sessionID string, now time.Time) string {
	if len(signals.UserAgent) == 0 && len(signals.Language) == 0 &&
		signals.ScreenWidth == 0 && signals.ScreenHeight == 0 {
		// No usable signals at all. The random fallback defeats rate limiting
		// on purpose rather than blocking the voter.
		return "browser_" + randomHex(6)
	}

	var salt string
	switch IdentityWindow() {
	case IdentityWindowSession:
		salt = sessionID
	case IdentityWindowNone:
		salt = ""
	default:
		salt = now.UTC().Format("2006-01-02")
	}

	seed := strings.Join([]string{
		signals.UserAgent,
		signals.Language,
		fmt.Sprintf("%dx%d", signals.ScreenWidth, signals.ScreenHeight),
		salt,
	}, "|")

	digest := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(digest[:])[:16]
}

func randomHex(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
