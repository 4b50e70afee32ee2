package utils

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// NowISO returns the current UTC time as an ISO 8601 / RFC 3339 string, the
// format all timestamp columns use.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// RoundToDecimalPlaces rounds a value to the given number of decimal places
func RoundToDecimalPlaces(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// GenerateOTP generates a random numeric OTP of the given length
func GenerateOTP(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails when the platform entropy source is broken
			n = big.NewInt(int64(time.Now().UnixNano() % 10))
		}
		sb.WriteString(n.String())
	}
	return sb.String()
}

// NormalizeBDPhone converts a Bangladeshi phone number to the 880-prefixed
// form the SMS gateway expects: "01712345678" becomes "8801712345678".
func NormalizeBDPhone(phone string) string {
	number := strings.ReplaceAll(strings.TrimSpace(phone), "+", "")
	switch {
	case strings.HasPrefix(number, "0"):
		return "880" + number[1:]
	case strings.HasPrefix(number, "880"):
		return number
	default:
		return "880" + number
	}
}

// TotalPages returns the page count for a paginated listing
func TotalPages(total, pageSize int) int {
	if total == 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// ShortID returns a prefixed short identifier like "VRF-1a2b3c4d"
func ShortID(prefix, uuidStr string) string {
	hex := strings.ReplaceAll(uuidStr, "-", "")
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return fmt.Sprintf("%s-%s", prefix, hex)
}
