package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shaiso/webprobe/internal/domain"
)

// Границы таймаута шага.
const (
	MinTimeout = 1
	MaxTimeout = 3600
)

var suffixSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 7 * 86400,
}

// ParseTimeSuffix разбирает "30", "30s", "5m", "1h", "1d", "1w" в секунды.
func ParseTimeSuffix(s string) (int, error) {
	if s == "" {
		return 0, ErrInvalidTimeSuffix
	}

	mult := int64(1)
	digits := s
	if m, ok := suffixSeconds[s[len(s)-1]]; ok {
		mult = m
		digits = s[:len(s)-1]
	}
	if digits == "" {
		return 0, ErrInvalidTimeSuffix
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrInvalidTimeSuffix
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > math.MaxInt32/mult {
		return 0, ErrInvalidTimeSuffix
	}
	return int(n * mult), nil
}

// ParseTimeout разбирает таймаут шага и проверяет границы 1..3600 секунд.
func ParseTimeout(s string) (time.Duration, error) {
	sec, err := ParseTimeSuffix(s)
	if err != nil {
		return 0, &domain.ConfigError{
			Field:   "timeout",
			Message: fmt.Sprintf("timeout \"%s\" is invalid", s),
		}
	}
	if sec < MinTimeout || sec > MaxTimeout {
		return 0, &domain.ConfigError{
			Field:   "timeout",
			Message: fmt.Sprintf("timeout \"%s\" is out of 1-3600 seconds bounds", s),
		}
	}
	return time.Duration(sec) * time.Second, nil
}
