package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/webprobe/internal/engine"
)

// DefaultFallbackDelay — задержка повторной проверки, если интервал
// сценария не удалось вычислить.
const DefaultFallbackDelay = 60 * time.Second

// ErrInvalidInterval — интервал не разобран или не положителен.
var ErrInvalidInterval = errors.New("invalid update interval")

// cronParser — парсер cron-выражений (5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseInterval вычисляет задержку до следующей проверки.
//
// Поддерживаются интервалы с суффиксом ("60", "30s", "5m", "1h", "1d", "1w")
// и cron-выражения ("*/5 * * * *"): для них задержка считается от now
// до ближайшего срабатывания.
func ParseInterval(spec string, now time.Time) (time.Duration, error) {
	spec = strings.TrimSpace(spec)

	if sec, err := engine.ParseTimeSuffix(spec); err == nil {
		if sec <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, spec)
		}
		return time.Duration(sec) * time.Second, nil
	}

	if !strings.Contains(spec, " ") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, spec)
	}

	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidInterval, spec, err)
	}

	delay := schedule.Next(now).Sub(now)
	if delay <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, spec)
	}
	return delay, nil
}
