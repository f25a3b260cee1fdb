package greeks

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"
)

const yearHours = 365.25 * 24

var nyse = calendar.XNYS()

// easternOrUTC returns the NYSE timezone, falling back to UTC when tzdata
// is unavailable.
func easternOrUTC() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimeToExpiry returns the year fraction between now and the 16:00 ET close
// on the expiration date. Expired dates return 0, never negative.
func TimeToExpiry(expiration string, now time.Time) (float64, error) {
	loc := easternOrUTC()

	day, err := time.ParseInLocation("2006-01-02", expiration, loc)
	if err != nil {
		return 0, fmt.Errorf("invalid expiration date %q: %w", expiration, err)
	}

	close := time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, loc)
	hours := close.Sub(now).Hours()
	if hours <= 0 {
		return 0, nil
	}
	return hours / yearHours, nil
}

// IsMarketDay reports whether the expiration falls on an NYSE business day.
// Non-market expirations are tolerated but worth a log line upstream.
func IsMarketDay(expiration string) bool {
	loc := easternOrUTC()

	// Parse as noon to avoid midnight/DST boundary surprises.
	t, err := time.ParseInLocation("2006-01-02 15:04:05", expiration+" 12:00:00", loc)
	if err != nil {
		return false
	}
	return nyse.IsBusinessDay(t)
}
