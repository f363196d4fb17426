package timezone

import (
	"time"

	// Clinic zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

const DefaultTimezone = "Asia/Karachi"

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location falls back to the default clinic zone, then UTC when tzdata is
// unavailable.
func Location(tz string) *time.Location {
	if loc, err := time.LoadLocation(tz); err == nil && tz != "" {
		return loc
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

func NowIn(tz string) time.Time {
	return time.Now().In(Location(tz))
}

// SlotTime combines a booking date and time in loc.
func SlotTime(date, clock string, loc *time.Location) (time.Time, error) {
	layout := "2006-01-02 15:04:05"
	if len(clock) == 5 {
		layout = "2006-01-02 15:04"
	}
	return time.ParseInLocation(layout, date+" "+clock, loc)
}
