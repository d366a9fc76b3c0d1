package booking

import (
	"fmt"
	"time"

	"astrobook/config"
	"astrobook/models"
)

// DailyHours is a wall-clock window applied to every day in the practitioner's timezone.
type DailyHours struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// ParseDailyHours parses "HH:MM" bounds. Two empty strings mean no default hours.
func ParseDailyHours(start, end string) (*DailyHours, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	s, err := time.Parse("15:04", start)
	if err != nil {
		return nil, fmt.Errorf("invalid default hours start %q: %w", start, err)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return nil, fmt.Errorf("invalid default hours end %q: %w", end, err)
	}
	if !e.After(s) {
		return nil, fmt.Errorf("default hours end %s must be after start %s", end, start)
	}
	return &DailyHours{StartHour: s.Hour(), StartMinute: s.Minute(), EndHour: e.Hour(), EndMinute: e.Minute()}, nil
}

// On returns the window on the given local day.
func (h DailyHours) On(day time.Time, loc *time.Location) models.TimeRange {
	y, m, d := day.In(loc).Date()
	return models.TimeRange{
		Start: time.Date(y, m, d, h.StartHour, h.StartMinute, 0, 0, loc),
		End:   time.Date(y, m, d, h.EndHour, h.EndMinute, 0, 0, loc),
	}
}

// Settings are the scheduling rules shared by slot generation and reservations.
type Settings struct {
	Location        *time.Location
	Step            time.Duration
	Buffer          time.Duration
	DefaultHours    *DailyHours
	HoldTTL         time.Duration
	ExternalTimeout time.Duration
}

func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	var hours *DailyHours
	if cfg.DefaultHoursEnabled {
		var err error
		if hours, err = ParseDailyHours(cfg.DefaultHoursStart, cfg.DefaultHoursEnd); err != nil {
			return Settings{}, err
		}
	}
	return Settings{
		Location:        cfg.Location(),
		Step:            time.Duration(cfg.SlotStepMinutes) * time.Minute,
		Buffer:          time.Duration(cfg.BufferMinutes) * time.Minute,
		DefaultHours:    hours,
		HoldTTL:         cfg.HoldTTL,
		ExternalTimeout: cfg.ExternalTimeout,
	}, nil
}

// DayBounds returns [midnight, next midnight) of a YYYY-MM-DD date in loc.
func DayBounds(date string, loc *time.Location) (models.TimeRange, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return models.TimeRange{Start: d, End: d.AddDate(0, 0, 1)}, nil
}

// DayKey names the local day containing t.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
