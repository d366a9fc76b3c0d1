package database

import (
	"context"
	"database/sql"
	"fmt"

	"astrobook/models"
)

// DefaultServices is the starter catalog written when SEED_SERVICES is enabled.
var DefaultServices = []models.Service{
	{ID: "natal-chart", Name: "Natal Chart Reading", Description: "A full reading of your birth chart.", DurationMinutes: 60, PriceCents: 12000, Active: true},
	{ID: "solar-return", Name: "Solar Return Reading", Description: "The year ahead from your birthday chart.", DurationMinutes: 45, PriceCents: 9000, Active: true},
	{ID: "synastry", Name: "Synastry Reading", Description: "Compatibility between two charts.", DurationMinutes: 90, PriceCents: 16000, Active: true},
	{ID: "quick-question", Name: "Quick Question", Description: "One focused question, answered live.", DurationMinutes: 30, PriceCents: 5000, Active: true},
}

// SeedServices inserts the given services, leaving existing rows untouched.
func SeedServices(ctx context.Context, db *sql.DB, services []models.Service) (int, error) {
	inserted := 0
	for _, s := range services {
		res, err := db.ExecContext(ctx,
			`INSERT INTO services (id, name, description, duration_minutes, price_cents, active)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			s.ID, s.Name, s.Description, s.DurationMinutes, s.PriceCents, s.Active)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed service %s: %w", s.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}
