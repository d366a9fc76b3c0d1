package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	bookingRepo "astrobook/database/repository/booking"
	serviceRepo "astrobook/database/repository/service"
	"astrobook/models"
	"astrobook/utils"

	"go.uber.org/zap"
)

// SlotGenerator computes the offerable slots of one service on one local day.
type SlotGenerator struct {
	availability AvailabilityReader
	ledger       bookingRepo.BookingRepository
	services     serviceRepo.ServiceRepository
	cache        SlotCache
	settings     Settings
	now          func() time.Time
	logger       *zap.Logger
}

func NewSlotGenerator(
	availability AvailabilityReader,
	ledger bookingRepo.BookingRepository,
	services serviceRepo.ServiceRepository,
	cache SlotCache,
	settings Settings,
	logger *zap.Logger,
) *SlotGenerator {
	if cache == nil {
		cache = nopCache{}
	}
	return &SlotGenerator{
		availability: availability,
		ledger:       ledger,
		services:     services,
		cache:        cache,
		settings:     settings,
		now:          time.Now,
		logger:       logger,
	}
}

// SlotsFor returns the slots of an active service on date (YYYY-MM-DD, practitioner timezone).
func (g *SlotGenerator) SlotsFor(ctx context.Context, serviceID, date string) ([]models.Slot, error) {
	if serviceID == "" {
		return nil, utils.NewValidationError("serviceId is required")
	}
	day, err := DayBounds(date, g.settings.Location)
	if err != nil {
		return nil, utils.NewValidationError("%s", err.Error())
	}
	svc, err := g.services.GetByID(ctx, serviceID)
	if errors.Is(err, serviceRepo.ErrNotFound) {
		return nil, utils.NewNotFoundError("service")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	if !svc.Active {
		return nil, utils.NewNotFoundError("service")
	}
	return g.Generate(ctx, *svc, day)
}

// Generate runs slot generation for a day. Results before "now" are never returned.
func (g *SlotGenerator) Generate(ctx context.Context, svc models.Service, day models.TimeRange) ([]models.Slot, error) {
	now := g.now()
	if !day.End.After(now) {
		return []models.Slot{}, nil
	}

	key := DayKey(day.Start, g.settings.Location)
	if cached, ok := g.cache.Get(ctx, svc.ID, key); ok {
		return afterNow(cached, now), nil
	}

	slots, err := g.compute(ctx, svc.Duration(), day)
	if err != nil {
		return nil, err
	}
	g.cache.Set(ctx, svc.ID, key, slots)
	return afterNow(slots, now), nil
}

func (g *SlotGenerator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.settings.ExternalTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.settings.ExternalTimeout)
}

func (g *SlotGenerator) compute(ctx context.Context, duration time.Duration, day models.TimeRange) ([]models.Slot, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	avail, err := g.availability.ListBusyAndOpenRanges(ctx, day.Start, day.End)
	if err != nil {
		if utils.KindOf(err) == utils.KindInternal {
			err = utils.NewUpstreamError("calendar", err)
		}
		return nil, err
	}
	active, err := g.ledger.ListActiveBetween(ctx, day.Start, day.End)
	if err != nil {
		return nil, utils.NewUpstreamError("booking ledger", err)
	}

	windows := g.windows(avail.Open, day)
	if len(windows) == 0 {
		return []models.Slot{}, nil
	}
	allBusy := make([]models.TimeRange, 0, len(avail.Busy)+len(active))
	allBusy = append(allBusy, avail.Busy...)
	allBusy = append(allBusy, active...)

	span := duration + g.settings.Buffer
	slots := []models.Slot{}
	for _, w := range windows {
		for c := range EnumerateSlots(w.Start, w.End, g.settings.Step, span) {
			if models.OverlapsAny(models.TimeRange{Start: c, End: c.Add(span)}, allBusy) {
				continue
			}
			slots = append(slots, models.Slot{Start: c, End: c.Add(duration)})
		}
	}
	return sortUnique(slots), nil
}

// windows returns the merged open windows clipped to the day, or the default hours when there are none.
func (g *SlotGenerator) windows(open []models.TimeRange, day models.TimeRange) []models.TimeRange {
	var clipped []models.TimeRange
	for _, r := range models.MergeRanges(open) {
		if c, ok := models.Clip(r, day); ok {
			clipped = append(clipped, c)
		}
	}
	if len(clipped) > 0 {
		return clipped
	}
	if g.settings.DefaultHours == nil {
		return nil
	}
	if w, ok := models.Clip(g.settings.DefaultHours.On(day.Start, g.settings.Location), day); ok {
		return []models.TimeRange{w}
	}
	return nil
}

// CheckSlot re-checks the ledger for [start, start+duration+buffer).
func (g *SlotGenerator) CheckSlot(ctx context.Context, start time.Time, duration time.Duration) error {
	span := models.TimeRange{Start: start, End: start.Add(duration + g.settings.Buffer)}
	active, err := g.ledger.ListActiveBetween(ctx, span.Start, span.End)
	if err != nil {
		return utils.NewUpstreamError("booking ledger", err)
	}
	if models.OverlapsAny(span, active) {
		return utils.NewSlotTakenError(nil)
	}
	return nil
}

// maxInvalidateDays bounds the walk for very long ranges; cache entries past it expire by TTL.
const maxInvalidateDays = 366

// Invalidate drops cached slots for every local day touched by r.
func (g *SlotGenerator) Invalidate(ctx context.Context, r models.TimeRange) {
	loc := g.settings.Location
	last := DayKey(r.End, loc)
	y, m, d := r.Start.In(loc).Date()
	for i := 0; i <= maxInvalidateDays; i++ {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, loc).Format("2006-01-02")
		g.cache.InvalidateDay(ctx, day)
		if day >= last {
			return
		}
	}
}

func afterNow(slots []models.Slot, now time.Time) []models.Slot {
	out := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Start.After(now) {
			out = append(out, s)
		}
	}
	return out
}

func sortUnique(slots []models.Slot) []models.Slot {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	out := slots[:0]
	for i, s := range slots {
		if i > 0 && s.Start.Equal(out[len(out)-1].Start) {
			continue
		}
		out = append(out, s)
	}
	return out
}
