package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
)

// OverdueCanceller is implemented by *repository.ReservationRepository.
type OverdueCanceller interface {
	CancelOverdue(ctx context.Context, date, clock string) ([]uint, error)
}

// NoShowMonitor cancels booked reservations once their slot plus Grace has
// passed without the party being seated.
type NoShowMonitor struct {
	Reservations OverdueCanceller
	Rules        models.HouseRules
	Grace        time.Duration
	Interval     time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewNoShowMonitor(reservations OverdueCanceller, rules models.HouseRules, grace time.Duration) *NoShowMonitor {
	return &NoShowMonitor{
		Reservations: reservations,
		Rules:        rules,
		Grace:        grace,
		Interval:     1 * time.Minute,
		stopChan:     make(chan struct{}),
	}
}

// Start does nothing when Grace is not positive.
func (m *NoShowMonitor) Start() {
	if m.Grace <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.CheckNoShows(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("no-show monitor: %v", err)
				}
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *NoShowMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// CheckNoShows cancels every booked reservation whose slot is at or before
// now minus Grace.
func (m *NoShowMonitor) CheckNoShows(ctx context.Context) ([]uint, error) {
	cutoff := m.Rules.LocalNow().Add(-m.Grace)
	ids, err := m.Reservations.CancelOverdue(ctx, cutoff.Format(models.DateLayout), cutoff.Format(models.ClockLayout))
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		utils.InfoLogger.WithField("reservation_ids", ids).Info("cancelled no-show reservations")
	}
	return ids, nil
}
