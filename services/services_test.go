package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/database"
	"github.com/yeremiapane/periodic-tables/events"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

type recordingFloor struct {
	mu     sync.Mutex
	events []string
	tables []models.Table
}

func (f *recordingFloor) add(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *recordingFloor) BroadcastTableUpdate(table models.Table) {
	f.add("table_update")
	f.mu.Lock()
	f.tables = append(f.tables, table)
	f.mu.Unlock()
}
func (f *recordingFloor) BroadcastTableCreate(models.Table)             { f.add("table_create") }
func (f *recordingFloor) BroadcastTableDelete(uint)                     { f.add("table_delete") }
func (f *recordingFloor) BroadcastReservationCreate(models.Reservation) { f.add("reservation_create") }
func (f *recordingFloor) BroadcastReservationUpdate(models.Reservation) { f.add("reservation_update") }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newReservation(date, clock string) *models.Reservation {
	return &models.Reservation{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		MobileNumber:    "555-123-4567",
		ReservationDate: date,
		ReservationTime: clock,
		People:          2,
	}
}

func TestChangeMonitor_ProcessPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reservations := repository.NewReservationRepository(db)
	tables := repository.NewTableRepository(db)

	res := newReservation("2030-06-05", "18:00")
	require.NoError(t, reservations.Create(ctx, res))
	table := &models.Table{Name: "#1", Capacity: 4}
	require.NoError(t, tables.Create(ctx, table))
	_, err := tables.Seat(ctx, table.ID, res.ID)
	require.NoError(t, err)
	spare := &models.Table{Name: "#2", Capacity: 2}
	require.NoError(t, tables.Create(ctx, spare))
	require.NoError(t, tables.Delete(ctx, spare.ID))

	floor := &recordingFloor{}
	publisher := &recordingPublisher{}
	store := cache.NewMemoryCache(time.Minute)
	store.Set(ctx, "/tables", &cache.CachedResponse{Status: 200}, time.Minute)

	monitor := NewChangeMonitor(db, floor, publisher)
	monitor.Cache = store

	n, err := monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	// The spare table's INSERT is skipped because the row is already gone.
	assert.Equal(t, []string{
		"reservation_create",
		"table_create",
		"reservation_update",
		"table_update",
		"table_delete",
	}, floor.events)
	assert.Equal(t, []string{
		events.KeyReservationCreated,
		events.KeyTableCreated,
		events.KeyReservationUpdated,
		events.KeyTableUpdated,
		events.KeyTableDeleted,
	}, publisher.keys)
	assert.Equal(t, 0, store.ItemCount(), "processed changes flush the response cache")

	require.Len(t, floor.tables, 1)
	assert.False(t, floor.tables[0].IsFree)

	var pending int64
	require.NoError(t, db.Model(&models.DBChange{}).Where("processed = ?", false).Count(&pending).Error)
	assert.Zero(t, pending)

	n, err = monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChangeMonitor_PublishFailureStillMarksProcessed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, repository.NewReservationRepository(db).Create(ctx, newReservation("2030-06-05", "18:00")))

	monitor := NewChangeMonitor(db, nil, &recordingPublisher{err: errors.New("broker down")})
	n, err := monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChangeMonitor_StartStop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, repository.NewReservationRepository(db).Create(ctx, newReservation("2030-06-05", "18:00")))

	floor := &recordingFloor{}
	monitor := NewChangeMonitor(db, floor, nil)
	monitor.Interval = 10 * time.Millisecond
	monitor.Start()

	assert.Eventually(t, func() bool {
		floor.mu.Lock()
		defer floor.mu.Unlock()
		return len(floor.events) == 1
	}, time.Second, 10*time.Millisecond)

	monitor.Stop()
	monitor.Stop()
}

type fakeCanceller struct {
	date, clock string
	ids         []uint
}

func (f *fakeCanceller) CancelOverdue(_ context.Context, date, clock string) ([]uint, error) {
	f.date, f.clock = date, clock
	return f.ids, nil
}

func TestNoShowMonitor_Cutoff(t *testing.T) {
	rules, err := models.NewHouseRules("UTC", "10:30", "21:30", "Tuesday")
	require.NoError(t, err)
	rules.Now = func() time.Time { return time.Date(2030, 6, 3, 0, 10, 0, 0, time.UTC) }

	canceller := &fakeCanceller{ids: []uint{4}}
	monitor := NewNoShowMonitor(canceller, rules, 20*time.Minute)

	ids, err := monitor.CheckNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{4}, ids)
	assert.Equal(t, "2030-06-02", canceller.date, "cutoff crosses midnight")
	assert.Equal(t, "23:50", canceller.clock)
}

func TestNoShowMonitor_CancelsOverdueReservations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reservations := repository.NewReservationRepository(db)

	overdue := newReservation("2030-06-03", "18:00")
	require.NoError(t, reservations.Create(ctx, overdue))
	upcoming := newReservation("2030-06-03", "18:30")
	require.NoError(t, reservations.Create(ctx, upcoming))

	rules, err := models.NewHouseRules("UTC", "10:30", "21:30", "Tuesday")
	require.NoError(t, err)
	rules.Now = func() time.Time { return time.Date(2030, 6, 3, 18, 20, 0, 0, time.UTC) }

	monitor := NewNoShowMonitor(reservations, rules, 15*time.Minute)
	ids, err := monitor.CheckNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{overdue.ID}, ids)

	got, err := reservations.Read(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationBooked, got.Status)
}

func TestNoShowMonitor_DisabledWithoutGrace(t *testing.T) {
	monitor := NewNoShowMonitor(&fakeCanceller{}, models.HouseRules{}, 0)
	monitor.Start()
	monitor.Stop()
	monitor.Stop()
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ string, _ interface{}) error {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *blockingPublisher) Close() error { return nil }

func TestChangeMonitor_WritesProceedWhilePublishing(t *testing.T) {
	db := newTestDB(t)
	reservations := repository.NewReservationRepository(db)
	ctx := context.Background()
	require.NoError(t, reservations.Create(ctx, newReservation("2030-06-05", "18:00")))

	publisher := &blockingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	monitor := NewChangeMonitor(db, &recordingFloor{}, publisher)

	type outcome struct {
		n   int
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		n, err := monitor.ProcessPending(ctx)
		done <- outcome{n, err}
	}()

	select {
	case <-publisher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher was never called")
	}

	written := make(chan error, 1)
	go func() {
		written <- reservations.Create(ctx, newReservation("2030-06-06", "19:00"))
	}()
	select {
	case err := <-written:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("write blocked while an event was being published")
	}

	close(publisher.release)
	result := <-done
	require.NoError(t, result.err)
	assert.Equal(t, 1, result.n)

	// The reservation written mid-batch is picked up next time.
	n, err := monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
