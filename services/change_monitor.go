package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/events"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
	"gorm.io/gorm"
)

const changeBatchSize = 100

// FloorBroadcaster pushes changes to connected host screens. *floor.Hub
// implements it.
type FloorBroadcaster interface {
	BroadcastTableUpdate(table models.Table)
	BroadcastTableCreate(table models.Table)
	BroadcastTableDelete(tableID uint)
	BroadcastReservationCreate(res models.Reservation)
	BroadcastReservationUpdate(res models.Reservation)
}

// ChangeMonitor drains the db_changes outbox. Every change is broadcast to
// the floor, published as an event and then marked processed.
type ChangeMonitor struct {
	DB        *gorm.DB
	Floor     FloorBroadcaster
	Publisher events.Publisher
	Cache     cache.ResponseCache
	Interval  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

func NewChangeMonitor(db *gorm.DB, floor FloorBroadcaster, publisher events.Publisher) *ChangeMonitor {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ChangeMonitor{
		DB:        db,
		Floor:     floor,
		Publisher: publisher,
		Interval:  1 * time.Second,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (cm *ChangeMonitor) Start() {
	cm.started.Store(true)
	go func() {
		defer close(cm.done)
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := cm.ProcessPending(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("change monitor: %v", err)
				}
			case <-cm.stopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for the current batch to finish.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
		if cm.started.Load() {
			<-cm.done
		}
	})
}

// ProcessPending handles one batch of unprocessed changes in insert order and
// returns how many were handled. No transaction is held while the batch is
// broadcast and published, so slow clients or a slow broker never block
// writers.
func (cm *ChangeMonitor) ProcessPending(ctx context.Context) (int, error) {
	db := cm.DB.WithContext(ctx)

	var changes []models.DBChange
	if err := db.Where("processed = ?", false).
		Order("id ASC").
		Limit(changeBatchSize).
		Find(&changes).Error; err != nil {
		return 0, fmt.Errorf("fetch changes: %w", err)
	}
	if len(changes) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		cm.dispatch(ctx, db, change)
		ids = append(ids, change.ID)
	}

	if err := db.Model(&models.DBChange{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		return 0, fmt.Errorf("mark changes processed: %w", err)
	}

	utils.InfoLogger.WithField("count", len(ids)).Debug("processed db changes")
	if cm.Cache != nil {
		if err := cm.Cache.Flush(ctx); err != nil {
			utils.ErrorLogger.Warnf("change monitor: cache flush: %v", err)
		}
	}
	return len(ids), nil
}

func (cm *ChangeMonitor) dispatch(ctx context.Context, db *gorm.DB, change models.DBChange) {
	log := utils.InfoLogger.WithFields(logrus.Fields{
		"table":     change.TableName,
		"action":    change.ActionType,
		"record_id": change.RecordID,
	})

	switch change.TableName {
	case "tables":
		cm.processTableChange(ctx, db, change, log)
	case "reservations":
		cm.processReservationChange(ctx, db, change, log)
	default:
		log.Warn("ignoring change for unknown table")
	}
}

func (cm *ChangeMonitor) processTableChange(ctx context.Context, db *gorm.DB, change models.DBChange, log *logrus.Entry) {
	if change.ActionType == models.ActionDelete {
		if cm.Floor != nil {
			cm.Floor.BroadcastTableDelete(uint(change.RecordID))
		}
		cm.publish(ctx, events.KeyTableDeleted, map[string]int64{"table_id": change.RecordID})
		return
	}

	var table models.Table
	if err := db.First(&table, "table_id = ?", change.RecordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug("table no longer exists")
			return
		}
		log.Errorf("load table: %v", err)
		return
	}

	switch change.ActionType {
	case models.ActionInsert:
		if cm.Floor != nil {
			cm.Floor.BroadcastTableCreate(table)
		}
		cm.publish(ctx, events.KeyTableCreated, table)
	case models.ActionUpdate:
		if cm.Floor != nil {
			cm.Floor.BroadcastTableUpdate(table)
		}
		cm.publish(ctx, events.KeyTableUpdated, table)
	}
}

func (cm *ChangeMonitor) processReservationChange(ctx context.Context, db *gorm.DB, change models.DBChange, log *logrus.Entry) {
	var res models.Reservation
	if err := db.First(&res, "reservation_id = ?", change.RecordID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("load reservation: %v", err)
		}
		return
	}

	switch change.ActionType {
	case models.ActionInsert:
		if cm.Floor != nil {
			cm.Floor.BroadcastReservationCreate(res)
		}
		cm.publish(ctx, events.KeyReservationCreated, res)
	case models.ActionUpdate:
		if cm.Floor != nil {
			cm.Floor.BroadcastReservationUpdate(res)
		}
		cm.publish(ctx, events.KeyReservationUpdated, res)
	}
}

// publish failures are logged and do not hold back the outbox.
func (cm *ChangeMonitor) publish(ctx context.Context, key string, data interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cm.Publisher.Publish(pubCtx, key, data); err != nil {
		utils.ErrorLogger.WithField("key", key).Errorf("publish event: %v", err)
	}
}
