package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/periodic-tables/middlewares"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

type TableController struct {
	Tables *repository.TableRepository
}

func NewTableController(tables *repository.TableRepository) *TableController {
	return &TableController{Tables: tables}
}

func (tc *TableController) List(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, tables)
}

// Create -> POST /tables. The validated payload may carry a reservation to
// seat straight away.
func (tc *TableController) Create(c *gin.Context) {
	payload := middlewares.PayloadFrom(c)
	table := models.Table{
		Name:     payload.String("table_name"),
		Capacity: c.GetInt(middlewares.CtxCapacity),
	}
	if v, ok := c.Get(middlewares.CtxReservationID); ok {
		reservationID := v.(uint)
		table.ReservationID = &reservationID
	}

	if err := tc.Tables.Create(c.Request.Context(), &table); err != nil {
		var reservationID uint
		if table.ReservationID != nil {
			reservationID = *table.ReservationID
		}
		tc.respondSeatError(c, err, nil, reservationID)
		return
	}

	utils.InfoLogger.WithField("table_id", table.ID).Infof("new table created: %s (capacity=%d)", table.Name, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, table)
}

// Seat -> PUT /tables/:table_id/seat
func (tc *TableController) Seat(c *gin.Context) {
	table := c.MustGet(middlewares.CtxTable).(*models.Table)
	reservationID := c.MustGet(middlewares.CtxReservationID).(uint)

	seated, err := tc.Tables.Seat(c.Request.Context(), table.ID, reservationID)
	if err != nil {
		tc.respondSeatError(c, err, table, reservationID)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id":       seated.ID,
		"reservation_id": reservationID,
	}).Info("reservation seated")
	utils.RespondJSON(c, http.StatusOK, seated)
}

// Finish -> DELETE /tables/:table_id/seat
func (tc *TableController) Finish(c *gin.Context) {
	table := c.MustGet(middlewares.CtxTable).(*models.Table)

	freed, err := tc.Tables.Free(c.Request.Context(), table.ID)
	if err != nil {
		respondRepositoryError(c, err, map[error]string{
			repository.ErrNotFound:         fmt.Sprintf("Table %d cannot be found.", table.ID),
			repository.ErrTableNotOccupied: "Table is not occupied",
		})
		return
	}

	utils.InfoLogger.WithField("table_id", freed.ID).Info("table freed")
	utils.RespondJSON(c, http.StatusOK, freed)
}

// Delete -> DELETE /admin/tables/:table_id
func (tc *TableController) Delete(c *gin.Context) {
	table := c.MustGet(middlewares.CtxTable).(*models.Table)

	if err := tc.Tables.Delete(c.Request.Context(), table.ID); err != nil {
		respondRepositoryError(c, err, map[error]string{
			repository.ErrNotFound: fmt.Sprintf("Table %d cannot be found.", table.ID),
			repository.ErrConflict: fmt.Sprintf("Table %s is occupied and cannot be deleted.", table.Name),
		})
		return
	}

	utils.InfoLogger.WithField("table_id", table.ID).Infof("table deleted: %s", table.Name)
	utils.RespondJSON(c, http.StatusOK, gin.H{"table_id": table.ID})
}

// respondSeatError names the record a failed seating ran into. The
// reservation is read again since another request may have moved it on.
func (tc *TableController) respondSeatError(c *gin.Context, err error, table *models.Table, reservationID uint) {
	msgs := map[error]string{
		repository.ErrTableOccupied: "Reservation cannot be seated. Table is occupied.",
	}
	if table != nil {
		msgs[repository.ErrNotFound] = fmt.Sprintf("Table %d cannot be found.", table.ID)
	}

	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrReservationNotBooked) {
		guest, readErr := tc.Tables.ReadReservation(c.Request.Context(), reservationID)
		switch {
		case errors.Is(readErr, repository.ErrNotFound):
			msgs[repository.ErrNotFound] = fmt.Sprintf("Reservation %d cannot be found.", reservationID)
		case readErr == nil:
			msgs[repository.ErrReservationNotBooked] = middlewares.SeatRefusal(guest.Status)
		}
	}
	respondRepositoryError(c, err, msgs)
}
