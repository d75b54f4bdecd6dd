package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/middlewares"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

type ReservationController struct {
	Reservations *repository.ReservationRepository
	Rules        models.HouseRules
}

func NewReservationController(reservations *repository.ReservationRepository, rules models.HouseRules) *ReservationController {
	return &ReservationController{Reservations: reservations, Rules: rules}
}

// List -> GET /reservations?date= or ?mobile_number=
func (rc *ReservationController) List(c *gin.Context) {
	if mobile, ok := c.GetQuery("mobile_number"); ok {
		reservations, err := rc.Reservations.Search(c.Request.Context(), mobile)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, reservations)
		return
	}

	date := c.Query("date")
	if date == "" {
		date = rc.Rules.Today()
	} else if _, err := rc.Rules.ParseDate(date); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("date must be a valid date."))
		return
	}

	reservations, err := rc.Reservations.ListByDate(c.Request.Context(), date)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, reservations)
}

func (rc *ReservationController) Create(c *gin.Context) {
	res := middlewares.ReservationInput(c)
	if err := rc.Reservations.Create(c.Request.Context(), &res); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithField("reservation_id", res.ID).Infof("reservation booked for %s on %s at %s",
		res.LastName, res.ReservationDate, res.ReservationTime)
	utils.RespondJSON(c, http.StatusCreated, res)
}

// Read returns the reservation ReservationExists loaded.
func (rc *ReservationController) Read(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, c.MustGet(middlewares.CtxReservation))
}

// Update replaces every editable field. Status only moves through UpdateStatus.
func (rc *ReservationController) Update(c *gin.Context) {
	existing := c.MustGet(middlewares.CtxReservation).(*models.Reservation)

	res := middlewares.ReservationInput(c)
	res.ID = existing.ID
	res.Status = existing.Status

	updated, err := rc.Reservations.Update(c.Request.Context(), &res)
	if err != nil {
		respondRepositoryError(c, err, map[error]string{
			repository.ErrNotFound:             "Reservation " + c.Param("reservation_id") + " cannot be found.",
			repository.ErrReservationNotBooked: rc.movedOn(c, existing.ID, "edited"),
		})
		return
	}
	utils.RespondJSON(c, http.StatusOK, updated)
}

func (rc *ReservationController) UpdateStatus(c *gin.Context) {
	existing := c.MustGet(middlewares.CtxReservation).(*models.Reservation)
	status := middlewares.PayloadFrom(c).String("status")

	updated, err := rc.Reservations.UpdateStatus(c.Request.Context(), existing.ID, status)
	if err != nil {
		respondRepositoryError(c, err, map[error]string{
			repository.ErrNotFound:             "Reservation " + c.Param("reservation_id") + " cannot be found.",
			repository.ErrReservationNotBooked: rc.movedOn(c, existing.ID, "updated"),
		})
		return
	}

	utils.InfoLogger.WithField("reservation_id", updated.ID).Infof("reservation status %s -> %s", existing.Status, updated.Status)
	utils.RespondJSON(c, http.StatusOK, updated)
}

// movedOn describes a reservation that stopped being booked while the
// request was in flight.
func (rc *ReservationController) movedOn(c *gin.Context, id uint, verb string) string {
	res, err := rc.Reservations.Read(c.Request.Context(), id)
	if err != nil {
		return "Reservation is no longer booked."
	}
	return fmt.Sprintf("A %s reservation cannot be %s.", res.Status, verb)
}
