package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

var reservationFields = []string{
	"first_name",
	"last_name",
	"mobile_number",
	"reservation_date",
	"reservation_time",
	"people",
}

// ReservationReader is the part of the reservation repository the guards need.
type ReservationReader interface {
	Read(ctx context.Context, id uint) (*models.Reservation, error)
}

// ReservationValidator builds the middleware chains for reservation routes.
type ReservationValidator struct {
	Reservations ReservationReader
	Rules        models.HouseRules
}

func NewReservationValidator(reservations ReservationReader, rules models.HouseRules) *ReservationValidator {
	return &ReservationValidator{Reservations: reservations, Rules: rules}
}

// CreateChain guards POST /reservations.
func (v *ReservationValidator) CreateChain() []gin.HandlerFunc {
	return append([]gin.HandlerFunc{BindData()}, append(v.fieldChecks(), v.StatusIsBooked())...)
}

// EditChain guards PUT /reservations/:reservation_id.
func (v *ReservationValidator) EditChain() []gin.HandlerFunc {
	return append([]gin.HandlerFunc{v.ReservationExists(), v.IsBooked(), BindData()}, v.fieldChecks()...)
}

// StatusChain guards PUT /reservations/:reservation_id/status.
func (v *ReservationValidator) StatusChain() []gin.HandlerFunc {
	return []gin.HandlerFunc{v.ReservationExists(), BindData(), v.StatusIsKnown(), v.StatusChangeAllowed()}
}

func (v *ReservationValidator) fieldChecks() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		v.HasRequiredFields(),
		v.HasValidDate(),
		v.HasValidTime(),
		v.HasValidPeople(),
		v.NotOnClosedDay(),
		v.InTheFuture(),
		v.DuringServiceHours(),
	}
}

// ReservationExists loads :reservation_id into the context.
func (v *ReservationValidator) ReservationExists() gin.HandlerFunc {
	return func(c *gin.Context) {
		notFound := utils.NewHTTPError(http.StatusNotFound, "Reservation %s cannot be found.", c.Param("reservation_id"))
		id, ok := paramID(c, "reservation_id")
		if !ok {
			utils.AbortWithError(c, http.StatusNotFound, notFound)
			return
		}

		res, err := v.Reservations.Read(c.Request.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			utils.AbortWithError(c, http.StatusNotFound, notFound)
			return
		}
		if err != nil {
			utils.AbortWithError(c, http.StatusInternalServerError, err)
			return
		}

		c.Set(CtxReservation, res)
		c.Next()
	}
}

func (v *ReservationValidator) HasRequiredFields() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)
		for _, field := range reservationFields {
			if !payload.Has(field) {
				utils.AbortWithError(c, http.StatusBadRequest,
					utils.NewHTTPError(http.StatusBadRequest, "Must include a %s field.", field))
				return
			}
		}
		c.Next()
	}
}

func (v *ReservationValidator) HasValidDate() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := v.Rules.ParseDate(PayloadFrom(c).String("reservation_date"))
		if err != nil {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("reservation_date must be a valid date."))
			return
		}
		c.Set(CtxDate, date)
		c.Next()
	}
}

func (v *ReservationValidator) HasValidTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		clock, text, err := models.ParseClock(PayloadFrom(c).String("reservation_time"))
		if err != nil {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("reservation_time must be a valid time."))
			return
		}
		c.Set(CtxClock, clock)
		c.Set(CtxClockText, text)
		c.Next()
	}
}

func (v *ReservationValidator) HasValidPeople() gin.HandlerFunc {
	return func(c *gin.Context) {
		people, ok := PayloadFrom(c).Int("people")
		if !ok || people < 1 {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("people must be a whole number of at least 1."))
			return
		}
		c.Set(CtxPeople, people)
		c.Next()
	}
}

func (v *ReservationValidator) NotOnClosedDay() gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.MustGet(CtxDate).(time.Time)
		if v.Rules.IsClosed(date) {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "The restaurant is closed on %ss.", date.Weekday()))
			return
		}
		c.Next()
	}
}

func (v *ReservationValidator) InTheFuture() gin.HandlerFunc {
	return func(c *gin.Context) {
		slot := v.Rules.Slot(c.MustGet(CtxDate).(time.Time), c.MustGet(CtxClock).(time.Duration))
		if !v.Rules.InFuture(slot) {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Reservations must be made for a future date and time."))
			return
		}
		c.Next()
	}
}

func (v *ReservationValidator) DuringServiceHours() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Rules.InService(c.MustGet(CtxClock).(time.Duration)) {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Reservations must be between %s.", v.Rules.ServiceHours()))
			return
		}
		c.Next()
	}
}

// StatusIsBooked rejects new reservations that arrive with any status other
// than booked.
func (v *ReservationValidator) StatusIsBooked() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)
		if payload.Has("status") {
			if status := payload.String("status"); status != models.ReservationBooked {
				utils.AbortWithError(c, http.StatusBadRequest,
					utils.NewHTTPError(http.StatusBadRequest, "A new reservation cannot be created with a status of %s.", status))
				return
			}
		}
		c.Next()
	}
}

func (v *ReservationValidator) StatusIsKnown() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)
		if !payload.Has("status") {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Must include a status field."))
			return
		}
		status := payload.String("status")
		if !models.IsValidReservationStatus(status) {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Status %s is not valid.", status))
			return
		}
		c.Next()
	}
}

// IsBooked rejects edits once the party has been seated, finished or
// cancelled.
func (v *ReservationValidator) IsBooked() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := c.MustGet(CtxReservation).(*models.Reservation)
		if res.Status != models.ReservationBooked {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "A %s reservation cannot be edited.", res.Status))
			return
		}
		c.Next()
	}
}

// StatusChangeAllowed only lets a booked reservation stay booked or be
// cancelled. Seated and finished are set by seating and clearing a table.
func (v *ReservationValidator) StatusChangeAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := c.MustGet(CtxReservation).(*models.Reservation)
		if res.Status != models.ReservationBooked {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "A %s reservation cannot be updated.", res.Status))
			return
		}

		switch status := PayloadFrom(c).String("status"); status {
		case models.ReservationBooked, models.ReservationCancelled:
		default:
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Status %s is set by seating or clearing a table.", status))
			return
		}
		c.Next()
	}
}

// ReservationInput assembles the reservation described by a request that
// passed the field checks.
func ReservationInput(c *gin.Context) models.Reservation {
	payload := PayloadFrom(c)
	return models.Reservation{
		FirstName:       payload.String("first_name"),
		LastName:        payload.String("last_name"),
		MobileNumber:    payload.String("mobile_number"),
		ReservationDate: c.MustGet(CtxDate).(time.Time).Format(models.DateLayout),
		ReservationTime: c.GetString(CtxClockText),
		People:          c.GetInt(CtxPeople),
		Status:          models.ReservationBooked,
	}
}
