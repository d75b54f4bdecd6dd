package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

var tableFields = []string{"table_name", "capacity"}

// TableReader is the part of the table repository the guards need.
type TableReader interface {
	Read(ctx context.Context, id uint) (*models.Table, error)
	ReadReservation(ctx context.Context, reservationID uint) (*models.Reservation, error)
}

// TableValidator builds the middleware chains for table routes.
type TableValidator struct {
	Tables TableReader
}

func NewTableValidator(tables TableReader) *TableValidator {
	return &TableValidator{Tables: tables}
}

// CreateChain guards POST /tables. A reservation_id in the payload is
// checked with the same rules as seating.
func (v *TableValidator) CreateChain() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		BindData(),
		v.HasRequiredFields(),
		v.HasValidFieldInputs(),
		v.OptionalReservation(),
	}
}

// SeatChain guards PUT /tables/:table_id/seat.
func (v *TableValidator) SeatChain() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		v.TableExists(),
		BindData(),
		v.ReservationExists(),
		v.TableHasCapacity(),
		v.TableIsAvailable(),
		v.ReservationIsNotSeated(),
	}
}

// FinishChain guards DELETE /tables/:table_id/seat.
func (v *TableValidator) FinishChain() []gin.HandlerFunc {
	return []gin.HandlerFunc{v.TableExists(), v.TableIsOccupied()}
}

func (v *TableValidator) HasRequiredFields() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)
		for _, field := range tableFields {
			if _, ok := payload[field]; !ok {
				utils.AbortWithError(c, http.StatusBadRequest,
					utils.NewHTTPError(http.StatusBadRequest, "Must include a %s field.", field))
				return
			}
		}
		c.Next()
	}
}

func (v *TableValidator) HasValidFieldInputs() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)

		capacity, ok := payload.Int("capacity")
		if !ok || capacity <= 0 {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Table capacity must be at least one. You entered: %s.", payload.String("capacity")))
			return
		}

		name := strings.ReplaceAll(payload.String("table_name"), " ", "")
		if len([]rune(name)) < 2 {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Please enter a table_name that is at least 2 characters."))
			return
		}

		c.Set(CtxCapacity, capacity)
		c.Next()
	}
}

// OptionalReservation runs the seating checks when a new table arrives
// already holding a reservation.
func (v *TableValidator) OptionalReservation() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := PayloadFrom(c)
		if _, present := payload["reservation_id"]; !present || payload["reservation_id"] == nil {
			c.Next()
			return
		}

		guest, ok := v.loadGuest(c, payload)
		if !ok {
			return
		}
		capacity := c.GetInt(CtxCapacity)
		if guest.People > capacity {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Table %s does not have a capacity of %d people.", payload.String("table_name"), guest.People))
			return
		}
		if !checkSeatable(c, guest) {
			return
		}
		c.Next()
	}
}

// TableExists loads :table_id into the context.
func (v *TableValidator) TableExists() gin.HandlerFunc {
	return func(c *gin.Context) {
		notFound := utils.NewHTTPError(http.StatusNotFound, "Table %s cannot be found.", c.Param("table_id"))
		id, ok := paramID(c, "table_id")
		if !ok {
			utils.AbortWithError(c, http.StatusNotFound, notFound)
			return
		}

		table, err := v.Tables.Read(c.Request.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			utils.AbortWithError(c, http.StatusNotFound, notFound)
			return
		}
		if err != nil {
			utils.AbortWithError(c, http.StatusInternalServerError, err)
			return
		}

		c.Set(CtxTable, table)
		c.Next()
	}
}

// ReservationExists loads the reservation named by data.reservation_id.
func (v *TableValidator) ReservationExists() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := v.loadGuest(c, PayloadFrom(c)); !ok {
			return
		}
		c.Next()
	}
}

func (v *TableValidator) loadGuest(c *gin.Context, payload Payload) (*models.Reservation, bool) {
	reservationID, ok := payload.ID("reservation_id")
	if !ok {
		utils.AbortWithError(c, http.StatusBadRequest, errors.New("Missing valid reservation_id."))
		return nil, false
	}

	guest, err := v.Tables.ReadReservation(c.Request.Context(), reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		utils.AbortWithError(c, http.StatusNotFound,
			utils.NewHTTPError(http.StatusNotFound, "Reservation %d cannot be found.", reservationID))
		return nil, false
	}
	if err != nil {
		utils.AbortWithError(c, http.StatusInternalServerError, err)
		return nil, false
	}

	c.Set(CtxReservationID, reservationID)
	c.Set(CtxSeatGuest, guest)
	return guest, true
}

func (v *TableValidator) TableHasCapacity() gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.MustGet(CtxTable).(*models.Table)
		guest := c.MustGet(CtxSeatGuest).(*models.Reservation)
		if guest.People > table.Capacity {
			utils.AbortWithError(c, http.StatusBadRequest,
				utils.NewHTTPError(http.StatusBadRequest, "Table %s does not have a capacity of %d people.", table.Name, guest.People))
			return
		}
		c.Next()
	}
}

func (v *TableValidator) TableIsAvailable() gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.MustGet(CtxTable).(*models.Table)
		if table.Occupied() {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Reservation cannot be seated. Table is occupied."))
			return
		}
		c.Next()
	}
}

func (v *TableValidator) ReservationIsNotSeated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkSeatable(c, c.MustGet(CtxSeatGuest).(*models.Reservation)) {
			return
		}
		c.Next()
	}
}

func checkSeatable(c *gin.Context, guest *models.Reservation) bool {
	if guest.Status == models.ReservationBooked {
		return true
	}
	utils.AbortWithError(c, http.StatusBadRequest, errors.New(SeatRefusal(guest.Status)))
	return false
}

// SeatRefusal explains why a reservation holding status cannot be seated.
func SeatRefusal(status string) string {
	if status == models.ReservationSeated {
		return "Reservation is already seated"
	}
	return fmt.Sprintf("Reservation is %s and cannot be seated", status)
}

func (v *TableValidator) TableIsOccupied() gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.MustGet(CtxTable).(*models.Table)
		if !table.Occupied() {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Table is not occupied"))
			return
		}
		c.Next()
	}
}
