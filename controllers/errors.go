package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

// respondRepositoryError maps repository sentinels to statuses. Messages
// for the sentinels come from the caller since they name the record.
func respondRepositoryError(c *gin.Context, err error, messages map[error]string) {
	for sentinel, status := range map[error]int{
		repository.ErrNotFound:             http.StatusNotFound,
		repository.ErrTableOccupied:        http.StatusBadRequest,
		repository.ErrTableNotOccupied:     http.StatusBadRequest,
		repository.ErrReservationNotBooked: http.StatusBadRequest,
		repository.ErrConflict:             http.StatusConflict,
	} {
		if errors.Is(err, sentinel) {
			if msg, ok := messages[sentinel]; ok {
				utils.RespondError(c, status, errors.New(msg))
				return
			}
			utils.RespondError(c, status, err)
			return
		}
	}
	utils.RespondError(c, http.StatusInternalServerError, err)
}
