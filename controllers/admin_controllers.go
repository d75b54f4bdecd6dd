package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
)

type AdminController struct {
	Reservations   *repository.ReservationRepository
	Tables         *repository.TableRepository
	Rules          models.HouseRules
	RestaurantName string
}

func NewAdminController(reservations *repository.ReservationRepository, tables *repository.TableRepository, rules models.HouseRules, restaurantName string) *AdminController {
	return &AdminController{
		Reservations:   reservations,
		Tables:         tables,
		Rules:          rules,
		RestaurantName: restaurantName,
	}
}

type tableStats struct {
	Free     int64 `json:"free"`
	Occupied int64 `json:"occupied"`
}

type dashboardStats struct {
	Date         string           `json:"date"`
	Reservations map[string]int64 `json:"reservations"`
	Tables       tableStats       `json:"tables"`
}

// reportDate reads ?date=, defaulting to today in the restaurant's zone.
func (ac *AdminController) reportDate(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return ac.Rules.Today(), true
	}
	if _, err := ac.Rules.ParseDate(date); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("date must be a valid date."))
		return "", false
	}
	return date, true
}

// GetDashboardStats -> reservation counts by status plus table occupancy.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	date, ok := ac.reportDate(c)
	if !ok {
		return
	}

	counts, err := ac.Reservations.CountByStatus(c.Request.Context(), date)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	free, occupied, err := ac.Tables.Occupancy(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, dashboardStats{
		Date:         date,
		Reservations: counts,
		Tables:       tableStats{Free: free, Occupied: occupied},
	})
}

// ReservationsPDF renders the day's open reservations as a printable sheet
// for the host stand.
func (ac *AdminController) ReservationsPDF(c *gin.Context) {
	date, ok := ac.reportDate(c)
	if !ok {
		return
	}

	reservations, err := ac.Reservations.ListByDate(c.Request.Context(), date)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	body, err := ac.renderSheet(date, reservations)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("render reservation sheet: %w", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"reservations-%s.pdf\"", date))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (ac *AdminController) renderSheet(date string, reservations []models.Reservation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("%s reservations %s", ac.RestaurantName, date), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(ac.RestaurantName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Reservations for %s (%d)", date, len(reservations)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{18, 62, 45, 20, 30}
	headers := []string{"Time", "Name", "Mobile", "People", "Status"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range reservations {
		row := []string{
			r.ReservationTime,
			tr(r.LastName + ", " + r.FirstName),
			tr(r.MobileNumber),
			strconv.Itoa(r.People),
			r.Status,
		}
		for i, v := range row {
			pdf.CellFormat(widths[i], 7, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
