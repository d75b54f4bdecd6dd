package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/periodic-tables/models"
)

func TestPingAndFallbacks(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var pong string
	decodeData(t, w, &pong)
	assert.Equal(t, "pong", pong)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Path not found: /nowhere", errorOf(t, w))

	w = do(r, http.MethodPatch, "/reservations", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "PATCH not allowed for /reservations", errorOf(t, w))
}

func TestCreateReservation(t *testing.T) {
	r, _ := setupRouter(t)

	res := createReservation(t, r, nil)
	assert.NotZero(t, res.ID)
	assert.Equal(t, "Rick", res.FirstName)
	assert.Equal(t, "2030-06-05", res.ReservationDate)
	assert.Equal(t, "13:30", res.ReservationTime)
	assert.Equal(t, 2, res.People)
	assert.Equal(t, models.ReservationBooked, res.Status)
}

func TestCreateReservation_Rejected(t *testing.T) {
	r, _ := setupRouter(t)

	cases := []struct {
		name  string
		field string
		value interface{}
		want  string
	}{
		{"closed day", "reservation_date", "2030-06-04", "The restaurant is closed on Tuesdays."},
		{"past", "reservation_date", "2030-05-29", "Reservations must be made for a future date and time."},
		{"bad date", "reservation_date", "not-a-date", "reservation_date must be a valid date."},
		{"bad time", "reservation_time", "25:99", "reservation_time must be a valid time."},
		{"people as text", "people", "2", "people must be a whole number of at least 1."},
		{"seated on create", "status", "seated", "A new reservation cannot be created with a status of seated."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := reservationPayload()
			payload[tc.field] = tc.value
			w := do(r, http.MethodPost, "/reservations", data(payload), "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorOf(t, w))
		})
	}

	w := do(r, http.MethodPost, "/reservations", map[string]interface{}{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Must include a first_name field.", errorOf(t, w))
}

func TestListReservations(t *testing.T) {
	r, db := setupRouter(t)

	late := createReservation(t, r, map[string]interface{}{"reservation_time": "19:00"})
	early := createReservation(t, r, map[string]interface{}{"reservation_time": "11:00"})
	createReservation(t, r, map[string]interface{}{"reservation_date": "2030-06-06"})

	w := do(r, http.MethodGet, "/reservations?date=2030-06-05", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list []models.Reservation
	decodeData(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)

	// Finished reservations drop off the day's list.
	table := findTable(t, db, "#1")
	w = do(r, http.MethodPut, "/tables/"+itoa(table.ID)+"/seat", data(map[string]interface{}{"reservation_id": early.ID}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodDelete, "/tables/"+itoa(table.ID)+"/seat", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/reservations?date=2030-06-05", nil, "")
	list = nil
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)

	w = do(r, http.MethodGet, "/reservations?date=June", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date must be a valid date.", errorOf(t, w))

	// No date means today, which has nothing booked.
	w = do(r, http.MethodGet, "/reservations", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	decodeData(t, w, &list)
	assert.Empty(t, list)
}

func TestSearchReservations(t *testing.T) {
	r, _ := setupRouter(t)

	first := createReservation(t, r, map[string]interface{}{"mobile_number": "(202) 555-0164"})
	createReservation(t, r, map[string]interface{}{"mobile_number": "808-555-0199"})

	w := do(r, http.MethodGet, "/reservations?mobile_number=2025550164", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Reservation
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	w = do(r, http.MethodGet, "/reservations?mobile_number=555", nil, "")
	list = nil
	decodeData(t, w, &list)
	assert.Len(t, list, 2)

	w = do(r, http.MethodGet, "/reservations?mobile_number=000000", nil, "")
	list = nil
	decodeData(t, w, &list)
	assert.Empty(t, list)
}

func TestReadReservation(t *testing.T) {
	r, _ := setupRouter(t)
	res := createReservation(t, r, nil)

	w := do(r, http.MethodGet, "/reservations/"+itoa(res.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Reservation
	decodeData(t, w, &got)
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, "Sanchez", got.LastName)

	w = do(r, http.MethodGet, "/reservations/999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation 999 cannot be found.", errorOf(t, w))
}

func TestUpdateReservation(t *testing.T) {
	r, _ := setupRouter(t)
	res := createReservation(t, r, nil)

	payload := reservationPayload()
	payload["first_name"] = "Morty"
	payload["people"] = 4
	payload["status"] = "seated"
	w := do(r, http.MethodPut, "/reservations/"+itoa(res.ID), data(payload), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Reservation
	decodeData(t, w, &got)
	assert.Equal(t, "Morty", got.FirstName)
	assert.Equal(t, 4, got.People)
	assert.Equal(t, models.ReservationBooked, got.Status)

	w = do(r, http.MethodPut, "/reservations/42", data(reservationPayload()), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	payload["reservation_time"] = "23:00"
	w = do(r, http.MethodPut, "/reservations/"+itoa(res.ID), data(payload), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateReservation_SeatedPartyIsLocked(t *testing.T) {
	r, db := setupRouter(t)
	res := createReservation(t, r, nil)
	table := findTable(t, db, "#1")

	w := do(r, http.MethodPut, "/tables/"+itoa(table.ID)+"/seat", data(map[string]interface{}{"reservation_id": res.ID}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payload := reservationPayload()
	payload["people"] = 40
	w = do(r, http.MethodPut, "/reservations/"+itoa(res.ID), data(payload), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A seated reservation cannot be edited.", errorOf(t, w))

	var stored models.Reservation
	require.NoError(t, db.First(&stored, res.ID).Error)
	assert.Equal(t, 2, stored.People)
}

func TestUpdateReservationStatus(t *testing.T) {
	r, _ := setupRouter(t)
	res := createReservation(t, r, nil)
	path := "/reservations/" + itoa(res.ID) + "/status"

	w := do(r, http.MethodPut, path, data(map[string]interface{}{"status": "unknown"}), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Status unknown is not valid.", errorOf(t, w))

	w = do(r, http.MethodPut, path, data(map[string]interface{}{}), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Must include a status field.", errorOf(t, w))

	for _, status := range []string{"seated", "finished"} {
		w = do(r, http.MethodPut, path, data(map[string]interface{}{"status": status}), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Status "+status+" is set by seating or clearing a table.", errorOf(t, w))
	}

	w = do(r, http.MethodPut, path, data(map[string]interface{}{"status": "booked"}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPut, path, data(map[string]interface{}{"status": "cancelled"}), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Reservation
	decodeData(t, w, &got)
	assert.Equal(t, models.ReservationCancelled, got.Status)

	w = do(r, http.MethodPut, path, data(map[string]interface{}{"status": "booked"}), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A cancelled reservation cannot be updated.", errorOf(t, w))
}

func TestUpdateReservationStatus_SeatedPartyHoldsOneTable(t *testing.T) {
	r, db := setupRouter(t)
	res := createReservation(t, r, nil)
	first := findTable(t, db, "#1")
	second := findTable(t, db, "#2")

	w := do(r, http.MethodPut, "/tables/"+itoa(first.ID)+"/seat", data(map[string]interface{}{"reservation_id": res.ID}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, status := range []string{"booked", "cancelled"} {
		w = do(r, http.MethodPut, "/reservations/"+itoa(res.ID)+"/status", data(map[string]interface{}{"status": status}), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "A seated reservation cannot be updated.", errorOf(t, w))
	}

	w = do(r, http.MethodPut, "/tables/"+itoa(second.ID)+"/seat", data(map[string]interface{}{"reservation_id": res.ID}), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Reservation is already seated", errorOf(t, w))

	var holding int64
	require.NoError(t, db.Model(&models.Table{}).Where("reservation_id = ?", res.ID).Count(&holding).Error)
	assert.Equal(t, int64(1), holding)

	var stored models.Reservation
	require.NoError(t, db.First(&stored, res.ID).Error)
	assert.Equal(t, models.ReservationSeated, stored.Status)
}
