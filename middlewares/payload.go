package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/utils"
)

// Context keys shared by the validation chains and the controllers.
const (
	CtxPayload       = "payload"
	CtxReservation   = "reservation"
	CtxTable         = "table"
	CtxSeatGuest     = "seat_guest"
	CtxDate          = "reservation_date"
	CtxClock         = "reservation_clock"
	CtxClockText     = "reservation_clock_text"
	CtxPeople        = "people"
	CtxCapacity      = "capacity"
	CtxReservationID = "reservation_id"
)

// Payload is the object found under "data" in a request body.
type Payload map[string]interface{}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// BindData decodes the {"data": {...}} envelope into a Payload. A missing
// body or missing data key yields an empty Payload so the field checks can
// name the first missing field.
func BindData() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := Payload{}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Could not read request body."))
			return
		}

		if len(bytes.TrimSpace(body)) > 0 {
			var env envelope
			if err := json.Unmarshal(body, &env); err != nil {
				utils.AbortWithError(c, http.StatusBadRequest, errors.New("Request body must be valid JSON."))
				return
			}
			if len(env.Data) > 0 && string(env.Data) != "null" {
				dec := json.NewDecoder(bytes.NewReader(env.Data))
				dec.UseNumber()
				if err := dec.Decode(&payload); err != nil {
					utils.AbortWithError(c, http.StatusBadRequest, errors.New("Request data must be an object."))
					return
				}
			}
		}

		c.Set(CtxPayload, payload)
		c.Next()
	}
}

// PayloadFrom returns the Payload bound by BindData.
func PayloadFrom(c *gin.Context) Payload {
	if v, ok := c.Get(CtxPayload); ok {
		if p, ok := v.(Payload); ok {
			return p
		}
	}
	return Payload{}
}

// Has reports whether key is present with a non-blank value.
func (p Payload) Has(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns key as trimmed text. Numbers are rendered as written.
func (p Payload) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns key as an integer only when it was sent as a JSON number
// without a fractional part.
func (p Payload) Int(key string) (int, bool) {
	n, ok := p[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(i), true
}

// ID accepts a positive integer sent either as a JSON number or as digits.
func (p Payload) ID(key string) (uint, bool) {
	var raw string
	switch v := p[key].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
