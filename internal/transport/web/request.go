package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/avstrong/hotelbooking/internal/booking"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return booking.NewFieldError("body", fmt.Sprintf("malformed json: %v", err))
	}

	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]

	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, booking.NewFieldError(name, "must be a positive integer")
	}

	return uint(id), nil
}

func queryUint(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	v, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return nil, booking.NewFieldError(name, "must be a positive integer")
	}

	id := uint(v)

	return &id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, booking.NewFieldError(name, "must be an integer")
	}

	return v, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, booking.NewFieldError(field, "is required")
	}

	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, booking.NewFieldError(field, "must be a date in YYYY-MM-DD format")
	}

	return t, nil
}

func queryInterval(r *http.Request) (time.Time, time.Time, error) {
	checkIn, err := parseDate("check_in", r.URL.Query().Get("check_in"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	checkOut, err := parseDate("check_out", r.URL.Query().Get("check_out"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return checkIn, checkOut, nil
}
