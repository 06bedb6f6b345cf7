package booking

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrIdempotencyKeyInUse = errors.New("a request with this idempotency key is still in progress")
	ErrInvalidInterval     = errors.New("check-in must be before check-out")
	ErrNotFound            = errors.New("record not found")
	ErrInvalidState        = errors.New("invalid booking state for this operation")
	ErrForbidden           = errors.New("actor is not allowed to access this booking")
	ErrConstraint          = errors.New("overlapping active booking violates room constraint")
)

type AvailabilityError struct {
	errors []string
}

func NewAvailabilityError() *AvailabilityError {
	//nolint:exhaustruct
	return &AvailabilityError{}
}

func IsAvailabilityError(err error) *AvailabilityError {
	if err == nil {
		return nil
	}

	var availabilityError *AvailabilityError

	if errors.As(err, &availabilityError) {
		return availabilityError
	}

	return nil
}

func (e *AvailabilityError) AddUnavailableRoom(roomID uint, checkIn, checkOut time.Time) {
	e.errors = append(e.errors, fmt.Sprintf(
		"room '%d' is unavailable from %s to %s",
		roomID,
		checkIn.Format(time.DateOnly),
		checkOut.Format(time.DateOnly),
	))
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("%+v", e.errors)
}

func (e *AvailabilityError) Fields() []string {
	return e.errors
}

func (e *AvailabilityError) UnavailableRoomsCount() int {
	return len(e.errors)
}

type InputError struct {
	fields map[string][]string
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) addError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Error() string {
	keys := make([]string, 0, len(ie.fields))
	for k := range ie.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return fmt.Sprintf("invalid input in fields %v", keys)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}

// NewFieldError builds an InputError with a single field message. Other
// packages use it to report validation failures in the same shape.
func NewFieldError(field, msg string) *InputError {
	ie := newInputError()
	ie.addError(field, msg)

	return ie
}

type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func IsExternalServiceError(err error) *ExternalServiceError {
	if err == nil {
		return nil
	}

	var extErr *ExternalServiceError

	if errors.As(err, &extErr) {
		return extErr
	}

	return nil
}
