// Package domain defines the core vehicle types, validation, and error
// taxonomy shared by the defectscope engine packages. It acts as the
// validation gate at every entry point that accepts user-supplied input.
package domain

import (
	"fmt"
	"strings"
)

// Vehicle identifies a lookup target. It is derived either from direct user
// input or from a VIN decode, and is immutable once an analysis run starts.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	VIN   string `json:"vin,omitempty"`
}

// String renders the vehicle as "2020 TOYOTA CAMRY" for logs and messages.
func (v Vehicle) String() string {
	return fmt.Sprintf("%d %s %s", v.Year, strings.ToUpper(v.Make), strings.ToUpper(v.Model))
}

// Validate checks that make, model, and year are all present.
func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Make) == "" {
		return NewInputError("make", v.Make, ErrMissingField)
	}
	if strings.TrimSpace(v.Model) == "" {
		return NewInputError("model", v.Model, ErrMissingField)
	}
	if v.Year < MinModelYear || v.Year > MaxModelYear {
		return NewInputError("year", fmt.Sprintf("%d", v.Year), ErrYearOutOfRange)
	}
	return nil
}

// MinModelYear is the earliest model year we accept.
const MinModelYear = 1949

// MaxModelYear is the latest model year we accept (current + 2 for
// next-year models announced early).
const MaxModelYear = 2028

// VINLength is the fixed length of a Vehicle Identification Number.
const VINLength = 17

// NormalizeVIN trims and uppercases a VIN and validates its length. The
// length check happens before any network call is attempted.
func NormalizeVIN(vin string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(vin))
	if v == "" {
		return "", NewInputError("vin", vin, ErrMissingField)
	}
	if len(v) != VINLength {
		return "", NewInputError("vin", vin, ErrInvalidVIN)
	}
	return v, nil
}
