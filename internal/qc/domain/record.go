// Package domain defines device quality-check records.
package domain

import (
	"errors"
	"regexp"
	"time"
)

// Result is the outcome of a single check.
type Result string

const (
	ResultPass Result = "PASS"
	ResultFail Result = "FAIL"
)

// Grade is the overall cosmetic/functional grade of a tested device.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Record is one QC pass over a device (qc_records table).
type Record struct {
	ID        string
	IMEI      string
	Brand     string
	Model     string
	TestedBy  string
	Results   map[string]Result
	Grade     Grade
	Notes     string
	CreatedAt time.Time
}

var (
	ErrInvalidIMEI   = errors.New("imei must be 15 digits")
	ErrInvalidGrade  = errors.New("grade must be one of A, B, C, D")
	ErrInvalidResult = errors.New("check results must be PASS or FAIL")
	ErrMissingDevice = errors.New("brand and model are required")
)

var imeiPattern = regexp.MustCompile(`^[0-9]{15}$`)

// ValidIMEI reports whether s is a 15-digit IMEI.
func ValidIMEI(s string) bool {
	return imeiPattern.MatchString(s)
}

// Validate checks the record's fields before it is stored.
func (r *Record) Validate() error {
	if !ValidIMEI(r.IMEI) {
		return ErrInvalidIMEI
	}
	if r.Brand == "" || r.Model == "" {
		return ErrMissingDevice
	}
	switch r.Grade {
	case GradeA, GradeB, GradeC, GradeD:
	default:
		return ErrInvalidGrade
	}
	for _, res := range r.Results {
		if res != ResultPass && res != ResultFail {
			return ErrInvalidResult
		}
	}
	return nil
}

// Passed reports whether every recorded check passed.
func (r *Record) Passed() bool {
	for _, res := range r.Results {
		if res != ResultPass {
			return false
		}
	}
	return true
}
