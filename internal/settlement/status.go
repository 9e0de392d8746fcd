package settlement

import (
	"errors"
	"strings"
)

// Status is the settlement state of an invoice.
type Status string

const (
	StatusIssued  Status = "ISSUED"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
	StatusVoid    Status = "VOID"
)

var ErrInvalidStatus = errors.New("invalid_status")

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusIssued, StatusPartial, StatusPaid, StatusVoid:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	return s == StatusVoid
}

// Amendable reports whether an invoice in state s may have its amount or
// dates changed.
func (s Status) Amendable() bool {
	return s == StatusIssued || s == StatusPartial
}

func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}
