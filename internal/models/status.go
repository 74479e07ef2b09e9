package models

import (
	"fmt"
	"strings"
)

// StatusCode is the closed enumeration of subscription states.
type StatusCode string

const (
	StatusActive         StatusCode = "ACTIVE"
	StatusExpired        StatusCode = "EXPIRED"
	StatusPendingRenewal StatusCode = "PENDING_RENEWAL"
)

// AllStatusCodes returns every known code, used to seed the status table.
func AllStatusCodes() []StatusCode {
	return []StatusCode{StatusActive, StatusExpired, StatusPendingRenewal}
}

// ParseStatusCode matches a raw status string (any case) against the
// enumeration.
func ParseStatusCode(raw string) (StatusCode, error) {
	code := StatusCode(strings.ToUpper(strings.TrimSpace(raw)))
	switch code {
	case StatusActive, StatusExpired, StatusPendingRenewal:
		return code, nil
	}
	return "", fmt.Errorf("unknown status code %q", raw)
}

// StatusEntity is the canonical row for a status code.
type StatusEntity struct {
	ID   int64      `json:"id"`
	Code StatusCode `json:"code"`
}
