package entity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var employeeIDPattern = regexp.MustCompile(`^[0-9]{7}$`)

// EmployeeInfo is the OCR extraction result. It lives only for the duration
// of a request and is never persisted.
type EmployeeInfo struct {
	EmployeeID           string
	Name                 string
	Department           string
	CardType             string
	ExtractionConfidence float64
}

func (e EmployeeInfo) Validate(confidenceThreshold float64) error {
	if !employeeIDPattern.MatchString(e.EmployeeID) {
		return fmt.Errorf("employee id %q does not match the 7-digit format", e.EmployeeID)
	}

	name := strings.TrimSpace(e.Name)
	if len([]rune(name)) < 2 {
		return fmt.Errorf("employee name %q is too short", e.Name)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("employee name contains non-printable characters")
		}
	}

	if e.ExtractionConfidence < confidenceThreshold {
		return fmt.Errorf("extraction confidence %.2f below threshold %.2f",
			e.ExtractionConfidence, confidenceThreshold)
	}

	return nil
}
