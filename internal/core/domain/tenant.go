package domain

import (
	"regexp"

	"github.com/google/uuid"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateTenantID rejects ids that are not a single safe path component.
func ValidateTenantID(id string) error {
	if !tenantIDPattern.MatchString(id) {
		return ErrInvalidTenantID
	}
	return nil
}

func NewTenantID() string {
	return uuid.NewString()
}
