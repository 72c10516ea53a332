package domain

import (
	"fmt"
	"strings"
)

// Object-storage key prefixes accepted for uploaded documents.
const (
	DriverLicencePrefix    = "vehicle/driver-license/"
	RegistrationCardPrefix = "vehicle/registration-card/"
	ContractDocPrefix      = "contract/contract/"
)

// CheckDocumentPrefix returns a violation message when key does not start
// with prefix, or an empty string.
func CheckDocumentPrefix(field, key, prefix string) string {
	if strings.HasPrefix(key, prefix) {
		return ""
	}
	return fmt.Sprintf("%s must start with %s", field, prefix)
}
