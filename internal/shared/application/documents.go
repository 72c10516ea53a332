package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/covera/internal/shared/domain"
)

// DocumentChecker reports whether an object-storage key has been uploaded.
type DocumentChecker interface {
	DocumentExists(ctx context.Context, key string) (bool, error)
}

// MissingDocumentMessage is the violation recorded for an absent upload.
func MissingDocumentMessage(field string) string {
	return fmt.Sprintf("object-storage file %s must exists, must have been uploaded through presigned url", field)
}

// CheckDocuments records a violation for every field whose key is missing
// from object storage. Fields are checked in name order. A storage error
// aborts the check.
func CheckDocuments(ctx context.Context, checker DocumentChecker, fields map[string]string, v *domain.Violations) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		exists, err := checker.DocumentExists(ctx, fields[name])
		if err != nil {
			return fmt.Errorf("check document %s: %w", name, err)
		}
		if !exists {
			v.Add(MissingDocumentMessage(name))
		}
	}
	return nil
}
