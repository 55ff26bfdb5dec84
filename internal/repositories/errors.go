package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Common repository errors
var (
	// ErrNotFound is returned when a document is not found
	ErrNotFound = mongo.ErrNoDocuments

	// ErrDuplicateKey is returned when trying to insert a duplicate document
	ErrDuplicateKey = errors.New("duplicate key error")
)

// Domain-specific "not found" errors. They wrap mongo.ErrNoDocuments so
// both IsNotFound and the domain check match:
//
//	if err == mongo.ErrNoDocuments {
//	    return nil, WrapNotFound(err, ErrCampaignNotFound)
//	}
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPlatformNotFound = errors.New("platform not found")
)

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey checks if an error is a duplicate key error
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsDuplicateKeyError(err) || errors.Is(err, ErrDuplicateKey)
}

// WrapNotFound wraps mongo.ErrNoDocuments with a domain-specific error,
// keeping the driver error in the chain. Other errors pass through.
func WrapNotFound(err error, domainErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %w", domainErr, err)
	}
	return err
}
