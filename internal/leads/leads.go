// Package leads resolves the lead that owns a call from the call's phone numbers.
// This file defines the public API of the leads bounded context.
package leads

import (
	"context"

	"github.com/google/uuid"
)

// Resolution is the lead a call was attributed to.
type Resolution struct {
	LeadID    uuid.UUID
	LeadName  string
	PhoneE164 string
	// Created is true when the lead was created for this call.
	Created bool
}

// LeadResolver is what other domains depend on.
type LeadResolver interface {
	// Resolve returns nil when no lead could be found or created.
	Resolve(ctx context.Context, candidates []string) (*Resolution, error)
}
