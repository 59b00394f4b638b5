// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region assumed for numbers written without a country code.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 using DefaultRegion.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	return NormalizeE164In(input, DefaultRegion)
}

// NormalizeE164In formats a phone number to E.164, assuming region for national numbers.
// Unparseable or invalid numbers come back trimmed but otherwise unchanged so callers
// fall back to exact string comparison.
func NormalizeE164In(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Normalizer binds a default region for repeated normalization.
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer for region. An empty region means DefaultRegion.
func NewNormalizer(region string) Normalizer {
	return Normalizer{region: region}
}

// Normalize returns the E.164 form of input, or the trimmed input when it cannot be parsed.
func (n Normalizer) Normalize(input string) string {
	return NormalizeE164In(input, n.region)
}
