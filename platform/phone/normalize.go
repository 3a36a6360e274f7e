// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "MK"

// Normalizer formats numbers to E.164 relative to a default region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer for the given ISO 3166-1 region code.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func (n *Normalizer) NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizeE164 formats a phone number using DefaultRegion.
func NormalizeE164(input string) string {
	return NewNormalizer(DefaultRegion).NormalizeE164(input)
}
