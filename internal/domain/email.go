package domain

import "strings"

// DefaultAllowedEmailDomains is the institutional-domain policy applied when
// no override is configured.
var DefaultAllowedEmailDomains = []string{"columbia.edu", "barnard.edu"}

// EmailPolicy restricts organizer and participant emails to a set of
// institutional domains.
type EmailPolicy struct {
	domains []string
}

// NewEmailPolicy creates a policy for the given domains. An empty list falls
// back to DefaultAllowedEmailDomains.
func NewEmailPolicy(domains []string) *EmailPolicy {
	if len(domains) == 0 {
		domains = DefaultAllowedEmailDomains
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &EmailPolicy{domains: normalized}
}

// Allowed reports whether the email's domain matches one of the configured
// institutional domains. Matching is case-insensitive and requires a
// non-empty local part.
func (p *EmailPolicy) Allowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return false
	}
	for _, d := range p.domains {
		if domain == d {
			return true
		}
	}
	return false
}

// Validate returns a ValidationError describing why the email is rejected,
// or nil when it satisfies the policy.
func (p *EmailPolicy) Validate(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrValidation("email is required")
	}
	if !p.Allowed(email) {
		return ErrValidation("email must use one of: @%s", strings.Join(p.domains, ", @"))
	}
	return nil
}

// Domains returns the configured domain list.
func (p *EmailPolicy) Domains() []string {
	return p.domains
}

// NormalizeEmail lowercases and trims an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
