package models

import "strings"

// PhoneVariants returns the set of stored formats a phone number may
// match under the configured country prefix, e.g. with prefix "+88" the
// input "01712345678" also matches "+8801712345678" and vice versa.
// An empty prefix disables normalization.
func PhoneVariants(phone, countryPrefix string) []string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if countryPrefix == "" {
		return []string{phone}
	}
	if strings.HasPrefix(phone, countryPrefix) {
		return []string{phone, strings.TrimPrefix(phone, countryPrefix)}
	}
	return []string{phone, countryPrefix + phone}
}
