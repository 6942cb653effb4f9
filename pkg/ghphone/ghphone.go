// Package ghphone validates Ghanaian mobile numbers. Both customer phone
// numbers on invoices and the business phone on profiles go through the
// same rule, so it lives in one place.
package ghphone

import (
	"regexp"
	"strings"
)

// mobileRegex accepts the +233 country code or a leading 0, one of the
// known network prefixes (MTN, Vodafone, AirtelTigo ranges), then exactly
// seven digits.
var mobileRegex = regexp.MustCompile(`^(\+233|0)(20|23|24|25|26|27|28|50|54|55|59)\d{7}$`)

// Valid reports whether phone is a valid Ghanaian mobile number.
// Whitespace anywhere in the input is ignored.
func Valid(phone string) bool {
	stripped := strings.Join(strings.Fields(phone), "")
	return mobileRegex.MatchString(stripped)
}
