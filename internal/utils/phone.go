package utils

import (
    "regexp"
    "strings"
)

// phoneCountryCode is the dialing prefix every mobile-money MSISDN is
// rewritten to before validation. TZ numbers may be entered either with
// a leading 0 (0759123123) or with the full prefix (255759123123).
const phoneCountryCode = "255"

// msisdnPattern matches the canonical form: country code + 9 digits.
var msisdnPattern = regexp.MustCompile(`^` + phoneCountryCode + `\d{9}$`)

// NormalizePhone strips whitespace, rewrites a leading 0 to the full
// country-code prefix and validates the result. Both accepted input
// forms of the same number normalise to the same canonical value. The
// bool is false when the input cannot be a valid MSISDN.
func NormalizePhone(raw string) (string, bool) {
    p := strings.Join(strings.Fields(raw), "")
    if p == "" {
        return "", false
    }
    if strings.HasPrefix(p, "0") {
        p = phoneCountryCode + p[1:]
    }
    if !msisdnPattern.MatchString(p) {
        return "", false
    }
    return p, true
}
