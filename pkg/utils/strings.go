package utils

import (
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ParseInt parses a string to int with a fallback default value
func ParseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// ParseLimitOffset reads limit/offset query values, clamping limit to [1, max].
func ParseLimitOffset(limitStr, offsetStr string, def, max int) (int, int) {
	limit := ParseInt(limitStr, def)
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	offset := ParseInt(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from customer or admin supplied free text.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// NormalizePhone reduces a Bangladeshi mobile number to its 11 digit local form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "880") && len(digits) == 13 {
		return digits[2:]
	}
	return digits
}
