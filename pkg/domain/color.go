package domain

import (
	"fmt"
	"regexp"
)

// NoneValue is the paint value that disables a stroke or fill channel.
const NoneValue = "none"

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether s is "#" followed by 3 or 6 hex digits.
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// ValidateColor returns ErrInvalidColor for anything but a hex color.
func ValidateColor(s string) error {
	if !IsHexColor(s) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return nil
}
