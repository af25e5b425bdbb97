// Package kibi parses and formats byte sizes and flash addresses
package kibi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var DigitRegex = regexp.MustCompile(`^\d+`)
var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")
var ErrInvalidAddress = fmt.Errorf("Invalid address")

func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%v bytes", b)
	} else if b < 1024*1024 {
		return fmt.Sprintf("%v KB", b/1024)
	} else if b < 1024*1024*1024 {
		return fmt.Sprintf("%v MB", b/1024/1024)
	} else if b < 1024*1024*1024*1024 {
		return fmt.Sprintf("%v GB", b/1024/1024/1024)
	} else if b < 1024*1024*1024*1024*1024 {
		return fmt.Sprintf("%v TB", b/1024/1024/1024/1024)
	} else {
		return fmt.Sprintf("%v PB", b/1024/1024/1024/1024/1024)
	}
}

// FormatAddress formats a flash address the way partition tables show them, eg 0x400000
func FormatAddress(a int64) string {
	return fmt.Sprintf("0x%x", a)
}

// We support suffixes 'mb', 'kb', 'gb', etc.
// We also support suffixes of just the letter, eg 'm', 'g', etc.
// A hex value with an 0x prefix is also accepted, without a suffix.
// Examples:
// 123 m -> 123*1024*1024
// 123 mb -> 123*1024*1024
// 123 GB -> 123*1024*1024*1024
// 0x1000 -> 4096
func ParseBytes(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if strings.HasPrefix(v, "0x") {
		return ParseAddress(v)
	}
	digits := DigitRegex.FindString(v)
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	suffix := strings.TrimSpace(v[len(digits):])
	multiplier := int64(1)
	if suffix == "bytes" || suffix == "b" {
	} else if suffix == "kb" || suffix == "k" {
		multiplier = 1024
	} else if suffix == "mb" || suffix == "m" {
		multiplier = 1024 * 1024
	} else if suffix == "gb" || suffix == "g" {
		multiplier = 1024 * 1024 * 1024
	} else if suffix == "tb" || suffix == "t" {
		multiplier = 1024 * 1024 * 1024 * 1024
	} else if suffix == "pb" || suffix == "p" {
		multiplier = 1024 * 1024 * 1024 * 1024 * 1024
	} else if suffix != "" {
		return 0, ErrInvalidByteSizeString
	}
	if value, err := strconv.ParseInt(digits, 10, 64); err != nil {
		return 0, err
	} else {
		return value * multiplier, nil
	}
}

// ParseAddress parses a non-negative address in hex (0x prefix) or decimal
func ParseAddress(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	base := 10
	if strings.HasPrefix(v, "0x") {
		v = v[2:]
		base = 16
	}
	a, err := strconv.ParseInt(v, base, 64)
	if err != nil || a < 0 {
		return 0, fmt.Errorf("%w '%v'", ErrInvalidAddress, v)
	}
	return a, nil
}
