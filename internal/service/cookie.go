package service

import "strings"

// ReadCookie returns the value of cookie name from a raw Cookie header.
// The name must appear exactly once in "; name=" form; the value runs up to
// the next ';'.
func ReadCookie(header, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	value := "; " + header
	marker := "; " + name + "="
	if strings.Count(value, marker) != 1 {
		return "", false
	}
	_, rest, _ := strings.Cut(value, marker)
	v, _, _ := strings.Cut(rest, ";")
	return v, true
}
