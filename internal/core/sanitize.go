package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const invalidFilenameChars = "<>:\"/\\|?*"

var (
	repeatedDashRe = regexp.MustCompile(`-{2,}`)
	repeatedDotRe  = regexp.MustCompile(`\.{2,}`)
)

// sanitizeFilename replaces characters that are invalid on common filesystems
// with a single space and collapses runs of spaces.
func sanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is empty after sanitization")
	}

	var b strings.Builder
	b.Grow(len(name))

	lastSpace := false
	for _, r := range name {
		if r < 32 || r == 127 || strings.ContainsRune(invalidFilenameChars, r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	result := strings.TrimSpace(b.String())
	if result == "" || result == "." || result == ".." {
		return "", fmt.Errorf("name is empty after sanitization")
	}
	return result, nil
}

// sanitizePath sanitizes every element of path, keeping the volume and a
// leading separator.
func sanitizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty after sanitization")
	}

	volume := filepath.VolumeName(path)
	rest := path[len(volume):]
	sep := string(filepath.Separator)
	isAbs := strings.HasPrefix(rest, sep)

	parts := strings.Split(rest, sep)
	sanitizedParts := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		sanitized, err := sanitizeFilename(part)
		if err != nil {
			return "", err
		}
		sanitizedParts = append(sanitizedParts, sanitized)
	}
	if len(sanitizedParts) == 0 {
		return "", fmt.Errorf("path is empty after sanitization")
	}

	sanitizedPath := filepath.Join(sanitizedParts...)
	if isAbs {
		sanitizedPath = sep + sanitizedPath
	}

	return volume + sanitizedPath, nil
}

// sanitizeComponent prepares one dotted filename component: invalid
// characters and dots become spaces, and spaces become dashes. It returns ""
// when nothing usable is left.
func sanitizeComponent(value string) string {
	value = strings.ReplaceAll(value, ".", " ")
	cleaned, err := sanitizeFilename(value)
	if err != nil {
		return ""
	}
	cleaned = strings.Join(strings.Fields(cleaned), "-")
	return strings.Trim(repeatedDashRe.ReplaceAllString(cleaned, "-"), "-")
}

// sanitizeFolder prepares one folder name, keeping spaces.
func sanitizeFolder(value string) string {
	cleaned, err := sanitizeFilename(value)
	if err != nil {
		return ""
	}
	return strings.Trim(cleaned, ". ")
}
