package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Filename helpers shared by the scanner, the extractors and the path builder.
var (
	// videoRe matches video file extensions used to include media files.
	videoRe = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)

	// sampleRe matches sample clips shipped alongside full broadcasts.
	sampleRe = regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])sample(?:[\s._\-\])]|$)`)
)

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// IsSample reports whether a file or folder name marks a sample clip.
func IsSample(name string) bool {
	return sampleRe.MatchString(name)
}

// IsHidden reports whether name is a dotfile or a macOS resource fork.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || name == "Thumbs.db"
}

// ExtensionOf returns the lower-cased extension of filename including the dot.
func ExtensionOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// TrimExtension returns filename without its final extension.
func TrimExtension(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// Ancestry lists the directory names above path, innermost first. The volume
// and root are omitted.
func Ancestry(path string) []string {
	dir := filepath.Dir(filepath.Clean(path))
	var out []string
	for {
		base := filepath.Base(dir)
		if base == "." || base == string(filepath.Separator) || base == "" || dir == filepath.VolumeName(dir)+string(filepath.Separator) {
			break
		}
		out = append(out, base)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return out
}

// ExtensionAllowed reports whether ext passes the allowed and blocked lists.
// Blocked entries win. An empty allowed list accepts everything not blocked.
func ExtensionAllowed(ext string, allowed, blocked []string) bool {
	ext = normalizeExt(ext)
	for _, b := range blocked {
		if normalizeExt(b) == ext {
			return false
		}
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if normalizeExt(a) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
