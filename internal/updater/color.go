package updater

import (
	"regexp"
	"strconv"
)

var (
	hexColor      = regexp.MustCompile(`^#?([0-9a-fA-F]{2})?([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)
	remoteMedia   = regexp.MustCompile(`^https?://`)
	windowsAbsDir = regexp.MustCompile(`^[a-zA-Z]:\\`)
)

// ParseColor converts "#RRGGBB" or "#AARRGGBB" into the 0xAABBGGRR integer
// OBS stores for color sources. A missing alpha is fully opaque.
func ParseColor(s string) (uint32, bool) {
	m := hexColor.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	alpha := m[1]
	if alpha == "" {
		alpha = "FF"
	}
	red, green, blue := m[2], m[3], m[4]

	packed, err := strconv.ParseUint(alpha+blue+green+red, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(packed), true
}

// IsMediaLocation reports whether s is an http(s) URL or an absolute path.
func IsMediaLocation(s string) bool {
	return remoteMedia.MatchString(s) || windowsAbsDir.MatchString(s) || (len(s) > 0 && s[0] == '/')
}
