package fs

import (
	"path/filepath"
	"strings"
)

// fixpath returns an absolute path on windows, so that paths longer than 260
// characters can be opened.
func fixpath(name string) string {
	abspath, err := filepath.Abs(name)
	if err == nil {
		if strings.HasPrefix(abspath, `\\?\`) {
			return abspath
		}
		if strings.HasPrefix(abspath, `\\`) {
			return `\\?\UNC\` + abspath[2:]
		}
		return `\\?\` + abspath
	}
	return name
}
