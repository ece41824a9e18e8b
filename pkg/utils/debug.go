package utils

import (
	"fmt"
	"runtime"
	"strings"
)

// projectMarker is the path segment caller locations are trimmed to
const projectMarker = "download-gate"

// GetFileAndLoC returns the file path and line of code with skip being the number of stack frames to skip
func GetFileAndLoC(skip int) string {
	_, filepath, line, _ := runtime.Caller(1 + skip)

	// trim to only after the project directory
	if i := strings.LastIndex(filepath, projectMarker); i != -1 {
		filepath = filepath[i:]
	}

	return fmt.Sprintf(
		"%s:%d",
		filepath,
		line,
	)
}
