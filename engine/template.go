package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// renderName expands a delivery naming template for one file. Supported
// placeholders: {index} (1-based, zero-padded to three digits), {name}
// (file name without extension) and {ext} (extension without the dot).
// An empty template keeps the original file name.
func renderName(template string, index int, fileName string) string {
	if template == "" {
		return fileName
	}

	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	out := strings.ReplaceAll(template, "{index}", fmt.Sprintf("%03d", index))
	out = strings.ReplaceAll(out, "{name}", name)
	out = strings.ReplaceAll(out, "{ext}", ext)
	return out
}
