package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteMarkdown writes section to filePath. When the file already exists and
// carries the marker pair, only the text between the markers is replaced.
func WriteMarkdown(filePath, marker, section string) error {
	content, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		next, err := ReplaceBetweenMarkers(string(content), marker, section)
		if err != nil {
			return err
		}
		return WriteAtomic(filePath, []byte(next))
	case os.IsNotExist(err):
		return WriteAtomic(filePath, []byte(wrapMarkers(marker, section)))
	default:
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}
}

// WriteAtomic replaces filePath through a temp file in the same directory,
// creating parent directories as needed.
func WriteAtomic(filePath string, data []byte) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", filePath, err)
	}
	tmp, err := os.CreateTemp(dir, ".relink-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", filePath, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.Write(data); err != nil {
		writeErr = fmt.Errorf("write temp file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp file %q: %w", tmpName, err)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace file %q: %w", filePath, err)
	}
	return nil
}

func markers(marker string) (string, string) {
	return fmt.Sprintf("<!-- relink:%s:start -->", marker), fmt.Sprintf("<!-- relink:%s:end -->", marker)
}

func wrapMarkers(marker, section string) string {
	start, end := markers(strings.TrimSpace(marker))
	return start + "\n" + strings.TrimRight(section, "\r\n") + "\n" + end + "\n"
}

func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start, end := markers(marker)
	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	cleanReplacement := strings.TrimRight(replacement, "\r\n")

	return prefix + newline + cleanReplacement + newline + suffix, nil
}
