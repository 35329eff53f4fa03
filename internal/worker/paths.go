package worker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadPathsFromFile reads file paths, one per line. Blank lines and lines
// starting with # are skipped; duplicates keep their first position.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open path list: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadPaths(file)
}

// ReadPaths is ReadPathsFromFile over any reader
func ReadPaths(r io.Reader) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = filepath.ToSlash(strings.TrimPrefix(line, "./"))
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read path list: %w", err)
	}
	return paths, nil
}
