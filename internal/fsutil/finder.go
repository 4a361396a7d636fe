// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths in
// lexical walk order.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// CollectFiles resolves paths, each a file or a directory, into the files
// ending with extension. Directories are searched recursively, files with
// another extension are skipped, and duplicates keep their first position.
func CollectFiles(paths []string, extension string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		found := []string{path}
		if info.IsDir() {
			if found, err = FindFilesByExtension(path, extension); err != nil {
				return nil, err
			}
		} else if !strings.HasSuffix(path, extension) {
			continue
		}

		for _, f := range found {
			clean := filepath.Clean(f)
			if _, dup := seen[clean]; !dup {
				seen[clean] = struct{}{}
				out = append(out, f)
			}
		}
	}
	return out, nil
}
