// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FindFilesByExtension recursively searches the given root path of fsys for
// all files ending with the specified extension. It returns their full paths
// in lexical order.
func FindFilesByExtension(fsys afero.Fs, rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := afero.Walk(fsys, rootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
