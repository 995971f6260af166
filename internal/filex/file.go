package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotRegularFile is returned for directories, devices and the like.
var ErrNotRegularFile = errors.New("not a regular file")

// OpenRegular opens path for reading and returns the file with its base
// name and size. Only non-empty regular files are accepted. The caller
// closes the file.
func OpenRegular(path string) (*os.File, string, int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, "", 0, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	if fi.Size() == 0 {
		return nil, "", 0, fmt.Errorf("%s: file is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("open %s: %w", path, err)
	}

	return f, filepath.Base(path), fi.Size(), nil
}
