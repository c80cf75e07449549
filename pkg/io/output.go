package io

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// OutputTo writes every file under dest, creating directories as needed and replacing
// existing files. It returns the first error encountered.
func OutputTo(files []File, dest string) error {
	errs := make(chan error)
	for idx := range files {
		go func(f File) {
			errs <- writeFile(f, dest)
		}(files[idx])
	}

	var firstErr error
	for i := 0; i < len(files); i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeFile(f File, dest string) error {
	path := filepath.Join(dest, f.Path())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	counter := &CountingWriter{Delegate: file}
	_, err = f.WriteTo(counter)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	zap.S().Debugf("Wrote %s (%d bytes)", path, counter.BytesWritten)
	return nil
}
