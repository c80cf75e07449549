package io

import (
	"io"
)

// RawFile is a file whose content is already rendered.
type RawFile struct {
	FPath   string
	Content []byte
}

type File interface {
	Path() string
	WriteTo(io.Writer) (int64, error)
}

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}
