// Package cache persists parsed records and trained models between runs.
//
// Values are gob-encoded and xz-compressed. Artifacts are never
// invalidated: a stale file is served as-is until it is removed by hand.
package cache

import (
	"bufio"
	"encoding/gob"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// Store loads and stores values under string keys.
//
// Load reports false with a nil error when the key is absent. Interface
// values inside v must have their concrete types registered with gob.
type Store interface {
	Load(key string, v any) (bool, error)
	Store(key string, v any) error
}

// Encode writes v to w as xz-compressed gob.
func Encode(w io.Writer, v any) error {
	zw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "create xz writer")
	}
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, "gob encode")
	}
	return errors.Wrap(zw.Close(), "close xz writer")
}

// Decode reads an xz-compressed gob value from r into v.
func Decode(r io.Reader, v any) error {
	zr, err := xz.NewReader(bufio.NewReader(r))
	if err != nil {
		return errors.Wrap(err, "create xz reader")
	}
	return errors.Wrap(gob.NewDecoder(zr).Decode(v), "gob decode")
}
