// SPDX-License-Identifier: GPL-2.0-or-later

// Package filesystem does the file access of a load. Files are opened for
// a single read and closed again; nothing keeps a handle between reads.
package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// OverlaySuffix ends the name of every overlay file.
const OverlaySuffix = ".bsp_lump"

// OverlayPath is the overlay file of lump index beside container:
// "maps/mp_box.bsp" and 14 give "maps/mp_box.bsp.000e.bsp_lump".
func OverlayPath(container string, index int) string {
	return fmt.Sprintf("%s.%04x%s", container, index, OverlaySuffix)
}

// ReadRange reads n bytes at offset off of the named file.
func ReadRange(name string, off, n int64) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b := make([]byte, n)
	if _, err := f.ReadAt(b, off); err != nil {
		if err == io.EOF {
			return nil, errors.Wrapf(io.ErrUnexpectedEOF, "%s: %d bytes at %d", name, n, off)
		}
		return nil, err
	}
	return b, nil
}

// ReadFile reads a whole file.
func ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Size returns the length of the named file.
func Size(name string) (int64, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Exists reports whether name is a regular file.
func Exists(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular()
}

// WriteFile replaces name with data. The data goes to a temporary file in
// the same directory that is renamed over name, so readers see either the
// old or the new file.
func WriteFile(name string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), name)
}

// extIndex is the index of the dot starting the extension of the last
// path element or -1.
func extIndex(path string) int {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || strings.LastIndexAny(path, `/\`) > dot {
		return -1
	}
	return dot
}

// Ext returns the extension of the last path element including the dot.
// Both slash kinds separate elements.
func Ext(path string) string {
	if i := extIndex(path); i >= 0 {
		return path[i:]
	}
	return ""
}

// StripExt returns path without Ext(path).
func StripExt(path string) string {
	if i := extIndex(path); i >= 0 {
		return path[:i]
	}
	return path
}

// Sibling names a file next to path: the base name with suffix inserted
// before the extension, "maps/a.bsp" becomes "maps/a_fixed.bsp".
func Sibling(path, suffix string) string {
	return StripExt(path) + suffix + Ext(path)
}
