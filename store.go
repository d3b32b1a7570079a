// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docpipe/pdf-imgx/logger"
)

// ErrNotFound is returned by Store.Get for an unknown name.
var ErrNotFound = errors.New("file not found")

// A Store persists extracted image files under flat names.
// Implementations must reject names containing path separators.
type Store interface {
	Put(name string, data []byte) error
	Get(name string) ([]byte, error)
	Exists(name string) bool
}

// DirStore stores files in a single flat directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore rooted at dir, creating the directory
// if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *DirStore) Dir() string {
	return s.dir
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q: path separators not allowed", name)
	}
	return nil
}

// Put writes the file, replacing any previous content under the name.
func (s *DirStore) Put(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	logger.Debug(fmt.Sprintf("store: wrote %s (%d bytes)", name, len(data)), true)
	return nil
}

// Get returns the file's content, or ErrNotFound.
func (s *DirStore) Get(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether a file with the name is present.
func (s *DirStore) Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}
