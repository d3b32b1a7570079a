// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_PutGetExists(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("image bytes")
	require.NoError(t, s.Put("user-img-123.png", data))

	assert.True(t, s.Exists("user-img-123.png"))
	assert.False(t, s.Exists("other.png"))

	got, err := s.Get("user-img-123.png")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDirStore_GetMissing(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("nope.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore_RejectsPathSeparators(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape.png", "a/b.png", `a\b.png`, "", ".", ".."} {
		assert.Errorf(t, s.Put(name, []byte("x")), "Put should reject %q", name)
		_, err := s.Get(name)
		assert.Errorf(t, err, "Get should reject %q", name)
		assert.False(t, s.Exists(name))
	}
}

func TestDirStore_Overwrite(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put("f.png", []byte("one")))
	require.NoError(t, s.Put("f.png", []byte("two")))
	got, err := s.Get("f.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}
