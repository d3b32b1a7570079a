// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package imgx

import (
	"math/rand/v2"
	"strings"
)

// Role prefixes assigned by extraction position: the first image kept
// from a document is treated as the user photo, the second as the
// signature. Later images carry no prefix.
const (
	userImagePrefix = "user-img-"
	signImagePrefix = "sign-img-"
)

// IDLength is the number of digits in generated identifiers.
const IDLength = 30

// RandomDigits returns a string of exactly n random ASCII digits.
// Each digit is chosen uniformly and independently, so a leading zero
// is as likely as any other digit. The underlying source is safe for
// concurrent use.
func RandomDigits(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('0' + rand.IntN(10)))
	}
	return sb.String()
}

// FileName builds the stored name for the image kept at the given
// zero-based position in a document's extraction order: the first
// image gets the user-img- prefix, the second sign-img-, the rest a
// bare random identifier.
func FileName(position int, ext string) string {
	id := RandomDigits(IDLength)
	switch position {
	case 0:
		return userImagePrefix + id + ext
	case 1:
		return signImagePrefix + id + ext
	default:
		return id + ext
	}
}
