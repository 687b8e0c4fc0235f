// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package digestwriter feeds a serialized byte stream straight into a
// hash.Hash while counting bytes. Nothing is buffered or retained; it is
// the unpaginated counterpart to pagewriter used for digest traversals.
package digestwriter

import (
	"hash"
)

var newline = []byte{'\n'}

// Writer is an io.Writer that accumulates a digest and an exact byte count
// of everything written through it.
type Writer struct {
	h hash.Hash
	n int64
}

// New returns a Writer feeding the given hash.
func New(h hash.Hash) *Writer {
	return &Writer{h: h}
}

// Write implements io.Writer. hash.Hash writes never fail.
func (w *Writer) Write(p []byte) (int, error) {
	w.h.Write(p)
	w.n += int64(len(p))
	return len(p), nil
}

// InsertNewline feeds the record separator into the digest and counts it.
func (w *Writer) InsertNewline() {
	w.h.Write(newline)
	w.n++
}

// ContentLength returns the total number of bytes fed into the digest so
// far, separators included.
func (w *Writer) ContentLength() int64 {
	return w.n
}
