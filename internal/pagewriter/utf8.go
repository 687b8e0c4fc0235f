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

package pagewriter

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by Writer.Write when the input byte stream is
// not well-formed UTF-8. This is fatal for the production cycle; the writer
// does not attempt to repair or skip malformed input.
var ErrInvalidUTF8 = errors.New("pagewriter: invalid UTF-8 sequence")

// utf8Cursor validates a byte stream as UTF-8 incrementally. A multi-byte
// rune split across feed calls is carried over in partial and checked once
// its final byte arrives. The cursor is never cleared mid-batch, only
// replaced wholesale by Writer.Reset.
type utf8Cursor struct {
	partial [utf8.UTFMax]byte
	n       int
	need    int
	off     int64
}

func (c *utf8Cursor) feed(p []byte) error {
	for _, b := range p {
		if c.n == 0 {
			if b < utf8.RuneSelf {
				c.off++
				continue
			}
			need := leadingByteLen(b)
			if need == 0 {
				return fmt.Errorf("%w at byte offset %d", ErrInvalidUTF8, c.off)
			}
			c.partial[0] = b
			c.n = 1
			c.need = need
			continue
		}
		if b&0xC0 != 0x80 {
			return fmt.Errorf("%w at byte offset %d", ErrInvalidUTF8, c.off)
		}
		c.partial[c.n] = b
		c.n++
		if c.n == c.need {
			// Continuation shape alone does not rule out overlong
			// forms or surrogates; decode the complete sequence.
			if !utf8.Valid(c.partial[:c.n]) {
				return fmt.Errorf("%w at byte offset %d", ErrInvalidUTF8, c.off)
			}
			c.off += int64(c.n)
			c.n = 0
		}
	}
	return nil
}

// leadingByteLen returns the sequence length announced by a UTF-8 leading
// byte, or 0 if the byte cannot start a sequence.
func leadingByteLen(b byte) int {
	switch {
	case b >= 0xC2 && b <= 0xDF:
		return 2
	case b >= 0xE0 && b <= 0xEF:
		return 3
	case b >= 0xF0 && b <= 0xF4:
		return 4
	default:
		return 0
	}
}
