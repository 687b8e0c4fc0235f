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

package payload

import (
	"io"
)

// Sink accepts byte ranges during content production. Accept returns how
// many bytes were taken, 0 <= n <= len(p); anything short of len(p),
// including zero, is backpressure and the unaccepted remainder is retained
// and retried on a later ProduceContent call. Accept is never invoked with
// an empty range.
type Sink interface {
	Accept(p []byte) (int, error)
}

// Completer is optionally implemented by sinks that want to be told when
// the full batch has been delivered.
type Completer interface {
	Complete() error
}

// WriterSink adapts an io.Writer into a Sink. io.Writer contractually
// accepts the whole slice or errors, so a WriterSink never signals
// backpressure on its own.
type WriterSink struct {
	W io.Writer
}

// Accept implements Sink.
func (s WriterSink) Accept(p []byte) (int, error) {
	return s.W.Write(p)
}

// Drain repeatedly produces the Body into w until the batch is complete,
// returning the number of bytes written. It is the caller-side retry loop
// for hosts that have a plain blocking writer rather than a readiness-
// driven sink.
func Drain(b *Body, w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for {
		done, err := b.ProduceContent(WriterSink{W: cw})
		if err != nil {
			return cw.n, err
		}
		if done {
			return cw.n, nil
		}
		// An io.Writer that short-writes without an error would spin
		// this loop forever; surface it instead.
		if cw.n == cw.last {
			return cw.n, io.ErrShortWrite
		}
		cw.last = cw.n
	}
}

type countingWriter struct {
	w    io.Writer
	n    int64
	last int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
