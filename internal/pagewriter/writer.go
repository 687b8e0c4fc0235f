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

// Package pagewriter implements a paged, flow-control-aware byte writer.
//
// Bytes written to a Writer are validated as UTF-8 and collected into
// fixed-size pages. Full pages are offered to an attached Sink immediately
// when the sink is keeping up, and queued oldest-first when it is not.
// The sink may accept any prefix of an offered page, including nothing at
// all; unaccepted bytes are retained and re-offered on the next explicit
// drain call. The Writer never blocks and never calls the sink with an
// empty range.
package pagewriter

import (
	"context"
)

// DefaultPageSize is the page capacity used when callers have no reason to
// pick another one. Large enough to amortize sink calls for bulk payloads,
// small enough not to penalize tiny ones.
const DefaultPageSize = 1024

// Sink accepts byte ranges produced by a Writer. Accept returns how many
// bytes were taken, 0 <= n <= len(p). Anything short of len(p), including
// zero, means backpressure: the caller retains the remainder and retries
// later. Accept is never called with an empty range.
type Sink interface {
	Accept(p []byte) (int, error)
}

// Writer encodes a byte stream into fixed-size pages and hands them to a
// Sink under explicit flow control. The zero value is not usable; call
// NewWriter.
//
// Writer is not safe for concurrent use. It is designed for a single
// driver that alternates between writing and draining as sink readiness
// changes.
type Writer struct {
	pageSize int

	// pending holds queued pages in write order. Each slice covers only
	// the bytes the sink has not accepted yet.
	pending [][]byte

	// cur is the page currently being filled, nil when none has been
	// started. len(cur) is the write position, cap(cur) the page size.
	cur []byte

	// out is nil until SetOutput is called. With no sink attached every
	// drain attempt raises flow control, which is what allows callers to
	// run the encode loop speculatively before a sink exists.
	out Sink

	pushback bool

	vcur utf8Cursor
}

// NewWriter returns a Writer producing pages of the given size.
// A pageSize <= 0 selects DefaultPageSize.
func NewWriter(pageSize int) *Writer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Writer{pageSize: pageSize}
}

// SetOutput attaches or replaces the sink pages are drained into. The host
// may substitute an equivalent sink between production attempts, so this
// must be called before each one.
func (w *Writer) SetOutput(out Sink) {
	w.out = out
}

// Write implements io.Writer. The input must be valid UTF-8; a multi-byte
// sequence may be split across calls, the validation cursor carries the
// partial rune over. When a page fills with more input still pending,
// Write first tries to hand it straight to the sink rather than queueing
// it, so that pages are only retained while the sink is actually pushing
// back. A page that fills exactly as the input runs out stays current:
// draining it is end-of-batch work (FlushToOutput), and skipping it here
// lets a body that renders to a whole page complete without any sink.
func (w *Writer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		if w.cur == nil {
			w.cur = make([]byte, 0, w.pageSize)
		}
		if n := min(w.pageSize-len(w.cur), len(p)); n > 0 {
			// Validate only what is about to be committed, so the
			// rune cursor never runs ahead of the retained bytes.
			if err := w.vcur.feed(p[:n]); err != nil {
				return total - len(p), err
			}
			w.cur = append(w.cur, p[:n]...)
			p = p[n:]
		}
		if len(w.cur) < w.pageSize || len(p) == 0 {
			continue
		}
		if err := w.drain(true); err != nil {
			return total - len(p), err
		}
		if w.cur != nil {
			// The full page could not be handed off; move it out
			// of the way and start a fresh one.
			w.pending = append(w.pending, w.cur)
			w.cur = nil
			pagesQueuedCounter.Add(context.Background(), 1)
		}
	}
	return total, nil
}

// Flush implements the flush expected by io-style writers as a no-op.
// Draining is driven exclusively through ResumePendingWrites and
// FlushToOutput; an implicit flush here would corrupt the flow-control
// accounting the caller relies on.
func (w *Writer) Flush() error {
	return nil
}

// ResumePendingWrites clears flow control and drains queued pages, oldest
// first, stopping at the first page the sink does not fully accept. The
// current partially-filled page is left alone.
func (w *Writer) ResumePendingWrites() error {
	w.pushback = false
	return w.drain(false)
}

// FlushToOutput drains queued pages and then the current partial page, so
// that everything produced so far is offered to the sink. Used at end of
// batch.
func (w *Writer) FlushToOutput() error {
	w.pushback = false
	return w.drain(true)
}

// FlowControlPushingBack reports whether the last drain attempt failed to
// deliver everything it tried to. While true, producing more input only
// grows the queue; the caller should retry draining once the sink signals
// readiness.
func (w *Writer) FlowControlPushingBack() bool {
	return w.pushback
}

// BufferedContentSize returns the number of bytes produced but not yet
// accepted by the sink. Pages are not necessarily full, so the queue is
// summed rather than multiplied out.
func (w *Writer) BufferedContentSize() int {
	size := 0
	for _, page := range w.pending {
		size += len(page)
	}
	return size + len(w.cur)
}

// Reset discards all buffered pages, clears flow control, and replaces the
// validation cursor. Used when the whole production is rewound.
func (w *Writer) Reset() {
	w.pending = nil
	w.cur = nil
	w.pushback = false
	w.vcur = utf8Cursor{}
}

func (w *Writer) hasRemaining() bool {
	return len(w.pending) > 0 || len(w.cur) > 0
}

// drain offers buffered pages to the sink until it pushes back. When
// flushCurrent is set the current partial page is offered as well once the
// queue is empty.
func (w *Writer) drain(flushCurrent bool) error {
	if w.out == nil {
		w.pushback = true
	}
	if w.pushback || !w.hasRemaining() {
		return nil
	}
	for len(w.pending) > 0 && !w.pushback {
		rest, err := w.offer(w.pending[0])
		if len(rest) == 0 {
			w.pending = w.pending[1:]
		} else {
			w.pending[0] = rest
			w.pushback = true
			backpressureCounter.Add(context.Background(), 1)
		}
		if err != nil {
			return err
		}
	}
	if flushCurrent && !w.pushback && len(w.cur) > 0 {
		page := w.cur
		w.cur = nil
		rest, err := w.offer(page)
		if len(rest) > 0 {
			w.pending = append(w.pending, rest)
			w.pushback = true
			backpressureCounter.Add(context.Background(), 1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// offer hands one page to the sink and returns the unaccepted suffix.
// Zero-length handoffs are trivially successful without touching the sink;
// some sinks misbehave on empty writes.
func (w *Writer) offer(page []byte) ([]byte, error) {
	if len(page) == 0 {
		return nil, nil
	}
	sinkWritesCounter.Add(context.Background(), 1)
	n, err := w.out.Accept(page)
	if n < 0 {
		n = 0
	} else if n > len(page) {
		n = len(page)
	}
	bytesAcceptedCounter.Add(context.Background(), int64(n))
	return page[n:], err
}
