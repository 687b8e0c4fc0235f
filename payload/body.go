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

// Package payload produces newline-delimited bulk request bodies from an
// ordered batch of documents, incrementally and under sink backpressure.
//
// The naive way to build a bulk body is to render everything into one big
// buffer. The documents we ship can get large, so instead each document is
// serialized directly into fixed-size pages that are handed to the output
// sink as fast as it will take them. Production is resumable: a sink may
// accept zero, part, or all of what it is offered on any call, and the
// host simply calls ProduceContent again when the sink is ready for more.
//
// A side effect of streaming is that the total body size is not known up
// front. Since hosts prefer a known content length for small payloads, a
// Body speculatively runs the encode loop at construction time with no
// sink attached: if the whole batch fits in the buffered pages the exact
// length is known before the first byte leaves the process. The reported
// length freezes on first read, because hosts pick their transfer strategy
// from it and assume it is a constant.
package payload

import (
	"hash"
	"io"

	"github.com/cardinalhq/bulkbody/internal/digestwriter"
	"github.com/cardinalhq/bulkbody/internal/pagewriter"
)

// ContentType is the media type of every produced body.
const ContentType = "application/json"

// ContentLengthUnknown is the sentinel ContentLength returns when the
// total size was never determined.
const ContentLengthUnknown = int64(-1)

var newline = []byte{'\n'}

// Body renders an ordered, immutable batch of documents as
// `doc\n doc\n ...` in UTF-8. It is repeatable: after a completed
// production cycle it can be driven again from the start with identical
// output. Not safe for concurrent use; a single readiness-driven caller
// owns it.
//
// The batch slice must not be mutated after NewBody: the speculative
// length hint and any digest are computed from the batch as given.
type Body struct {
	ser   Serializer
	batch []any

	// next is the index of the next document to serialize. Flow control
	// can stop production between documents but never inside one, so on
	// resumption serialization restarts here while already-encoded bytes
	// of earlier documents are retried from the page queue.
	next int

	contentLength int64

	// lengthFrozen is set on the first ContentLength call. From then on
	// the reported value never changes, even if a later traversal would
	// compute one.
	lengthFrozen bool

	w *pagewriter.Writer
}

// NewBody creates a Body over batch and immediately attempts a one-pass
// encode with no sink attached. If the entire batch fits into buffered
// pages without ever needing a successful sink write, the exact content
// length is known up front and hinted; otherwise the length stays unknown
// and the host falls back to a streaming transfer. Serialization and
// encoding failures surface here.
func NewBody(ser Serializer, batch []any) (*Body, error) {
	return NewBodySized(ser, batch, pagewriter.DefaultPageSize)
}

// NewBodySized is NewBody with an explicit page size.
func NewBodySized(ser Serializer, batch []any, pageSize int) (*Body, error) {
	b := &Body{
		ser:           ser,
		batch:         batch,
		contentLength: ContentLengthUnknown,
		w:             pagewriter.NewWriter(pageSize),
	}
	if err := b.encodeRemaining(); err != nil {
		return nil, err
	}
	if !b.w.FlowControlPushingBack() {
		// Possibly not everything was flushed, but the whole batch has
		// been rendered, so the buffered size is the final size.
		b.hintContentLength(int64(b.w.BufferedContentSize()))
	}
	return b, nil
}

// encodeRemaining serializes documents starting at the cursor and stops as
// soon as the writer reports backpressure. The cursor advances before the
// document is rendered: a partially-written document is never serialized
// twice, only its already-encoded bytes are retried.
func (b *Body) encodeRemaining() error {
	for b.next < len(b.batch) {
		doc := b.batch[b.next]
		b.next++
		if err := b.ser.Serialize(b.w, doc); err != nil {
			return err
		}
		if _, err := b.w.Write(newline); err != nil {
			return err
		}
		if err := b.w.Flush(); err != nil {
			return err
		}
		if b.w.FlowControlPushingBack() {
			return nil
		}
	}
	return nil
}

// ProduceContent drives production into sink. It is reentrant: the host
// calls it whenever the sink is ready, and each call either completes the
// batch (done == true, sink notified via Completer when implemented) or
// makes as much progress as the sink allows and returns. The sink may be a
// different (equivalent) instance on every call.
func (b *Body) ProduceContent(sink Sink) (done bool, err error) {
	if sink == nil {
		return false, ErrNilSink
	}
	b.w.SetOutput(sink)

	// Unfinished business from previous attempts goes first.
	if err := b.w.ResumePendingWrites(); err != nil {
		return false, err
	}
	if b.w.FlowControlPushingBack() {
		return false, nil
	}

	if err := b.encodeRemaining(); err != nil {
		return false, err
	}
	if b.w.FlowControlPushingBack() {
		return false, nil
	}

	if err := b.w.FlushToOutput(); err != nil {
		return false, err
	}
	if b.w.FlowControlPushingBack() {
		return false, nil
	}

	if c, ok := sink.(Completer); ok {
		if err := c.Complete(); err != nil {
			return false, err
		}
	}

	// Rewind so the content can be produced again from the start.
	b.next = 0
	return true, nil
}

// ContentLength returns the total body size in bytes, or
// ContentLengthUnknown if it was never determined. The first call freezes
// the value: hosts decide their transfer strategy from it and then rely on
// it being constant, so later hints are ignored.
func (b *Body) ContentLength() int64 {
	b.lengthFrozen = true
	return b.contentLength
}

// ContentEncoding returns the content-encoding header value, which is
// always empty for these bodies.
func (b *Body) ContentEncoding() string {
	return ""
}

// IsRepeatable reports that production can be restarted from the
// beginning after completion or Close.
func (b *Body) IsRepeatable() bool {
	return true
}

// IsStreaming reports that this body does not hold an open stream.
func (b *Body) IsStreaming() bool {
	return false
}

// Content fails with ErrContentNotReadable; see that error.
func (b *Body) Content() (io.ReadCloser, error) {
	return nil, ErrContentNotReadable
}

// WriteTo fails with ErrContentNotWritable; see ErrContentNotReadable.
func (b *Body) WriteTo(w io.Writer) (int64, error) {
	return 0, ErrContentNotWritable
}

// Close rewinds the cursor and discards in-progress buffers so the next
// production cycle starts clean. The frozen length state is unaffected.
func (b *Body) Close() error {
	b.next = 0
	b.w.Reset()
	return nil
}

// FillDigest traverses the full batch, feeding the canonical serialized
// bytes into h without any pagination or buffering. The cursor and flow
// control state of the main production path are untouched. As a side
// benefit the exact content length becomes known and is hinted, subject to
// the freeze rule.
func (b *Body) FillDigest(h hash.Hash) error {
	dw := digestwriter.New(h)
	for _, doc := range b.batch {
		if err := b.ser.Serialize(dw, doc); err != nil {
			return err
		}
		dw.InsertNewline()
	}
	b.hintContentLength(dw.ContentLength())
	return nil
}

func (b *Body) hintContentLength(n int64) {
	if !b.lengthFrozen {
		b.contentLength = n
	}
}
