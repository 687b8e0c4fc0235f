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
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkSink accepts at most capacity bytes per call, records what it
// accepted, and fails the test on empty handoffs.
type chunkSink struct {
	t         *testing.T
	capacity  int
	buf       bytes.Buffer
	completed int
}

func (s *chunkSink) Accept(p []byte) (int, error) {
	s.t.Helper()
	if len(p) == 0 {
		s.t.Fatal("sink invoked with an empty range")
	}
	n := min(s.capacity, len(p))
	s.buf.Write(p[:n])
	return n, nil
}

func (s *chunkSink) Complete() error {
	s.completed++
	return nil
}

// countingSerializer counts how many documents were rendered.
type countingSerializer struct {
	inner Serializer
	calls int
}

func (c *countingSerializer) Serialize(w io.Writer, doc any) error {
	c.calls++
	return c.inner.Serialize(w, doc)
}

var twoDocBatch = []any{
	map[string]any{"a": 1},
	map[string]any{"b": 2},
}

const twoDocExpected = "{\"a\":1}\n{\"b\":2}\n"

// produceAll drives the body with the given sink until completion.
func produceAll(t *testing.T, b *Body, sink Sink, maxCalls int) int {
	t.Helper()
	for calls := 1; calls <= maxCalls; calls++ {
		done, err := b.ProduceContent(sink)
		require.NoError(t, err)
		if done {
			return calls
		}
	}
	t.Fatalf("batch not complete after %d calls", maxCalls)
	return 0
}

func TestBody_SmallBatchSingleCall(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	sink := &chunkSink{t: t, capacity: 1 << 20}
	calls := produceAll(t, b, sink, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, twoDocExpected, sink.buf.String())
	assert.Equal(t, 1, sink.completed)
}

func TestBody_FiveByteSinkNeedsMultipleCalls(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	sink := &chunkSink{t: t, capacity: 5}
	calls := produceAll(t, b, sink, 100)
	assert.Greater(t, calls, 1, "a 16 byte body cannot fit a 5 byte capacity in one call")
	assert.Equal(t, twoDocExpected, sink.buf.String())
	assert.Equal(t, int64(16), b.ContentLength())
}

func TestBody_DeterminismAcrossSinkCapacities(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 5, 7, 16, 1 << 20} {
		b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 8)
		require.NoError(t, err)
		sink := &chunkSink{t: t, capacity: capacity}
		produceAll(t, b, sink, 100)
		assert.Equal(t, twoDocExpected, sink.buf.String(), "capacity %d", capacity)
	}
}

// stutteringSink accepts nothing on every other call.
type stutteringSink struct {
	*chunkSink
	odd bool
}

func (s *stutteringSink) Accept(p []byte) (int, error) {
	s.odd = !s.odd
	if !s.odd {
		return 0, nil
	}
	return s.chunkSink.Accept(p)
}

func TestBody_ZeroAcceptanceCallsAreSurvived(t *testing.T) {
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 4)
	require.NoError(t, err)

	sink := &stutteringSink{chunkSink: &chunkSink{t: t, capacity: 3}}
	for i := 0; i < 200; i++ {
		done, err := b.ProduceContent(sink)
		require.NoError(t, err)
		if done {
			break
		}
	}
	assert.Equal(t, twoDocExpected, sink.buf.String())
}

func TestBody_ContentLengthKnownForSmallBatch(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)
	assert.Equal(t, int64(16), b.ContentLength())
}

func TestBody_ContentLengthKnownWhenBatchExactlyFillsPage(t *testing.T) {
	// 16 bytes of content on a 16-byte page: the speculative pass must
	// finish with flow control clear and hint the exact size, not treat
	// the full final page as an overflow.
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 16)
	require.NoError(t, err)
	assert.Equal(t, int64(16), b.ContentLength())

	sink := &chunkSink{t: t, capacity: 1 << 20}
	calls := produceAll(t, b, sink, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, twoDocExpected, sink.buf.String())
}

func TestBody_ContentLengthUnknownWhenBatchOverflowsPages(t *testing.T) {
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 8)
	require.NoError(t, err)
	assert.Equal(t, ContentLengthUnknown, b.ContentLength())
}

func TestBody_ContentLengthFreezesOnFirstRead(t *testing.T) {
	// Unknown at first read: stays unknown even after the digest pass
	// computes the real value.
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 8)
	require.NoError(t, err)
	require.Equal(t, ContentLengthUnknown, b.ContentLength())
	require.NoError(t, b.FillDigest(sha256.New()))
	assert.Equal(t, ContentLengthUnknown, b.ContentLength())

	// Digest pass before the first read: the exact value is reported and
	// then frozen.
	b2, err := NewBodySized(JSONSerializer{}, twoDocBatch, 8)
	require.NoError(t, err)
	require.NoError(t, b2.FillDigest(sha256.New()))
	assert.Equal(t, int64(16), b2.ContentLength())
	assert.Equal(t, int64(16), b2.ContentLength())
}

func TestBody_DigestMatchesProducedBytes(t *testing.T) {
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 4)
	require.NoError(t, err)

	h := sha256.New()
	require.NoError(t, b.FillDigest(h))
	want := sha256.Sum256([]byte(twoDocExpected))
	assert.Equal(t, want[:], h.Sum(nil))

	// The digest pass must not disturb the resumable production state.
	sink := &chunkSink{t: t, capacity: 3}
	produceAll(t, b, sink, 100)
	assert.Equal(t, twoDocExpected, sink.buf.String())
}

func TestBody_Fingerprint64(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	fp, err := b.Fingerprint64()
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64String(twoDocExpected), fp)
}

func TestBody_RepeatableAfterCompletion(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	first := &chunkSink{t: t, capacity: 5}
	produceAll(t, b, first, 100)

	second := &chunkSink{t: t, capacity: 1 << 20}
	calls := produceAll(t, b, second, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.buf.String(), second.buf.String())
}

func TestBody_RejectingSinkStartsNoFurtherDocuments(t *testing.T) {
	ser := &countingSerializer{inner: JSONSerializer{}}
	// A page smaller than the first document forces the speculative pass
	// to stop after rendering it.
	b, err := NewBodySized(ser, twoDocBatch, 4)
	require.NoError(t, err)
	require.Equal(t, 1, ser.calls)

	sink := &chunkSink{t: t, capacity: 0}
	done, err := b.ProduceContent(sink)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, ser.calls, "no new document may start while the sink rejects everything")
	assert.Zero(t, sink.completed)
}

func TestBody_CloseRewindsProduction(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	partial := &chunkSink{t: t, capacity: 5}
	done, err := b.ProduceContent(partial)
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, b.Close())

	fresh := &chunkSink{t: t, capacity: 1 << 20}
	calls := produceAll(t, b, fresh, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, twoDocExpected, fresh.buf.String())
}

func TestBody_EmptyBatch(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.ContentLength())

	sink := &chunkSink{t: t, capacity: 1 << 20}
	done, err := b.ProduceContent(sink)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Zero(t, sink.buf.Len())
	assert.Equal(t, 1, sink.completed)
}

func TestBody_EntityContract(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	assert.True(t, b.IsRepeatable())
	assert.False(t, b.IsStreaming())
	assert.Equal(t, "application/json", ContentType)
	assert.Empty(t, b.ContentEncoding())
}

func TestBody_UnsupportedAccessorsFailLoudly(t *testing.T) {
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	_, err = b.Content()
	assert.ErrorIs(t, err, ErrContentNotReadable)

	_, err = b.WriteTo(io.Discard)
	assert.ErrorIs(t, err, ErrContentNotWritable)

	_, err = b.ProduceContent(nil)
	assert.ErrorIs(t, err, ErrNilSink)
}

type failingSerializer struct {
	err error
}

func (f failingSerializer) Serialize(io.Writer, any) error {
	return f.err
}

func TestBody_SerializationErrorSurfacesAtConstruction(t *testing.T) {
	serErr := errors.New("unrepresentable document")
	_, err := NewBody(failingSerializer{err: serErr}, twoDocBatch)
	require.ErrorIs(t, err, serErr)
}

// erroringSink fails after accepting a prefix.
type erroringSink struct {
	accept int
	err    error
}

func (s *erroringSink) Accept(p []byte) (int, error) {
	n := min(s.accept, len(p))
	return n, s.err
}

func TestBody_SinkErrorLeavesStateRetryable(t *testing.T) {
	sinkErr := errors.New("socket reset")
	b, err := NewBody(JSONSerializer{}, twoDocBatch)
	require.NoError(t, err)

	_, err = b.ProduceContent(&erroringSink{accept: 2, err: sinkErr})
	require.ErrorIs(t, err, sinkErr)

	good := &chunkSink{t: t, capacity: 1 << 20}
	produceAll(t, b, good, 2)
	assert.Equal(t, twoDocExpected[2:], good.buf.String(),
		"retry resumes exactly after the bytes the failed sink accepted")
}

func TestBody_LargeBatchRoundTrip(t *testing.T) {
	var batch []any
	var want strings.Builder
	for i := 0; i < 100; i++ {
		doc := map[string]any{"v": strings.Repeat("x", 50+i%17)}
		batch = append(batch, doc)
		want.WriteString("{\"v\":\"" + strings.Repeat("x", 50+i%17) + "\"}\n")
	}

	b, err := NewBody(JSONSerializer{}, batch)
	require.NoError(t, err)
	assert.Equal(t, ContentLengthUnknown, b.ContentLength(),
		"several KB of documents cannot fit the default page speculatively")

	sink := &chunkSink{t: t, capacity: 333}
	produceAll(t, b, sink, 1000)
	assert.Equal(t, want.String(), sink.buf.String())

	h := sha256.New()
	require.NoError(t, b.FillDigest(h))
	wantSum := sha256.Sum256([]byte(want.String()))
	assert.Equal(t, wantSum[:], h.Sum(nil))
}

func TestDrain(t *testing.T) {
	b, err := NewBodySized(JSONSerializer{}, twoDocBatch, 4)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := Drain(b, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(16), n)
	assert.Equal(t, twoDocExpected, out.String())
}

func TestJSONSerializer_NoEmbeddedSeparators(t *testing.T) {
	var buf bytes.Buffer
	err := JSONSerializer{}.Serialize(&buf, map[string]any{"text": "line1\nline2"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "\n", "newlines must be escaped, never raw")
}
