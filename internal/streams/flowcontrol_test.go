package streams

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport records pause/resume traffic for the flow-control wrappers.
type mockTransport struct {
	mu          sync.Mutex
	paused      bool
	pauseCalls  int
	resumeCalls int
	failPause   bool
	failResume  bool
}

func (m *mockTransport) PauseReading() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	if m.failPause {
		return errors.New("pause not supported")
	}
	m.paused = true
	return nil
}

func (m *mockTransport) ResumeReading() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCalls++
	if m.failResume {
		return errors.New("resume not supported")
	}
	m.paused = false
	return nil
}

func (m *mockTransport) ReadingPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockTransport) counts() (pauses, resumes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls, m.resumeCalls
}

func TestFlowControlStreamReaderResumesPausedTransportOnConstruction(t *testing.T) {
	tr := &mockTransport{paused: true}
	f := NewFlowControlStreamReader(NewStreamReader(), tr, 16)

	assert.False(t, tr.ReadingPaused())
	_, resumes := tr.counts()
	assert.Equal(t, 1, resumes)
	assert.True(t, f.allowPause)
}

func TestFlowControlStreamReaderDoesNotAdoptUnpausableTransport(t *testing.T) {
	tr := &mockTransport{paused: true, failResume: true}
	f := NewFlowControlStreamReader(NewStreamReader(), tr, 16)

	// The transport refused to resume, so this wrapper never owns pausing.
	assert.False(t, f.allowPause)
	require.NoError(t, f.FeedData(make([]byte, 1024)))
	pauses, _ := tr.counts()
	assert.Zero(t, pauses)
}

func TestFlowControlStreamReaderPausesExactlyOnceAboveWatermark(t *testing.T) {
	tr := &mockTransport{paused: true}
	f := NewFlowControlStreamReader(NewStreamReader(), tr, 16) // watermark: 32 bytes

	require.NoError(t, f.FeedData(make([]byte, 32)))
	pauses, _ := tr.counts()
	assert.Zero(t, pauses, "at the watermark, not above it")
	assert.False(t, f.Overflow())

	require.NoError(t, f.FeedData(make([]byte, 1)))
	pauses, _ = tr.counts()
	assert.Equal(t, 1, pauses)
	assert.True(t, tr.ReadingPaused())
	assert.True(t, f.Overflow())

	// Further feeds while paused trigger no additional pause calls.
	require.NoError(t, f.FeedData(make([]byte, 8)))
	pauses, _ = tr.counts()
	assert.Equal(t, 1, pauses)
}

func TestFlowControlStreamReaderResumesExactlyOnceBelowWatermark(t *testing.T) {
	tr := &mockTransport{paused: true}
	f := NewFlowControlStreamReader(NewStreamReader(), tr, 16)
	require.NoError(t, f.FeedData(make([]byte, 40)))
	require.True(t, tr.ReadingPaused())

	ctx := context.Background()
	_, err := f.Read(ctx, 4) // 36 left, still above
	require.NoError(t, err)
	assert.True(t, tr.ReadingPaused())

	_, err = f.Read(ctx, 20) // 16 left, below
	require.NoError(t, err)
	assert.False(t, tr.ReadingPaused())

	_, resumes := tr.counts()
	assert.Equal(t, 2, resumes, "construction resume plus watermark resume")

	_, err = f.Read(ctx, 8)
	require.NoError(t, err)
	_, resumes = tr.counts()
	assert.Equal(t, 2, resumes, "no further resume once already resumed")
}

func TestFlowControlStreamReaderSkipsPauseWhileReadIsWaiting(t *testing.T) {
	tr := &mockTransport{paused: true}
	r := NewStreamReader()
	f := NewFlowControlStreamReader(r, tr, 2) // watermark: 4 bytes

	got := make(chan []byte, 1)
	go func() {
		chunk, err := f.ReadAny(context.Background())
		require.NoError(t, err)
		got <- chunk
	}()
	require.Eventually(t, r.hasWaiter, testWaitTimeout, testWaitTick)

	// The chunk overflows the watermark but goes straight to the waiting
	// read, so the transport must not be paused.
	require.NoError(t, f.FeedData(make([]byte, 64)))
	<-got
	pauses, _ := tr.counts()
	assert.Zero(t, pauses)
}

func TestFlowControlStreamReaderSwallowsPauseFailures(t *testing.T) {
	tr := &mockTransport{paused: true, failPause: true}
	f := NewFlowControlStreamReader(NewStreamReader(), tr, 4)

	require.NoError(t, f.FeedData(make([]byte, 64)))
	assert.False(t, tr.ReadingPaused())

	// A failed pause is retried on the next feed because the flag never
	// flipped; flow control stays best-effort.
	require.NoError(t, f.FeedData(make([]byte, 1)))
	pauses, _ := tr.counts()
	assert.Equal(t, 2, pauses)
}

func TestFlowControlStreamReaderDelegatesReadContract(t *testing.T) {
	tr := &mockTransport{}
	f := NewFlowControlStreamReader(NewStreamReader(WithLimit(64)), tr, 64)
	require.NoError(t, f.FeedData([]byte("hello\nworld")))
	f.FeedEOF()
	ctx := context.Background()

	line, err := f.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), line)

	exact, err := f.ReadExactly(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), exact)

	assert.True(t, f.IsEOF())
	assert.True(t, f.AtEOF())
	assert.Equal(t, int64(11), f.TotalBytes())
}

func TestFlowControlDataQueueWatermarkUsesDeclaredSizes(t *testing.T) {
	tr := &mockTransport{paused: true}
	q := NewDataQueue[string]()
	f := NewFlowControlDataQueue(q, tr, 8) // watermark: 16

	require.NoError(t, f.FeedData("tiny", 10))
	pauses, _ := tr.counts()
	assert.Zero(t, pauses)

	require.NoError(t, f.FeedData("big", 10))
	pauses, _ = tr.counts()
	assert.Equal(t, 1, pauses)
	assert.True(t, tr.ReadingPaused())

	ctx := context.Background()
	_, err := f.Read(ctx) // 10 left, below 16
	require.NoError(t, err)
	assert.False(t, tr.ReadingPaused())
}

func TestFlowControlDataQueueReadAtEOF(t *testing.T) {
	tr := &mockTransport{}
	f := NewFlowControlDataQueue(NewDataQueue[string](), tr, 8)
	f.FeedEOF()

	_, err := f.Read(context.Background())
	assert.ErrorIs(t, err, ErrEOFStream)
}

func TestFlowControlChunksQueueConvertsEOFToEmptyValue(t *testing.T) {
	tr := &mockTransport{paused: true}
	c := NewFlowControlChunksQueue(tr, 8)
	require.NoError(t, c.FeedData([]byte("data"), 4))
	c.FeedEOF()

	ctx := context.Background()
	chunk, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), chunk)

	chunk, err = c.ReadAny(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunk)
	assert.True(t, c.AtEOF())
}
