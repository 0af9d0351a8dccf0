package streams

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataQueueReadsItemsInInsertionOrder(t *testing.T) {
	q := NewDataQueue[string]()
	require.NoError(t, q.FeedData("first", 5))
	require.NoError(t, q.FeedData("second", 6))
	q.FeedEOF()

	ctx := context.Background()
	item, err := q.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", item)

	item, err = q.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", item)

	_, err = q.Read(ctx)
	assert.ErrorIs(t, err, ErrEOFStream)
	assert.True(t, q.AtEOF())
}

func TestDataQueueBufferedSizeAccounting(t *testing.T) {
	q := NewDataQueue[[]byte]()
	require.NoError(t, q.FeedData([]byte("abc"), 3))
	require.NoError(t, q.FeedData([]byte("defg"), 4))
	assert.Equal(t, 7, q.BufferedSize())

	_, err := q.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, q.BufferedSize())
}

func TestDataQueueReadBlocksUntilFed(t *testing.T) {
	q := NewDataQueue[int]()
	result := make(chan int, 1)
	go func() {
		item, err := q.Read(context.Background())
		require.NoError(t, err)
		result <- item
	}()

	require.Eventually(t, q.hasWaiter, time.Second, time.Millisecond)
	require.NoError(t, q.FeedData(42, 1))

	select {
	case item := <-result:
		assert.Equal(t, 42, item)
	case <-time.After(time.Second):
		t.Fatal("read did not wake after feed")
	}
}

func TestDataQueueSecondBlockingReadIsUsageError(t *testing.T) {
	q := NewDataQueue[int]()
	go func() {
		_, _ = q.Read(context.Background())
	}()
	require.Eventually(t, q.hasWaiter, time.Second, time.Millisecond)

	_, err := q.Read(context.Background())
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)

	q.FeedEOF()
}

func TestDataQueueCancelledReadClearsWaiter(t *testing.T) {
	q := NewDataQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Read(ctx)
		errCh <- err
	}()
	require.Eventually(t, q.hasWaiter, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.False(t, q.hasWaiter())

	require.NoError(t, q.FeedData(7, 1))
	item, err := q.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, item)
}

func TestDataQueueDeliversBufferedItemsBeforeStoredError(t *testing.T) {
	q := NewDataQueue[string]()
	require.NoError(t, q.FeedData("queued", 6))
	qErr := errors.New("parser blew up")
	q.SetError(qErr)

	ctx := context.Background()
	item, err := q.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "queued", item)

	_, err = q.Read(ctx)
	assert.ErrorIs(t, err, qErr)
}

func TestDataQueueFeedAfterEOFIsUsageError(t *testing.T) {
	q := NewDataQueue[int]()
	q.FeedEOF()
	err := q.FeedData(1, 1)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
}

func TestChunksQueueConvertsEOFToEmptyValue(t *testing.T) {
	c := NewChunksQueue()
	require.NoError(t, c.FeedData([]byte("chunk"), 5))
	c.FeedEOF()

	ctx := context.Background()
	chunk, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk"), chunk)

	chunk, err = c.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunk)

	// ReadAny mirrors Read.
	chunk, err = c.ReadAny(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunk)
	assert.True(t, c.AtEOF())
}

func TestChunksQueueSlicesIterator(t *testing.T) {
	c := NewChunksQueue()
	require.NoError(t, c.FeedData([]byte("ab"), 2))
	require.NoError(t, c.FeedData([]byte("cd"), 2))
	c.FeedEOF()

	it := c.Slices()
	ctx := context.Background()
	var got []byte
	for {
		chunk, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	assert.Equal(t, []byte("abcd"), got)
}
