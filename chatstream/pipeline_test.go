package chatstream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmrelay/llmrelay/chat"
)

func TestPipeline_OrderingAndTermination(t *testing.T) {
	producer, consumer := NewPipeline()

	go func() {
		producer.Push(chat.Event{Kind: chat.EventStart})
		producer.Push(chat.Event{Kind: chat.EventTextStart, ContentIndex: 0})
		producer.Push(chat.Event{Kind: chat.EventTextDelta, ContentIndex: 0, TextDelta: "Hel"})
		producer.Push(chat.Event{Kind: chat.EventTextDelta, ContentIndex: 0, TextDelta: "lo"})
		producer.Push(chat.Event{Kind: chat.EventTextEnd, ContentIndex: 0})
		producer.Finish(chat.AssistantMessage{
			Content:    []chat.ContentBlock{chat.TextBlock{Text: "Hello"}},
			StopReason: chat.StopReasonStop,
		}, nil)
	}()

	events, message, err := consumer.Drain()
	require.NoError(t, err)

	wantKinds := []chat.EventKind{
		chat.EventStart, chat.EventTextStart, chat.EventTextDelta, chat.EventTextDelta, chat.EventTextEnd,
	}
	require.Len(t, events, len(wantKinds))
	for i, want := range wantKinds {
		assert.Equalf(t, want, events[i].Kind, "events[%d].Kind", i)
	}

	assert.Equal(t, chat.StopReasonStop, message.StopReason)
}

func TestPipeline_PushAfterFinishIsNoOp(t *testing.T) {
	producer, consumer := NewPipeline()

	producer.Push(chat.Event{Kind: chat.EventStart})
	producer.Finish(chat.AssistantMessage{StopReason: chat.StopReasonStop}, nil)
	producer.Push(chat.Event{Kind: chat.EventTextStart})

	events, _, err := consumer.Drain()
	require.NoError(t, err)
	assert.Len(t, events, 1, "push after finish should be a no-op")
}

func TestPipeline_FinishIsIdempotent(t *testing.T) {
	producer, consumer := NewPipeline()

	producer.Finish(chat.AssistantMessage{StopReason: chat.StopReasonStop}, nil)
	producer.Finish(chat.AssistantMessage{StopReason: chat.StopReasonError}, errors.New("too late"))

	message, err := consumer.Result()
	require.NoError(t, err, "second Finish should be ignored")
	assert.Equal(t, chat.StopReasonStop, message.StopReason, "first Finish wins")
}

func TestPipeline_Abort(t *testing.T) {
	producer, consumer := NewPipeline()

	cause := errors.New("context canceled")
	go func() {
		producer.Push(chat.Event{Kind: chat.EventStart})
		defer producer.Abort(chat.AssistantMessage{Content: []chat.ContentBlock{chat.TextBlock{Text: "partial"}}}, cause)
	}()

	message, err := consumer.Result()
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, chat.StopReasonAborted, message.StopReason)
}

func TestPipeline_ConcurrentProducerConsumer(t *testing.T) {
	producer, consumer := NewPipeline()

	const eventCount = 500
	go func() {
		for i := 0; i < eventCount; i++ {
			producer.Push(chat.Event{Kind: chat.EventTextDelta, ContentIndex: i})
		}
		producer.Finish(chat.AssistantMessage{StopReason: chat.StopReasonStop}, nil)
	}()

	received := 0
	for event := range consumer.Iter() {
		require.Equal(t, received, event.ContentIndex, "events arrived out of order")
		received++
	}
	require.Equal(t, eventCount, received)

	resultDone := make(chan error, 1)
	go func() {
		_, err := consumer.Result()
		resultDone <- err
	}()
	select {
	case err := <-resultDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Result() did not become available after Iter drained")
	}
}
