package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})
	dispatcher.Subscribe(EventTicketCommentAdded, func(_ context.Context, event Event) error {
		t.Fatal("handler for a different type must not fire")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{ID: "event-1", Type: EventTicketCreated})
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, "event-1", received[0].ID)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	calls := 0
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated})
	require.NoError(t, err, "handler failures never reach the publisher")
	require.Equal(t, 2, calls, "a failing handler does not stop the rest")
}

func TestDispatcherNoSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventCategoryCreated}))
}
