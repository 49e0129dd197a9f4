package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/pkg/observability"
	"github.com/rentdesk/rentdesk/pkg/orgs"
)

func TestNotifierDeliversToAllSubscribers(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	notifier := NewNotifier(logger, 5*time.Second)

	var mu sync.Mutex
	received := make([]string, 0, 2)
	done := make(chan struct{}, 2)

	for _, name := range []string{"first", "second"} {
		name := name
		notifier.Subscribe(func(ctx context.Context, event NewCustomerEvent) error {
			mu.Lock()
			received = append(received, name)
			mu.Unlock()
			done <- struct{}{}
			return nil
		})
	}

	notifier.Publish(context.Background(), NewCustomerEvent{
		User: &orgs.User{ID: 3, Email: "jane@example.com"},
		Org:  &orgs.Org{ID: 7, CleanName: "Acme"},
	})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber was not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first", "second"}, received)
}

func TestNotifierAssignsEventID(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	notifier := NewNotifier(logger, 5*time.Second)

	got := make(chan string, 1)
	notifier.Subscribe(func(ctx context.Context, event NewCustomerEvent) error {
		got <- event.ID
		return nil
	})

	notifier.Publish(context.Background(), NewCustomerEvent{
		User: &orgs.User{ID: 3},
		Org:  &orgs.Org{ID: 7},
	})

	select {
	case id := <-got:
		assert.NotEmpty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not invoked")
	}
}

func TestNotifierSurvivesFailingSubscriber(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	notifier := NewNotifier(logger, 5*time.Second)

	notifier.Subscribe(func(ctx context.Context, event NewCustomerEvent) error {
		return errors.New("downstream unavailable")
	})
	ok := make(chan struct{}, 1)
	notifier.Subscribe(func(ctx context.Context, event NewCustomerEvent) error {
		ok <- struct{}{}
		return nil
	})

	notifier.Publish(context.Background(), NewCustomerEvent{
		User: &orgs.User{ID: 3},
		Org:  &orgs.Org{ID: 7},
	})

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy subscriber was not invoked")
	}
}

func TestWelcomeEmailSubscriber(t *testing.T) {
	m := &fakeMailer{}
	subscriber := NewWelcomeEmailSubscriber(m)

	err := subscriber(context.Background(), NewCustomerEvent{
		User: &orgs.User{Name: "Jane", Email: "jane@example.com"},
		Org:  &orgs.Org{CleanName: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, m.welcomeSent)
}
