package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	published int
	delivered int
	lastErr   error
}

func (o *testObserver) OnPublish(string, Event) { o.published++ }

func (o *testObserver) OnDelivered(_ string, _ Event, handlers int, err error) {
	o.delivered += handlers
	o.lastErr = err
}

func TestPublishSubscribe(t *testing.T) {
	b := New()
	var got []any
	_, err := b.Subscribe("collision", func(e Event) error {
		got = append(got, e.Data())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("collision", "test", 7)))
	require.NoError(t, b.Publish(NewEvent("reset", "test", 8)))
	assert.Equal(t, []any{7}, got)
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := range 20 {
		_, err := b.Subscribe("tick", func(Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, b.Publish(NewEvent("tick", "test", nil)))
	for i, v := range order {
		require.Equal(t, i, v)
	}
	assert.Len(t, order, 20)
}

func TestAnyTypeReceivesEverything(t *testing.T) {
	b := New()
	var types []string
	_, err := b.SubscribeTopic("ep", AnyType, func(e Event) error {
		types = append(types, e.Type())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.PublishBatch("ep",
		NewEvent("lane_change", "test", nil),
		NewEvent("collision", "test", nil),
	))
	require.NoError(t, b.Publish(NewEvent("reset", "test", nil)))
	assert.Equal(t, []string{"lane_change", "collision"}, types)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "test", nil))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestFiltersAndCancel(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("passed", func(Event) error { count++; return nil },
		func(e Event) bool { return e.Data().(int) > 1 })
	require.NoError(t, err)

	_ = b.Publish(NewEvent("passed", "test", 1))
	_ = b.Publish(NewEvent("passed", "test", 2))
	assert.Equal(t, 1, count)

	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	assert.False(t, sub.IsActive())
	_ = b.Publish(NewEvent("passed", "test", 3))
	assert.Equal(t, 1, count)
	assert.Empty(t, b.GetTopics())
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	b := New()
	_, err := b.Subscribe("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
	_, err = b.Subscribe("", func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyType)
	assert.ErrorIs(t, b.Publish(NewEvent("", "test", nil)), ErrUntypedEvent)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	var c1, c2 int
	_, _ = b.SubscribeTopic("t1", "ev", func(Event) error { c1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(Event) error { c2++; return nil })
	require.NoError(t, b.PublishToTopic("t1", NewEvent("ev", "test", nil)))
	assert.Equal(t, 1, c1)
	assert.Equal(t, 0, c2)
	assert.Equal(t, []TopicInfo{{Name: "t1", Subs: 1}, {Name: "t2", Subs: 1}}, b.GetTopics())
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(Event) error { return nil })
	_ = b.Publish(NewEvent("e", "test", nil))
	assert.Zero(t, b.GetMetrics())

	obs := &testObserver{}
	b.AddObserver(obs)
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "test", nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, 1, obs.published)
	assert.Equal(t, 1, obs.delivered)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "test", nil))
	assert.Equal(t, 1, obs.published)
}
