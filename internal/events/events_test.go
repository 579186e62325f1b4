package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err, "starting embedded NATS")
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func subscribe(t *testing.T, url, subject string, buf int) chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, buf)
	_, err = nc.ChanSubscribe(subject, ch)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return ch
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNoopPublisher(t *testing.T) {
	pub := &NoopPublisher{}
	assert.NoError(t, pub.Publish(context.Background(), TopicEventCreated, EventCreated{}))
	assert.NoError(t, pub.Close())
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)
	ch := subscribe(t, url, TopicRegistrationClosed, 1)

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	err = pub.Publish(context.Background(), TopicRegistrationClosed,
		RegistrationClosed{EventID: 7, Reason: ReasonCapacity})
	require.NoError(t, err)
	require.NoError(t, pub.conn.Flush())

	select {
	case msg := <-ch:
		var got RegistrationClosed
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, int64(7), got.EventID)
		assert.Equal(t, ReasonCapacity, got.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_WildcardReceivesAllTopics(t *testing.T) {
	url := startTestNATS(t)
	ch := subscribe(t, url, "kayak.>", 4)

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicEventCreated, EventCreated{Event: &model.Event{ID: 1, Name: "Dawn"}}},
		{TopicSubscriptionApplied, SubscriptionApplied{EventID: 1, CustomerID: "c1", Subscribed: 1}},
		{TopicSubscriptionRemoved, SubscriptionRemoved{EventID: 1, CustomerID: "c1"}},
		{TopicEventDeleted, EventDeleted{EventID: 1}},
	} {
		require.NoError(t, pub.Publish(context.Background(), tc.topic, tc.event), tc.topic)
	}
	require.NoError(t, pub.conn.Flush())

	var subjects []string
	for i := 0; i < 4; i++ {
		select {
		case msg := <-ch:
			subjects = append(subjects, msg.Subject)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	assert.Equal(t, []string{
		TopicEventCreated, TopicSubscriptionApplied, TopicSubscriptionRemoved, TopicEventDeleted,
	}, subjects)
}
