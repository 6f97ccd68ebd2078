package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelPublisherDeliversEnvelope(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := pubSub.Subscribe(ctx, AuditTopic)
	require.NoError(t, err)

	p := NewChannelPublisher(pubSub, "")
	go func() {
		_ = p.Publish(ctx, New(CommandExecuted, map[string]interface{}{"exit_code": 0}))
	}()

	select {
	case msg := <-msgs:
		msg.Ack()
		var env Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &env))
		assert.Equal(t, CommandExecuted, env.Type)
		assert.Equal(t, float64(0), env.Data["exit_code"])
		assert.Equal(t, CommandExecuted, msg.Metadata.Get("event_type"))
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

type recordingPublisher struct {
	got []Event
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiPublisherFansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("nats down")
	a := &recordingPublisher{}
	b := &recordingPublisher{err: boom}

	err := MultiPublisher{a, nil, b}.Publish(context.Background(), New(MemoryCleared, nil))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), New(MemoryCleared, nil)))
}
