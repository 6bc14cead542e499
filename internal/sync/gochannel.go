package sync

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// GoChannelTransport is the native broadcast transport: a Watermill
// GoChannel pub/sub that fans every event out to all subscribers in the
// process. This mirrors a browser BroadcastChannel for tabs that share a
// runtime.
type GoChannelTransport struct {
	pubSub *gochannel.GoChannel
	topic  string
}

// NewGoChannelTransport creates an in-process broadcast transport.
func NewGoChannelTransport(logger *slog.Logger) *GoChannelTransport {
	return &GoChannelTransport{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(logger)),
		topic: ChannelName,
	}
}

func (t *GoChannelTransport) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return t.pubSub.Publish(t.topic, msg)
}

func (t *GoChannelTransport) Subscribe(ctx context.Context) (<-chan []byte, error) {
	messages, err := t.pubSub.Subscribe(ctx, t.topic)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range messages {
			select {
			case out <- msg.Payload:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()

	return out, nil
}

func (t *GoChannelTransport) Close() error {
	return t.pubSub.Close()
}
