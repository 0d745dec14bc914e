package mq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Subscriber is anything that can be subscribed to by plan id. M is the
// message type the subscription yields.
type Subscriber[M any] interface {
	Subscribe(uuid.UUID) (uuid.UUID, <-chan M, error)
	DeSubscribe(id uuid.UUID) error
}

// SubscribeProcessor subscribes to a topic, transforms each message and
// forwards the result to outputStream until the context is done or the
// subscription closes. The transform can drop a message by returning
// skip=true. The output stream is closed when the processor exits.
func SubscribeProcessor[S Subscriber[M], M any, O any](
	topicID uuid.UUID,
	ctx context.Context,
	service S,
	transformFunc func(msg M) (O, bool, error),
	outputStream chan<- O,
) {
	go func() {
		uid, inputCh, err := service.Subscribe(topicID)
		if err != nil {
			close(outputStream)
			return
		}

		defer func() {
			if err := service.DeSubscribe(uid); err != nil {
				fmt.Printf("Error de-subscribing %s: %v\n", uid, err)
			}
			close(outputStream)
		}()

		for {
			select {
			case msg, ok := <-inputCh:
				if !ok {
					return
				}

				output, skip, err := transformFunc(msg)
				if err != nil {
					continue
				}
				if skip {
					continue
				}

				select {
				case outputStream <- output:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}
