package popup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/pkg/logger"
)

// =====================================================
// CROSS-WINDOW NOTIFICATIONS
// =====================================================

const channelPrefix = "checkout:attempt:"

// Subscription nhận message của một attempt cho tới khi Close
type Subscription interface {
	Messages() <-chan model.Message
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, attemptID string) (Subscription, error)
}

// Notifier relay message từ popup qua redis pub/sub
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func channelName(attemptID string) string {
	return channelPrefix + attemptID
}

// Subscribe chỉ trả về sau khi redis xác nhận subscription
func (n *Notifier) Subscribe(ctx context.Context, attemptID string) (Subscription, error) {
	ps := n.rdb.Subscribe(ctx, channelName(attemptID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe attempt %s: %w", attemptID, err)
	}

	sub := &redisSubscription{
		ps:   ps,
		out:  make(chan model.Message),
		done: make(chan struct{}),
	}
	go sub.pump(ps.Channel())
	return sub, nil
}

// Publish trả về số subscriber đã nhận message
func (n *Notifier) Publish(ctx context.Context, attemptID string, msg model.Message) (int64, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshal message: %w", err)
	}
	receivers, err := n.rdb.Publish(ctx, channelName(attemptID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish message: %w", err)
	}
	return receivers, nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan model.Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			var msg model.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logger.Warn("Dropping undecodable popup message", map[string]interface{}{
					"channel": m.Channel,
					"error":   err.Error(),
				})
				continue
			}
			select {
			case s.out <- msg:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan model.Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
