package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// EnsureTopics creates the analytics topics if they do not exist yet.
func EnsureTopics(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)

	topics := []string{
		TopicOrderCreated,
		TopicOrderStatus,
		TopicCouponApplied,
	}

	for _, topic := range topics {
		resp, err := adm.CreateTopics(ctx, 3, 1, nil, topic)
		if err != nil {
			return fmt.Errorf("create topic %s: %w", topic, err)
		}
		for _, detail := range resp {
			if detail.Err != nil && !topicExists(detail.Err) {
				return fmt.Errorf("create topic %s: %w", detail.Topic, detail.Err)
			}
		}
	}
	return nil
}

// topicExists matches the broker's TOPIC_ALREADY_EXISTS response, which a
// bootstrap racing another instance treats as success.
func topicExists(err error) bool {
	return errors.Is(err, kerr.TopicAlreadyExists)
}
