// Package pubsub publishes outbox messages to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/registry"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("at least one pubsub topic is required")
)

// Client owns one Publisher per configured topic. Topics are never created
// here; provisioning them is an infrastructure concern.
type Client struct {
	client *pubsub.Client
	// configured topic id -> projects/<p>/topics/<id>
	topics map[string]string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := resolveTopics(project, cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	ps, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: ps, topics: topics, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", len(topics)), "pubsub client initialized")
	}
	return c, nil
}

// resolveTopics maps each distinct configured topic to its resource name.
// Values already in projects/.../topics/... form are kept as given.
func resolveTopics(project string, cfg config.PubSubConfig) map[string]string {
	out := map[string]string{}
	for _, raw := range []string{cfg.OrdersTopic, cfg.TradesTopic, cfg.ListingsTopic} {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
			out[name] = name
			continue
		}
		out[name] = "projects/" + project + "/topics/" + name
	}
	return out
}

// Ping checks every configured topic exists, in parallel.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	for name, full := range c.topics {
		g.Go(func() error {
			_, err := c.client.TopicAdminClient.GetTopic(gctx, &pubsubpb.GetTopicRequest{Topic: full})
			switch {
			case err == nil:
				return nil
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("topic %q does not exist", name)
			default:
				return fmt.Errorf("checking topic %q: %w", name, err)
			}
		})
	}
	return g.Wait()
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	full, ok := c.topics[strings.TrimSpace(topic)]
	if !ok {
		return nil, registry.NewNonRetryableError(fmt.Errorf("topic %q is not configured for pubsub", topic))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[full]; ok {
		return pub, nil
	}
	pub := c.client.Publisher(full)
	pub.EnableMessageOrdering = true
	c.publishers[full] = pub
	return pub, nil
}

// Publish waits for the server ack. msg.Key is the ordering key so one
// aggregate's events are delivered in order.
func (c *Client) Publish(ctx context.Context, msg outbox.Message) error {
	pub, err := c.publisher(msg.Topic)
	if err != nil {
		return err
	}
	res := pub.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.Key,
	})
	if _, err := res.Get(ctx); err != nil {
		// an ordered publish failure pauses the key until resumed
		pub.ResumePublish(msg.Key)
		return classify(err)
	}
	return nil
}

// classify marks errors no retry can fix so the publisher dead-letters the
// row instead of burning its attempts.
func classify(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return registry.NewNonRetryableError(err)
	default:
		return err
	}
}

// Close flushes pending publishes before releasing the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	clear(c.publishers)
	c.mu.Unlock()
	return c.client.Close()
}
