// Package pubsub owns the Pub/Sub v2 connection used by the outbox relay.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	ErrProjectRequired = errors.New("pubsub: gcp project id is required")
	ErrNoTopics        = errors.New("pubsub: at least one topic is required")
	ErrTopicMissing    = errors.New("pubsub: topic does not exist")
	errClosed          = errors.New("pubsub: client not initialized")
)

// Client verifies a fixed set of topics at startup and caches one ordered
// publisher per topic.
type Client struct {
	conn    *gcppubsub.Client
	project string
	topics  []string

	mu    sync.Mutex
	cache map[string]*gcppubsub.Publisher
}

// ClientOptions turns the credential and endpoint settings into SDK options.
// Inline JSON wins over a credentials file.
func ClientOptions(gcp config.GCPConfig, ps config.PubSubConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	if endpoint := strings.TrimSpace(ps.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// NewClient dials Pub/Sub for project and fails unless every topic exists.
// PUBSUB_EMULATOR_HOST is honoured by the underlying SDK.
func NewClient(ctx context.Context, project string, topics []string, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, ErrProjectRequired
	}
	resolved := make([]string, 0, len(topics))
	for _, t := range topics {
		if full := TopicResourceName(project, t); full != "" {
			resolved = append(resolved, full)
		}
	}
	if len(resolved) == 0 {
		return nil, ErrNoTopics
	}

	conn, err := gcppubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: dial: %w", err)
	}
	c := &Client{conn: conn, project: project, topics: resolved}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", resolved), "pubsub client ready")
	}
	return c, nil
}

// Ping checks that every configured topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errClosed
	}
	var errs []error
	for _, full := range c.topics {
		_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			errs = append(errs, fmt.Errorf("%w: %s", ErrTopicMissing, full))
		default:
			errs = append(errs, fmt.Errorf("pubsub: get topic %s: %w", full, err))
		}
	}
	return errors.Join(errs...)
}

// Publisher returns the cached publisher for a topic ID or resource name.
// Message ordering is on so one order's events arrive in queue order.
func (c *Client) Publisher(topic string) *gcppubsub.Publisher {
	if c == nil || c.conn == nil {
		return nil
	}
	full := TopicResourceName(c.project, topic)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.cache[full]; p != nil {
		return p
	}
	p := c.conn.Publisher(full)
	p.EnableMessageOrdering = true
	if c.cache == nil {
		c.cache = make(map[string]*gcppubsub.Publisher)
	}
	c.cache[full] = p
	return p
}

// Close flushes every cached publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.cache {
		p.Stop()
	}
	c.cache = nil
	c.mu.Unlock()
	return c.conn.Close()
}

// TopicResourceName expands a bare topic ID to projects/<p>/topics/<id>.
// Full resource names pass through untouched.
func TopicResourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
