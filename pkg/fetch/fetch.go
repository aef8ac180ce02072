package fetch

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultHostDelay is the minimum spacing between two requests to the same
// host. Podcast CDNs are quick to throttle clients that hammer them during a
// bulk refresh.
const DefaultHostDelay = 5 * time.Second

// Client is an HTTP client that spaces out requests per host. It replaces a
// process-wide request queue with an explicitly constructed object that is
// passed to every collaborator which talks to the network.
type Client struct {
	http      *http.Client
	userAgent string
	delay     time.Duration

	mu   sync.Mutex
	next map[string]time.Time
}

func New(userAgent string, delay time.Duration) *Client {
	if delay <= 0 {
		delay = DefaultHostDelay
	}

	return &Client{
		http:      &http.Client{Timeout: 10 * time.Minute},
		userAgent: userAgent,
		delay:     delay,
		next:      map[string]time.Time{},
	}
}

// Get performs a GET request, waiting for the host's slot first. Responses
// with a non-2xx status are closed and reported as errors.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid url %q", rawURL)
	}

	if err := c.wait(ctx, parsed.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %q", rawURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Errorf("%q returned status %d", rawURL, resp.StatusCode)
	}

	return resp, nil
}

// wait reserves the next request slot for the host and sleeps until it opens.
// Concurrent callers to the same host queue up behind each other.
func (c *Client) wait(ctx context.Context, host string) error {
	c.mu.Lock()
	now := time.Now()
	at := c.next[host]
	if at.Before(now) {
		at = now
	}
	c.next[host] = at.Add(c.delay)
	c.mu.Unlock()

	if wait := time.Until(at); wait > 0 {
		log.Debugf("waiting %s for a request slot on %q", wait.Round(time.Millisecond), host)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
