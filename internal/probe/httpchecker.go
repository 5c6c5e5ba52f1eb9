package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ClientProber is the net/http flavour of the existence check. It honours
// the URL's scheme and port, never follows redirects and classifies the
// status line with the same "404" rule as ExistenceProber.
type ClientProber struct {
	Client *http.Client
}

func NewClientProber(timeout time.Duration) *ClientProber {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &ClientProber{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *ClientProber) Probe(ctx context.Context, target string) Result {
	start := time.Now()
	res := Result{URL: target, Outcome: OutcomeFailed}

	host, path, err := splitURL(target)
	if err != nil {
		res.Err = err
		res.LatencyMS = time.Since(start).Seconds() * 1000
		return res
	}
	res.Host, res.Path = host, path

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrInvalidURL, err)
		res.LatencyMS = time.Since(start).Seconds() * 1000
		return res
	}

	resp, err := c.Client.Do(req)
	res.LatencyMS = time.Since(start).Seconds() * 1000
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrConnection, err)
		return res
	}
	defer resp.Body.Close()

	res.Outcome, res.StatusLine, res.Err = classify(resp.Proto + " " + resp.Status)
	return res
}
