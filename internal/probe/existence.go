package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort           = 80
	DefaultConnectTimeout = 20 * time.Second
	DefaultReadTimeout    = 30 * time.Second

	readChunk = 128
)

// RequestTarget selects what goes after HEAD on the request line.
type RequestTarget int

const (
	// TargetAbsoluteURL sends the URL exactly as given. This is the
	// historical framing of the download page probe.
	TargetAbsoluteURL RequestTarget = iota
	// TargetPath sends only the path (origin-form), "/" when empty.
	TargetPath
)

// ParseRequestTarget accepts "url" or "path".
func ParseRequestTarget(s string) (RequestTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "url":
		return TargetAbsoluteURL, nil
	case "path":
		return TargetPath, nil
	default:
		return TargetAbsoluteURL, fmt.Errorf("unknown request target %q", s)
	}
}

// ExistenceProber checks a URL with a hand-framed HTTP/1.1 HEAD request
// over a plain TCP connection. The scheme and port of the URL are ignored;
// it always dials Port (80 unless overridden).
type ExistenceProber struct {
	Port           int
	ConnectTimeout time.Duration
	// ReadTimeout bounds the whole read-until-close phase. Zero disables it.
	ReadTimeout time.Duration
	Target      RequestTarget

	// DialContext allows mocking the network connection. If nil, net.Dialer is used.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewExistenceProber() *ExistenceProber {
	return &ExistenceProber{
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		Target:         TargetAbsoluteURL,
	}
}

func (p *ExistenceProber) Probe(ctx context.Context, rawURL string) Result {
	start := time.Now()
	res := Result{URL: rawURL, Outcome: OutcomeFailed}
	done := func() Result {
		res.LatencyMS = time.Since(start).Seconds() * 1000
		return res
	}

	host, path, err := splitURL(rawURL)
	if err != nil {
		res.Err = err
		return done()
	}
	res.Host, res.Path = host, path

	conn, err := p.dial(ctx, host)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s:%d: %w", ErrConnection, host, p.port(), err)
		return done()
	}
	defer conn.Close()

	// cancellation unblocks any pending read or write
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()
	if p.ReadTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(p.ReadTimeout))
	}

	if _, err := io.WriteString(conn, p.request(rawURL, host, path)); err != nil {
		res.Err = fmt.Errorf("%w: write request: %w", ErrConnection, err)
		return done()
	}

	text, err := readAll(conn)
	if ctx.Err() != nil {
		res.Err = fmt.Errorf("%w: %w", ErrRead, ctx.Err())
		return done()
	}
	if err != nil && text == "" {
		res.Err = fmt.Errorf("%w: %w", ErrRead, err)
		return done()
	}

	res.Outcome, res.StatusLine, res.Err = classify(text)
	return done()
}

func (p *ExistenceProber) port() int {
	if p.Port <= 0 {
		return DefaultPort
	}
	return p.Port
}

func (p *ExistenceProber) dial(ctx context.Context, host string) (net.Conn, error) {
	timeout := p.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(p.port()))
	if p.DialContext != nil {
		return p.DialContext(dctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(dctx, "tcp", addr)
}

func (p *ExistenceProber) request(rawURL, host, path string) string {
	target := rawURL
	if p.Target == TargetPath {
		target = path
		if target == "" {
			target = "/"
		}
	}
	var b strings.Builder
	b.WriteString("HEAD " + target + " HTTP/1.1\r\n")
	b.WriteString("HOST: " + host + "\r\n")
	b.WriteString("Connection: close\r\n\r\n")
	return b.String()
}

// readAll accumulates the stream until the peer closes it. A read error
// ends the stream like EOF does; it is returned so the caller can tell an
// empty answer from a broken one.
func readAll(conn net.Conn) (string, error) {
	var (
		sb  strings.Builder
		buf [readChunk]byte
	)
	for {
		n, err := conn.Read(buf[:])
		sb.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

// splitURL returns host and path. Path stays empty when the URL has none.
func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", "", ErrInvalidURL
	}
	return host, u.EscapedPath(), nil
}
