package probe

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// ---- test helpers ----

type rawServer struct {
	ln       net.Listener
	port     int
	requests chan string
	release  chan struct{}
	wg       sync.WaitGroup
}

// startRawServer answers every connection with response. When hold is true
// the connection stays open after writing until the test ends.
func startRawServer(t *testing.T, response string, hold bool) *rawServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &rawServer{
		ln:       ln,
		port:     ln.Addr().(*net.TCPAddr).Port,
		requests: make(chan string, 16),
		release:  make(chan struct{}),
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer c.Close()
				var req strings.Builder
				br := bufio.NewReader(c)
				for {
					line, err := br.ReadString('\n')
					req.WriteString(line)
					if err != nil || line == "\r\n" {
						break
					}
				}
				select {
				case s.requests <- req.String():
				default:
				}
				_, _ = c.Write([]byte(response))
				if hold {
					<-s.release
				}
			}(conn)
		}
	}()
	t.Cleanup(func() {
		close(s.release)
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func newTestProber(port int) *ExistenceProber {
	p := NewExistenceProber()
	p.Port = port
	p.ConnectTimeout = 2 * time.Second
	p.ReadTimeout = 2 * time.Second
	return p
}

// ---- tests ----

func TestExistenceProber_InvalidURL(t *testing.T) {
	p := NewExistenceProber()
	for _, in := range []string{"not a url", "", "/only/a/path", "http://[::1"} {
		out := p.Probe(context.Background(), in)
		if out.Outcome != OutcomeFailed {
			t.Fatalf("Probe(%q) outcome=%v want failed", in, out.Outcome)
		}
		if !errors.Is(out.Err, ErrInvalidURL) {
			t.Fatalf("Probe(%q) err=%v want ErrInvalidURL", in, out.Err)
		}
	}
}

func TestExistenceProber_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	p := newTestProber(port)
	start := time.Now()
	out := p.Probe(context.Background(), "http://127.0.0.1/jca2.1.2-src.tgz")
	if out.Outcome != OutcomeFailed {
		t.Fatalf("want failed, got %+v", out)
	}
	if !errors.Is(out.Err, ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", out.Err)
	}
	if !errors.Is(out.Err, syscall.ECONNREFUSED) {
		t.Fatalf("socket error lost from the chain: %v", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("probe should give up within the connect timeout, took %v", elapsed)
	}
	if !ShouldDiagnose(out) {
		t.Fatalf("connection failures should be diagnosable")
	}
}

func TestExistenceProber_StatusLines(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     Outcome
		status   string
	}{
		{"ok", "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n", OutcomeExists, "HTTP/1.1 200 OK"},
		{"not found", "HTTP/1.1 404 Not Found\r\n\r\n", OutcomeNotFound, "HTTP/1.1 404 Not Found"},
		{"redirect", "HTTP/1.1 301 Moved\r\nLocation: /elsewhere\r\n\r\n", OutcomeExists, "HTTP/1.1 301 Moved"},
		{"server error", "HTTP/1.1 500 Internal Server Error\r\n\r\n", OutcomeExists, "HTTP/1.1 500 Internal Server Error"},
		{"404 only in headers", "HTTP/1.1 200 OK\r\nX-Note: 404\r\n\r\n", OutcomeExists, "HTTP/1.1 200 OK"},
		{"no CRLF", "HTTP/1.0 404", OutcomeNotFound, "HTTP/1.0 404"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := startRawServer(t, c.response, false)
			out := newTestProber(srv.port).Probe(context.Background(), "http://127.0.0.1/download/jca.tgz")
			if out.Outcome != c.want {
				t.Fatalf("outcome=%v want %v (err=%v)", out.Outcome, c.want, out.Err)
			}
			if out.StatusLine != c.status {
				t.Fatalf("status line=%q want %q", out.StatusLine, c.status)
			}
			if out.Err != nil {
				t.Fatalf("unexpected err: %v", out.Err)
			}
		})
	}
}

func TestExistenceProber_RequestFraming(t *testing.T) {
	srv := startRawServer(t, "HTTP/1.1 200 OK\r\n\r\n", false)
	url := "http://127.0.0.1/xfd/SoftDist/jca2.1-src.tgz?x=1#top"

	out := newTestProber(srv.port).Probe(context.Background(), url)
	if out.Outcome != OutcomeExists {
		t.Fatalf("want exists, got %+v", out)
	}
	got := <-srv.requests
	want := "HEAD " + url + " HTTP/1.1\r\nHOST: 127.0.0.1\r\nConnection: close\r\n\r\n"
	if got != want {
		t.Fatalf("request mismatch:\nwant=%q\ngot =%q", want, got)
	}
	if out.Host != "127.0.0.1" || out.Path != "/xfd/SoftDist/jca2.1-src.tgz" {
		t.Fatalf("host/path wrong: %q %q", out.Host, out.Path)
	}
}

func TestExistenceProber_PathTargetDefaultsToRoot(t *testing.T) {
	srv := startRawServer(t, "HTTP/1.1 200 OK\r\n\r\n", false)
	p := newTestProber(srv.port)
	p.Target = TargetPath

	out := p.Probe(context.Background(), "http://127.0.0.1")
	if out.Outcome != OutcomeExists {
		t.Fatalf("want exists, got %+v", out)
	}
	if out.Path != "" {
		t.Fatalf("extracted path should stay empty, got %q", out.Path)
	}
	got := <-srv.requests
	if !strings.HasPrefix(got, "HEAD / HTTP/1.1\r\n") {
		t.Fatalf("want origin-form request line, got %q", got)
	}
}

func TestExistenceProber_EmptyResponse(t *testing.T) {
	srv := startRawServer(t, "", false)
	out := newTestProber(srv.port).Probe(context.Background(), "http://127.0.0.1/a.zip")
	if out.Outcome != OutcomeFailed {
		t.Fatalf("want failed, got %+v", out)
	}
	if !errors.Is(out.Err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", out.Err)
	}
}

func TestExistenceProber_LongResponseReadInChunks(t *testing.T) {
	resp := "HTTP/1.1 404 Not Found\r\n" + strings.Repeat("X-Pad: abcdefghijklmnopqrstuvwxyz\r\n", 40) + "\r\n"
	srv := startRawServer(t, resp, false)
	out := newTestProber(srv.port).Probe(context.Background(), "http://127.0.0.1/gone.tgz")
	if out.Outcome != OutcomeNotFound {
		t.Fatalf("want not found, got %+v", out)
	}
}

func TestExistenceProber_ReadDeadlineKeepsStatusLine(t *testing.T) {
	srv := startRawServer(t, "HTTP/1.1 200 OK\r\n", true)
	p := newTestProber(srv.port)
	p.ReadTimeout = 100 * time.Millisecond

	out := p.Probe(context.Background(), "http://127.0.0.1/slow.tgz")
	if out.Outcome != OutcomeExists {
		t.Fatalf("want exists from partial response, got %+v", out)
	}
}

func TestExistenceProber_ReadDeadlineWithoutBytes(t *testing.T) {
	srv := startRawServer(t, "", true)
	p := newTestProber(srv.port)
	p.ReadTimeout = 100 * time.Millisecond

	out := p.Probe(context.Background(), "http://127.0.0.1/stall.tgz")
	if out.Outcome != OutcomeFailed || !errors.Is(out.Err, ErrRead) {
		t.Fatalf("want failed read, got %+v (err=%v)", out, out.Err)
	}
}

func TestExistenceProber_ContextCancelAbortsRead(t *testing.T) {
	srv := startRawServer(t, "HTTP/1.1 200 OK\r\n", true)
	p := newTestProber(srv.port)
	p.ReadTimeout = 0

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	out := p.Probe(ctx, "http://127.0.0.1/cancel.tgz")
	if out.Outcome != OutcomeFailed || !errors.Is(out.Err, ErrRead) {
		t.Fatalf("want failed on cancel, got %+v (err=%v)", out, out.Err)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("context error lost from the chain: %v", out.Err)
	}
}

func TestExistenceProber_Idempotent(t *testing.T) {
	srv := startRawServer(t, "HTTP/1.1 404 Not Found\r\n\r\n", false)
	p := newTestProber(srv.port)

	first := p.Probe(context.Background(), "http://127.0.0.1/jca.zip")
	second := p.Probe(context.Background(), "http://127.0.0.1/jca.zip")
	if first.Outcome != second.Outcome || first.StatusLine != second.StatusLine {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	if len(srv.requests) != 2 {
		t.Fatalf("want one connection per call, got %d", len(srv.requests))
	}
}

func TestExistenceProber_UsesInjectedDialer(t *testing.T) {
	var addr string
	p := NewExistenceProber()
	p.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		addr = address
		return nil, errors.New("boom")
	}
	out := p.Probe(context.Background(), "https://www.example.com:8443/file.tgz")
	if addr != "www.example.com:80" {
		t.Fatalf("scheme and port must be ignored, dialed %q", addr)
	}
	if !errors.Is(out.Err, ErrConnection) {
		t.Fatalf("want ErrConnection, got %v", out.Err)
	}
}

func TestParseRequestTarget(t *testing.T) {
	cases := []struct {
		in      string
		want    RequestTarget
		wantErr bool
	}{
		{"", TargetAbsoluteURL, false},
		{"url", TargetAbsoluteURL, false},
		{"PATH", TargetPath, false},
		{"origin", TargetAbsoluteURL, true},
	}
	for _, c := range cases {
		got, err := ParseRequestTarget(c.in)
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("ParseRequestTarget(%q)=%v,%v", c.in, got, err)
		}
	}
}
