package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// SSETransport reads GET /events. The stream itself has no deadline; only
// the response headers are bounded by the request timeout.
type SSETransport struct {
	url    string
	client *http.Client
}

var _ Transport = (*SSETransport)(nil)

func NewSSETransport(baseURL string, headerTimeout time.Duration) *SSETransport {
	return &SSETransport{
		url: strings.TrimRight(baseURL, "/") + "/events",
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

func (t *SSETransport) Connect(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status code: %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	return &sseStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Next returns the next event or keepalive. Comment lines count as
// keepalives; unnamed and named events are both accepted.
func (s *sseStream) Next(ctx context.Context) (Frame, error) {
	var data []string
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return Frame{}, fmt.Errorf("%w: read event stream: %v", model.ErrChannel, err)
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			return decodeFrame([]byte(strings.Join(data, "\n")))
		case strings.HasPrefix(line, ":"):
			if len(data) == 0 {
				return Frame{Keepalive: true}, nil
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:, id: and retry: fields carry nothing the client needs
		}
	}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
