package client

import (
	"context"
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/httpclient"
)

// StatusSource answers the poll-on-reconnect questions.
type StatusSource interface {
	Identity(ctx context.Context) (packets.IdentityResponse, error)
	Status(ctx context.Context) (packets.StatusResponse, error)
	Content(ctx context.Context) (packets.ContentResponse, error)
}

// HTTPStatusSource reads the screen API.
type HTTPStatusSource struct {
	client *httpclient.Client
}

var _ StatusSource = (*HTTPStatusSource)(nil)

func NewHTTPStatusSource(baseURL string, timeout time.Duration) *HTTPStatusSource {
	return &HTTPStatusSource{client: httpclient.New(baseURL, timeout)}
}

func (s *HTTPStatusSource) Identity(ctx context.Context) (packets.IdentityResponse, error) {
	var out packets.IdentityResponse
	err := s.client.Get(ctx, "/identity", &out)
	return out, err
}

func (s *HTTPStatusSource) Status(ctx context.Context) (packets.StatusResponse, error) {
	var out packets.StatusResponse
	err := s.client.Get(ctx, "/status", &out)
	return out, err
}

func (s *HTTPStatusSource) Content(ctx context.Context) (packets.ContentResponse, error) {
	var out packets.ContentResponse
	err := s.client.Get(ctx, "/content", &out)
	return out, err
}
