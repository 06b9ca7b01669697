package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/httpclient"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// ScreenClient talks to the screen API of one screen at a time.
type ScreenClient interface {
	Claim(ctx context.Context, screenURL string, req packets.ClaimRequest) error
	Release(ctx context.Context, screenURL, screenID string) error
	PushContent(ctx context.Context, screenURL, screenID string, slides []model.Slide) error
	Rename(ctx context.Context, screenURL, screenID, name string) error
}

// HTTPScreenClient is the ScreenClient used in production.
type HTTPScreenClient struct {
	timeout time.Duration
}

var _ ScreenClient = (*HTTPScreenClient)(nil)

func NewHTTPScreenClient(timeout time.Duration) *HTTPScreenClient {
	return &HTTPScreenClient{timeout: timeout}
}

func (c *HTTPScreenClient) Claim(ctx context.Context, screenURL string, req packets.ClaimRequest) error {
	return c.call(ctx, screenURL, func(client *httpclient.Client) error {
		return client.Post(ctx, "/claim", req, nil)
	})
}

func (c *HTTPScreenClient) Release(ctx context.Context, screenURL, screenID string) error {
	return c.call(ctx, screenURL, func(client *httpclient.Client) error {
		return client.Post(ctx, "/release", packets.ReleaseRequest{ScreenID: screenID}, nil)
	})
}

func (c *HTTPScreenClient) PushContent(ctx context.Context, screenURL, screenID string, slides []model.Slide) error {
	return c.call(ctx, screenURL, func(client *httpclient.Client) error {
		return client.Post(ctx, "/content", packets.ContentRequest{ScreenID: screenID, Content: slides}, nil)
	})
}

func (c *HTTPScreenClient) Rename(ctx context.Context, screenURL, screenID, name string) error {
	return c.call(ctx, screenURL, func(client *httpclient.Client) error {
		return client.Put(ctx, "/name", packets.RenameRequest{ScreenID: screenID, Name: name}, nil)
	})
}

// call maps an error body from the screen back onto the domain sentinels and
// reports unreachable screens as channel errors.
func (c *HTTPScreenClient) call(ctx context.Context, screenURL string, do func(*httpclient.Client) error) error {
	err := do(httpclient.New(screenURL, c.timeout))
	if err == nil {
		return nil
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		var body api.ErrorResponse
		if json.Unmarshal([]byte(se.Body), &body) == nil {
			if sentinel := api.ReasonError(body.Error); sentinel != nil {
				return sentinel
			}
		}
	}
	return fmt.Errorf("%w: screen at %s: %v", model.ErrChannel, screenURL, err)
}
