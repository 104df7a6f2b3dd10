package loot

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/lootscope/pkg/whttp"
)

// Source fetches one raw page of upstream data per call.
type Source interface {
	FetchPage(ctx context.Context, index int) (string, error)
}

// HTTPSource reads pages from the upstream loot API.
type HTTPSource struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewHTTPSource(baseURL string, client *retryablehttp.Client) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPSource{baseURL: baseURL, client: client}
}

func (s *HTTPSource) FetchPage(ctx context.Context, index int) (string, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    PageURL(s.baseURL, index),
	}, s.client)
	if err != nil {
		return "", err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("page %d: unexpected status code %d", index, res.StatusCode)
	}

	return res.BodyString, nil
}
