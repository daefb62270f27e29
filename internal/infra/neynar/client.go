package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trivia-duel-service/internal/domain"
)

// DefaultBaseURL is the public Neynar API.
const DefaultBaseURL = "https://api.neynar.com"

// Client resolves Farcaster profiles through the Neynar HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type signerResponse struct {
	FID    int64  `json:"fid"`
	Status string `json:"status"`
}

type bulkUsersResponse struct {
	Users []struct {
		FID         int64  `json:"fid"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		PfpURL      string `json:"pfp_url"`
		Profile     struct {
			Bio struct {
				Text string `json:"text"`
			} `json:"bio"`
		} `json:"profile"`
	} `json:"users"`
}

type apiError struct {
	Message string `json:"message"`
}

// LookupBySigner resolves the profile behind a signer handle.
func (c *Client) LookupBySigner(ctx context.Context, signerUUID string) (domain.Profile, error) {
	if signerUUID == "" {
		return domain.Profile{}, domain.Invalid("signer_uuid", "signer_uuid is required")
	}
	if c.apiKey == "" {
		return domain.Profile{}, errors.New("neynar: api key is not set")
	}

	var signer signerResponse
	if err := c.get(ctx, "/v2/farcaster/signer", url.Values{"signer_uuid": {signerUUID}}, &signer); err != nil {
		return domain.Profile{}, err
	}
	if signer.FID == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	var users bulkUsersResponse
	if err := c.get(ctx, "/v2/farcaster/user/bulk", url.Values{"fids": {strconv.FormatInt(signer.FID, 10)}}, &users); err != nil {
		return domain.Profile{}, err
	}
	if len(users.Users) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	u := users.Users[0]
	return domain.Profile{
		FID:         u.FID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		PfpURL:      u.PfpURL,
		Bio:         u.Profile.Bio.Text,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("neynar: build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("neynar: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("neynar: read %s: %w", path, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrProfileNotFound
	case resp.StatusCode >= 300:
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("neynar: %s: %s", path, apiErr.Message)
		}
		return fmt.Errorf("neynar: %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("neynar: decode %s: %w", path, err)
	}
	return nil
}
