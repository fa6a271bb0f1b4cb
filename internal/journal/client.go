package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/logger"
	"github.com/goxa2020/journal-bot/internal/metrics"
	"github.com/goxa2020/journal-bot/internal/model"
	"github.com/goxa2020/journal-bot/pkg/errors"

	"github.com/rs/zerolog"
)

// Portal endpoint paths. Fixed by the edu-tpi API, not configurable.
const (
	fingerprintPath = "/api/UserInfo/Devices/RandomIdentity"
	authPath        = "/api/tokenauth"
	journalListPath = "/api/Journals/JournalList"
	journalPath     = "/api/Journals/Journal"
)

// Client issues the remote calls one sync run needs: anonymous fingerprint,
// authentication, per-semester journal list, per-journal detail.
type Client interface {
	Fingerprint(ctx context.Context) (string, error)
	Authenticate(ctx context.Context, login, password, fingerprint string) (string, error)
	JournalList(ctx context.Context, token, year string, semester int) ([]model.JournalSummary, error)
	JournalDetail(ctx context.Context, token string, journalID int64) (*model.JournalPayload, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.Portal.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Portal.Timeout,
		},
		log: logger.Get(),
	}
}

func (c *HTTPClient) Fingerprint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fingerprintPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create fingerprint request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PortalRequest("fingerprint", false)
		return "", errors.NewTransportError("fingerprint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PortalRequest("fingerprint", false)
		return "", errors.NewTransportError("fingerprint", fmt.Errorf("status %d", resp.StatusCode))
	}

	var fpResp model.FingerprintResponse
	if err := json.NewDecoder(resp.Body).Decode(&fpResp); err != nil {
		metrics.PortalRequest("fingerprint", false)
		return "", errors.NewTransportError("fingerprint", err)
	}

	fp := fpResp.Data.RandomIdentity.String()
	if fp == "" {
		metrics.PortalRequest("fingerprint", false)
		return "", errors.NewTransportError("fingerprint", fmt.Errorf("empty randomIdentity"))
	}

	metrics.PortalRequest("fingerprint", true)
	return fp, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, login, password, fingerprint string) (string, error) {
	body, err := json.Marshal(model.AuthRequest{
		Fingerprint: fingerprint,
		UserName:    login,
		Password:    password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PortalRequest("auth", false)
		return "", errors.NewTransportError("auth", err)
	}
	defer resp.Body.Close()

	// A non-2xx status on the auth endpoint means the portal rejected the
	// credentials, not that it is unreachable.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PortalRequest("auth", false)
		c.log.Debug().Int("status", resp.StatusCode).Msg("Portal rejected credentials")
		return "", fmt.Errorf("auth status %d: %w", resp.StatusCode, errors.ErrInvalidCredentials)
	}

	var authResp model.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		metrics.PortalRequest("auth", false)
		return "", errors.NewTransportError("auth", err)
	}

	if authResp.Data.AccessToken == "" {
		metrics.PortalRequest("auth", false)
		return "", fmt.Errorf("no accessToken in auth response: %w", errors.ErrInvalidCredentials)
	}

	metrics.PortalRequest("auth", true)
	return authResp.Data.AccessToken, nil
}

func (c *HTTPClient) JournalList(ctx context.Context, token, year string, semester int) ([]model.JournalSummary, error) {
	params := url.Values{}
	params.Set("year", year)
	params.Set("sem", strconv.Itoa(semester))
	params.Set("prepID", "undefined")
	params.Set("groupID", "undefined")
	params.Set("typeJournal", "1")

	var listResp model.JournalListResponse
	if err := c.getAuthorized(ctx, "journal_list", journalListPath, params, token, &listResp); err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("year", year).
		Int("semester", semester).
		Int("count", len(listResp.Data.ReturnList)).
		Msg("Fetched journal list")

	return listResp.Data.ReturnList, nil
}

func (c *HTTPClient) JournalDetail(ctx context.Context, token string, journalID int64) (*model.JournalPayload, error) {
	params := url.Values{}
	params.Set("journalID", strconv.FormatInt(journalID, 10))

	var payload model.JournalPayload
	if err := c.getAuthorized(ctx, "journal_detail", journalPath, params, token, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// getAuthorized performs a bearer-token GET and decodes the response. An
// unauthorized status signals that the session was revoked mid-run.
func (c *HTTPClient) getAuthorized(ctx context.Context, op, path string, params url.Values, token string, out interface{}) error {
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PortalRequest(op, false)
		return errors.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		metrics.PortalRequest(op, false)
		return fmt.Errorf("%s status 401: %w", op, errors.ErrSessionExpired)
	case resp.StatusCode != http.StatusOK:
		metrics.PortalRequest(op, false)
		return errors.NewTransportError(op, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.PortalRequest(op, false)
		return errors.NewTransportError(op, err)
	}

	metrics.PortalRequest(op, true)
	return nil
}
