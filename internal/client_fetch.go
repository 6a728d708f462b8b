package internal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rm-hull/authfetch/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultRefreshPath    = "/api/token/refresh/"
	DefaultLoginPath      = "/auth/login"
	DefaultRefreshTimeout = 30 * time.Second
)

var absoluteURL = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// RequestOptions mirrors what a plain HTTP call would take. Body may be a
// string (sent as JSON unless a Content-Type is given), a []byte or an
// io.Reader; the latter two must carry their own Content-Type.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   any
}

type ClientConfig struct {
	HTTPClient     *http.Client
	RefreshPath    string
	LoginPath      string
	RefreshTimeout time.Duration
	Metrics        *Metrics
}

// AuthClient sends requests with the stored access credential attached and
// recovers from a 401 by refreshing the credential and retrying once.
type AuthClient struct {
	store       SessionStore
	origin      OriginResolver
	client      *http.Client
	refreshPath string
	loginPath   string
	metrics     *Metrics

	refreshTimeout time.Duration

	// concurrent 401s share a single refresh call
	refreshGroup singleflight.Group
}

func NewAuthClient(store SessionStore, origin OriginResolver, cfg ClientConfig) *AuthClient {
	ac := &AuthClient{
		store:       store,
		origin:      origin,
		client:      cfg.HTTPClient,
		refreshPath: cfg.RefreshPath,
		loginPath:   cfg.LoginPath,
		metrics:     cfg.Metrics,

		refreshTimeout: cfg.RefreshTimeout,
	}
	if ac.client == nil {
		ac.client = &http.Client{}
	}
	if ac.refreshPath == "" {
		ac.refreshPath = DefaultRefreshPath
	}
	if ac.loginPath == "" {
		ac.loginPath = DefaultLoginPath
	}
	if ac.refreshTimeout <= 0 {
		ac.refreshTimeout = DefaultRefreshTimeout
	}
	return ac
}

func (ac *AuthClient) LoginPath() string {
	return ac.loginPath
}

func (ac *AuthClient) Store() SessionStore {
	return ac.store
}

type preparedRequest struct {
	method string
	url    string
	header http.Header
	body   []byte
}

// Request dispatches path (absolute, or relative to the resolved origin) with
// the session's access credential. Any response other than 401 is returned
// unmodified. A 401 triggers one refresh and one retry, whose response is
// returned as-is. When the session cannot be recovered both credentials are
// cleared and a *SessionExpiredError is returned.
func (ac *AuthClient) Request(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	logger := log.With().Str("request_id", uuid.NewString()).Str("path", path).Logger()

	base := ac.origin.BaseURL()
	fullURL, err := resolveURL(base, path)
	if err != nil {
		ac.metrics.request("error")
		return nil, err
	}

	body, isString, err := readBody(opts.Body)
	if err != nil {
		ac.metrics.request("error")
		return nil, err
	}

	header := opts.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	access, err := ac.store.Get(ctx, AccessSlot)
	if err != nil {
		ac.metrics.request("error")
		return nil, errors.Wrap(err, "failed to read access credential")
	}
	if access != "" && header.Get("Authorization") == "" {
		header.Set("Authorization", "Bearer "+access)
	}

	if isString && len(body) > 0 && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	pr := &preparedRequest{method: method, url: fullURL, header: header, body: body}

	resp, err := ac.dispatch(ctx, pr, logger)
	if err != nil {
		ac.metrics.request("transport_error")
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		ac.metrics.request("ok")
		return resp, nil
	}
	discard(resp)

	logger.Info().Msg("access credential rejected, attempting refresh")
	newAccess, err := ac.recoverSession(ctx, path, base, access, logger)
	if err != nil {
		if _, ok := AsSessionExpired(err); ok {
			ac.metrics.request("session_expired")
		} else {
			ac.metrics.request("transport_error")
		}
		return nil, err
	}

	pr.header.Set("Authorization", "Bearer "+newAccess)
	resp, err = ac.dispatch(ctx, pr, logger)
	if err != nil {
		ac.metrics.request("transport_error")
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		logger.Warn().Msg("request still unauthorized after refresh")
	}
	ac.metrics.request("retried")
	return resp, nil
}

func (ac *AuthClient) recoverSession(ctx context.Context, path, base, staleAccess string, logger zerolog.Logger) (string, error) {
	// A 401 from the refresh endpoint itself means the refresh credential is dead
	if strings.Contains(path, ac.refreshPath) {
		return "", ac.expire(ctx, ReasonRefreshEndpoint, nil)
	}

	// The shared refresh outlives any single caller: once the server has
	// rotated the refresh credential the result must be stored.
	ch := ac.refreshGroup.DoChan("refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ac.refreshTimeout)
		defer cancel()
		return ac.refresh(refreshCtx, base, staleAccess, logger)
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "gave up waiting for refresh")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			ac.metrics.refresh("shared")
		}
		return res.Val.(string), nil
	}
}

func (ac *AuthClient) refresh(ctx context.Context, base, staleAccess string, logger zerolog.Logger) (string, error) {
	current, err := ac.store.Get(ctx, AccessSlot)
	if err != nil {
		return "", errors.Wrap(err, "failed to read access credential")
	}
	if current != "" && current != staleAccess {
		// Rotated by another request since this one was sent
		ac.metrics.refresh("reused")
		return current, nil
	}

	refreshToken, err := ac.store.Get(ctx, RefreshSlot)
	if err != nil {
		return "", errors.Wrap(err, "failed to read refresh credential")
	}
	if refreshToken == "" {
		return "", ac.expire(ctx, ReasonNoRefreshToken, nil)
	}
	if base == "" {
		return "", errors.Wrap(ErrNoOrigin, "cannot reach refresh endpoint")
	}

	payload, err := json.Marshal(models.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal refresh request")
	}

	url := base + ac.refreshPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create refresh request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debug().Msgf("POST %s", url)
	resp, err := ac.client.Do(req)
	if err != nil {
		ac.metrics.refresh("transport_error")
		return "", errors.Wrapf(err, "failed to refresh via %s", url)
	}
	defer discard(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ac.metrics.refresh("rejected")
		return "", ac.expire(ctx, ReasonRefreshRejected,
			&HTTPStatusError{URL: url, Status: resp.Status, StatusCode: resp.StatusCode})
	}

	var data models.RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		ac.metrics.refresh("rejected")
		return "", ac.expire(ctx, ReasonBadRefreshBody, errors.Wrap(err, "failed to unmarshal refresh response"))
	}
	if data.Access == "" {
		ac.metrics.refresh("rejected")
		return "", ac.expire(ctx, ReasonBadRefreshBody, errors.New("refresh response has no access credential"))
	}

	if err := SaveSession(ctx, ac.store, data.Access, data.Refresh); err != nil {
		return "", err
	}
	ac.metrics.refresh("success")
	logger.Info().Bool("rotated", data.Refresh != "").Msg("access credential refreshed")
	return data.Access, nil
}

func (ac *AuthClient) expire(ctx context.Context, reason ExpiryReason, cause error) error {
	if err := ac.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("failed to clear session credentials")
	}
	ac.metrics.expired(reason)
	log.Warn().Str("reason", string(reason)).Msg("session expired, credentials cleared")
	return &SessionExpiredError{Reason: reason, LoginPath: ac.loginPath, Cause: cause}
}

func (ac *AuthClient) dispatch(ctx context.Context, pr *preparedRequest, logger zerolog.Logger) (*http.Response, error) {
	var body io.Reader
	if pr.body != nil {
		body = bytes.NewReader(pr.body)
	}
	req, err := http.NewRequestWithContext(ctx, pr.method, pr.url, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header = pr.header.Clone()

	logger.Debug().Msgf("%s %s", pr.method, pr.url)
	resp, err := ac.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch from %s", pr.url)
	}
	return resp, nil
}

func resolveURL(base, path string) (string, error) {
	if absoluteURL.MatchString(path) {
		return path, nil
	}
	if base == "" {
		return "", errors.Wrapf(ErrNoOrigin, "cannot resolve %q", path)
	}
	return base + path, nil
}

// readBody buffers the body so the request can be sent a second time.
func readBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(b), true, nil
	case []byte:
		return b, false, nil
	case io.Reader:
		if closer, ok := b.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close request body")
				}
			}()
		}
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to read request body")
		}
		return data, false, nil
	default:
		return nil, false, errors.Newf("unsupported request body type %T", body)
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if err := resp.Body.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close body")
	}
}
