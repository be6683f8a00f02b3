// Package v4 is a typed client for the remote Goteo v4 REST API. All
// business logic (accounting, matchfunding, limits) lives on the remote
// side; this client only shapes requests and responses.
package v4

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

type apiResult struct {
	status int
	body   []byte
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[apiResult]
	cache   Cache
	sfg     singleflight.Group
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache memoizes selected GET responses by full URL.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zerolog.Nop(),
	}
	c.breaker = gobreaker.NewCircuitBreaker[apiResult](gobreaker.Settings{
		Name:    "v4-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one API call. 5xx and transport failures count against the
// circuit breaker; 4xx are the caller's problem and do not trip it.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		if method == http.MethodPatch {
			req.Header.Set("Content-Type", "application/merge-patch+json")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.breaker.Execute(func() (apiResult, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return apiResult{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return apiResult{}, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return apiResult{}, newAPIError(resp.StatusCode, data)
		}
		return apiResult{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.status >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %w", method, path, newAPIError(res.status, res.body))
	}

	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// getCached serves a GET through the response cache when one is
// configured, collapsing concurrent misses with singleflight. Cache
// failures degrade to a direct call.
//
// The key is scoped by a digest of the bearer so one caller's cached
// response is never served to a caller holding different credentials.
func (c *Client) getCached(ctx context.Context, path, bearer string, out any) error {
	if c.cache == nil {
		return c.do(ctx, http.MethodGet, path, bearer, nil, out)
	}

	key := c.baseURL + path
	if bearer != "" {
		digest := sha256.Sum256([]byte(bearer))
		key += "#" + hex.EncodeToString(digest[:8])
	}
	data, err, _ := c.sfg.Do(key, func() (any, error) {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			return cached, nil
		}

		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, bearer, nil, &raw); err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, raw); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("response cache write failed")
		}
		return []byte(raw), nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data.([]byte), out)
}

// Forward proxies an arbitrary request to the API, attaching the bearer
// token. The caller owns the response body. Used by the relay endpoint.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType, bearer string) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.http.Do(req)
}

// --- user tokens ---

func (c *Client) CreateUserToken(ctx context.Context, identifier, password string) (*UserToken, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var token UserToken
	if err := c.do(ctx, http.MethodPost, "/v4/user_tokens", "", body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *Client) GetUserToken(ctx context.Context, id int64, bearer string) (*UserToken, error) {
	var token UserToken
	if err := c.do(ctx, http.MethodGet, IRI("user_tokens", id), bearer, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *Client) DeleteUserToken(ctx context.Context, id int64, bearer string) error {
	return c.do(ctx, http.MethodDelete, IRI("user_tokens", id), bearer, nil, nil)
}

// --- users ---

func (c *Client) CreateUser(ctx context.Context, user map[string]any) (*User, error) {
	var created User
	if err := c.do(ctx, http.MethodPost, "/v4/users", "", user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetUser(ctx context.Context, id string, bearer string) (*User, error) {
	var user User
	if err := c.getCached(ctx, IRI("users", id), bearer, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) PatchUser(ctx context.Context, id string, fields map[string]any, bearer string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPatch, IRI("users", id), bearer, fields, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) PatchPerson(ctx context.Context, id string, fields map[string]any, bearer string) error {
	return c.do(ctx, http.MethodPatch, IRI("people", id), bearer, fields, nil)
}

func (c *Client) PatchOrganization(ctx context.Context, id string, fields map[string]any, bearer string) error {
	return c.do(ctx, http.MethodPatch, IRI("organizations", id), bearer, fields, nil)
}

// --- projects and rewards ---

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := c.getCached(ctx, IRI("projects", id), "", &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) ListProjects(ctx context.Context, query url.Values) ([]Project, error) {
	path := "/v4/projects"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var col collection[Project]
	if err := c.do(ctx, http.MethodGet, path, "", nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

func (c *Client) ListProjectRewards(ctx context.Context, projectID string) ([]ProjectReward, error) {
	path := "/v4/project_rewards?project=" + url.QueryEscape(IRI("projects", projectID))
	var col collection[ProjectReward]
	if err := c.do(ctx, http.MethodGet, path, "", nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

// --- accountings ---

func (c *Client) GetAccounting(ctx context.Context, id string, bearer string) (*Accounting, error) {
	var accounting Accounting
	if err := c.getCached(ctx, IRI("accountings", id), bearer, &accounting); err != nil {
		return nil, err
	}
	return &accounting, nil
}

func (c *Client) ListAccountingBalancePoints(ctx context.Context, accountingID, bearer string) ([]AccountingBalancePoint, error) {
	path := IRI("accountings", accountingID) + "/balance_points"
	var col collection[AccountingBalancePoint]
	if err := c.do(ctx, http.MethodGet, path, bearer, nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

func (c *Client) ListAccountingTransactions(ctx context.Context, accountingID, bearer string) ([]AccountingTransaction, error) {
	path := "/v4/accounting_transactions?target=" + url.QueryEscape(IRI("accountings", accountingID))
	var col collection[AccountingTransaction]
	if err := c.do(ctx, http.MethodGet, path, bearer, nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

// --- gateways and checkouts ---

func (c *Client) ListGateways(ctx context.Context) ([]Gateway, error) {
	var col collection[Gateway]
	if err := c.do(ctx, http.MethodGet, "/v4/gateways", "", nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

func (c *Client) CreateGatewayCheckout(ctx context.Context, checkout *GatewayCheckout, bearer string) (*GatewayCheckout, error) {
	var created GatewayCheckout
	if err := c.do(ctx, http.MethodPost, "/v4/gateway_checkouts", bearer, checkout, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetGatewayCheckout(ctx context.Context, id string, bearer string) (*GatewayCheckout, error) {
	var checkout GatewayCheckout
	if err := c.getCached(ctx, IRI("gateway_checkouts", id), bearer, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *Client) ListGatewayCharges(ctx context.Context, checkoutID, bearer string) ([]GatewayCharge, error) {
	path := "/v4/gateway_charges?checkout=" + url.QueryEscape(IRI("gateway_checkouts", checkoutID))
	var col collection[GatewayCharge]
	if err := c.do(ctx, http.MethodGet, path, bearer, nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

// --- tipjars ---

func (c *Client) GetTipjar(ctx context.Context, id string) (*Tipjar, error) {
	var tipjar Tipjar
	if err := c.getCached(ctx, IRI("tipjars", id), "", &tipjar); err != nil {
		return nil, err
	}
	return &tipjar, nil
}

// --- match calls ---

func (c *Client) ListMatchCalls(ctx context.Context) ([]MatchCall, error) {
	var col collection[MatchCall]
	if err := c.do(ctx, http.MethodGet, "/v4/match_calls", "", nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

func (c *Client) GetMatchCall(ctx context.Context, id string) (*MatchCall, error) {
	var call MatchCall
	if err := c.do(ctx, http.MethodGet, IRI("match_calls", id), "", nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) ListMatchCallSubmissions(ctx context.Context, callID string) ([]MatchCallSubmission, error) {
	path := "/v4/match_call_submissions?call=" + url.QueryEscape(IRI("match_calls", callID))
	var col collection[MatchCallSubmission]
	if err := c.do(ctx, http.MethodGet, path, "", nil, &col); err != nil {
		return nil, err
	}
	return col.items(), nil
}

func (c *Client) GetMatchStrategy(ctx context.Context, callID string) (*MatchStrategy, error) {
	var strategy MatchStrategy
	if err := c.do(ctx, http.MethodGet, IRI("match_calls", callID)+"/strategy", "", nil, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}
