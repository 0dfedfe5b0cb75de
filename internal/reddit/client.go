// Package reddit is the adapter for the remote platform: OAuth2
// password-grant authentication, moderation-log listing, content lookup, and
// the ban action. It owns rate limiting and transient-failure retries; the
// rest of the system only sees typed results and the closed error model in
// errors.go.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultAuthURL = "https://www.reddit.com"
	defaultAPIURL  = "https://oauth.reddit.com"

	// maxListingPage is the hard per-request cap the listing API enforces;
	// larger fetches are assembled by walking pages.
	maxListingPage = 100
)

// Credentials holds the script-app OAuth2 material. UserAgent is mandatory:
// the platform throttles anonymous agents aggressively.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// LogFilter narrows a moderation-log listing to one event kind.
type LogFilter struct {
	Action string // e.g. "banuser", "addremovalreason"
	Mod    string // "a" selects platform-admin entries
}

// ModAction is one raw moderation-log event.
type ModAction struct {
	ID             string
	Action         string
	Mod            string
	TargetAuthor   string
	TargetFullname string
	Details        string
	CreatedUTC     int64
}

// Thing is the subset of a content item needed for enrichment: its immutable
// creation time and, for comments, the parent submission.
type Thing struct {
	Fullname   string
	LinkID     string // empty for submissions
	CreatedUTC int64
}

// Client talks to the remote platform. Safe for sequential use within one
// run; the token is refreshed lazily on expiry.
type Client struct {
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	authURL string
	apiURL  string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Option customizes a Client (endpoints are overridable for tests).
type Option func(*Client)

// WithBaseURLs points the client at alternative auth and API endpoints.
func WithBaseURLs(authURL, apiURL string) Option {
	return func(c *Client) {
		c.authURL = strings.TrimRight(authURL, "/")
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a Client with retrying transport, rate limited to the
// platform's ~60 requests/minute allowance.
func NewClient(creds Credentials, log zerolog.Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = retryLogger{log: log}

	c := &Client{
		creds:   creds,
		http:    rc.StandardClient(),
		limiter: rate.NewLimiter(rate.Limit(1), 5), // ~60/min with small bursts
		log:     log,
		authURL: defaultAuthURL,
		apiURL:  defaultAPIURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// retryLogger adapts zerolog to retryablehttp's LeveledLogger.
type retryLogger struct{ log zerolog.Logger }

func (l retryLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }

// bearer returns a valid access token, requesting a new one when missing or
// within a minute of expiry.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.tokenExp) > time.Minute {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request: status %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
		Error       string  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", &APIError{Kind: "INVALID_GRANT", Detail: tok.Error}
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.log.Debug().Msg("reddit login ok")
	return c.token, nil
}

// do performs one authenticated API call and decodes the JSON response into
// out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.creds.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// listing mirrors the API's generic listing envelope.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Before   string `json:"before"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type modActionData struct {
	ID             string  `json:"id"`
	Action         string  `json:"action"`
	Mod            string  `json:"mod"`
	TargetAuthor   string  `json:"target_author"`
	TargetFullname string  `json:"target_fullname"`
	Details        string  `json:"details"`
	CreatedUTC     float64 `json:"created_utc"`
}

type thingData struct {
	Name       string  `json:"name"`
	LinkID     string  `json:"link_id"`
	CreatedUTC float64 `json:"created_utc"`
}

// Me returns the authenticated account's username. Used at startup to verify
// the login before any pass runs.
func (c *Client) Me(ctx context.Context) (string, error) {
	var me struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &me); err != nil {
		return "", err
	}
	return me.Name, nil
}

// ModLog fetches up to limit moderation-log events matching the filter. The
// remote log is newest-first. With a non-empty before cursor the walk moves
// toward newer entries starting just above the cursor, so nothing at or past
// the cursor is refetched; with an empty cursor (full-history bootstrap) the
// walk starts from the newest entry and pages backward. Either walk stops on
// an empty page, an exhausted continuation token, or the limit.
func (c *Client) ModLog(ctx context.Context, subreddit string, f LogFilter, before string, limit int) ([]ModAction, error) {
	var out []ModAction
	pos := before
	forward := before != ""

	for len(out) < limit {
		page := limit - len(out)
		if page > maxListingPage {
			page = maxListingPage
		}
		q := url.Values{
			"limit":    {strconv.Itoa(page)},
			"raw_json": {"1"},
		}
		if f.Action != "" {
			q.Set("type", f.Action)
		}
		if f.Mod != "" {
			q.Set("mod", f.Mod)
		}
		if pos != "" {
			if forward {
				q.Set("before", pos)
			} else {
				q.Set("after", pos)
			}
		}

		var l listing
		if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/about/log", q, nil, &l); err != nil {
			return nil, err
		}
		if len(l.Data.Children) == 0 {
			break
		}
		for _, ch := range l.Data.Children {
			var a modActionData
			if err := json.Unmarshal(ch.Data, &a); err != nil {
				return nil, fmt.Errorf("decode mod action: %w", err)
			}
			out = append(out, ModAction{
				ID:             a.ID,
				Action:         a.Action,
				Mod:            a.Mod,
				TargetAuthor:   a.TargetAuthor,
				TargetFullname: a.TargetFullname,
				Details:        a.Details,
				CreatedUTC:     int64(a.CreatedUTC),
			})
		}

		if forward {
			if l.Data.Before == "" {
				break
			}
			pos = l.Data.Before
		} else {
			if l.Data.After == "" {
				break
			}
			pos = l.Data.After
		}
	}
	return out, nil
}

// Info resolves one content item by fullname. A deleted or unknown item
// yields ErrNotFound.
func (c *Client) Info(ctx context.Context, fullname string) (*Thing, error) {
	q := url.Values{"id": {fullname}, "raw_json": {"1"}}
	var l listing
	if err := c.do(ctx, http.MethodGet, "/api/info", q, nil, &l); err != nil {
		return nil, err
	}
	if len(l.Data.Children) == 0 {
		return nil, ErrNotFound
	}
	var td thingData
	if err := json.Unmarshal(l.Data.Children[0].Data, &td); err != nil {
		return nil, fmt.Errorf("decode thing: %w", err)
	}
	return &Thing{
		Fullname:   td.Name,
		LinkID:     td.LinkID,
		CreatedUTC: int64(td.CreatedUTC),
	}, nil
}

// BanUser issues the ban action. days == nil means permanent (no expiry).
// API-level rejections are returned as *APIError so callers can single out
// the vanished-user kind.
func (c *Client) BanUser(ctx context.Context, subreddit, username string, days *int, note, message string) error {
	form := url.Values{
		"api_type":    {"json"},
		"type":        {"banned"},
		"name":        {username},
		"note":        {note},
		"ban_message": {message},
	}
	if days != nil {
		form.Set("duration", strconv.Itoa(*days))
	}

	var resp struct {
		JSON struct {
			Errors [][]string `json:"errors"`
		} `json:"json"`
	}
	if err := c.do(ctx, http.MethodPost, "/r/"+subreddit+"/api/friend", nil, form, &resp); err != nil {
		return err
	}
	if len(resp.JSON.Errors) > 0 {
		e := resp.JSON.Errors[0]
		ae := &APIError{}
		if len(e) > 0 {
			ae.Kind = e[0]
		}
		if len(e) > 1 {
			ae.Detail = e[1]
		}
		if len(e) > 2 {
			ae.Field = e[2]
		}
		return ae
	}
	return nil
}
