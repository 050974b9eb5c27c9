package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medicarehealth/practice-platform/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// Config holds hosted identity provider settings.
type Config struct {
	BaseURL     string
	AnonKey     string
	ServiceKey  string // elevated key, server-only operations
	RedirectURL string // appended to signup so verification links land back on the site
}

// Client is a typed REST client for the hosted Session Store. It issues
// and refreshes bearer sessions; accounts and verification state live
// entirely on the provider side.
type Client struct {
	baseURL     string
	anonKey     string
	serviceKey  string
	redirectURL string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewClient builds a provider client. A missing base URL or anon key is a
// configuration error: auth endpoints must fail closed, not no-op.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:     cfg.AnonKey,
		serviceKey:  cfg.ServiceKey,
		redirectURL: cfg.RedirectURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

type providerError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (e providerError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges credentials for a bearer session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, map[string]string{
		"email":    email,
		"password": password,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return c.sessionFromToken(&tok), nil
}

// SignUp creates an account, writing the requested role into user
// metadata. The provider withholds the session until the address is
// verified, so callers must not expect to be signed in afterwards.
func (c *Client) SignUp(ctx context.Context, email, password string, role Role) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if role == "" {
		role = RoleUser
	}
	path := "/auth/v1/signup"
	if c.redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(c.redirectURL)
	}
	var user User
	err := c.do(ctx, http.MethodPost, path, c.anonKey, map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"role": string(role)},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Resend asks the provider to re-send the signup verification email.
func (c *Client) Resend(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingEmail
	}
	body := map[string]string{"type": "signup", "email": email}
	if c.redirectURL != "" {
		body["redirect_to"] = c.redirectURL
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/resend", c.anonKey, body, nil)
}

// Refresh renews a bearer session. Callers should treat IsSessionExpired
// errors as a forced sign-out.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", c.anonKey, map[string]string{
		"refresh_token": refreshToken,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return c.sessionFromToken(&tok), nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// User fetches the account record behind an access token.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ConfirmEmail marks an address verified through the provider's admin
// API. Requires the elevated service key; intended for operator use.
func (c *Client) ConfirmEmail(ctx context.Context, email string) error {
	if c.serviceKey == "" {
		return ErrNotConfigured
	}
	if email == "" {
		return ErrMissingEmail
	}
	var listing struct {
		Users []User `json:"users"`
	}
	path := "/auth/v1/admin/users?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, c.serviceKey, nil, &listing); err != nil {
		return err
	}
	for _, u := range listing.Users {
		if strings.EqualFold(u.Email, email) {
			return c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+u.ID, c.serviceKey,
				map[string]bool{"email_confirm": true}, nil)
		}
	}
	return &APIError{Status: http.StatusNotFound, Message: "user not found"}
}

func (c *Client) sessionFromToken(tok *tokenResponse) *Session {
	s := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	if tok.User != nil {
		s.UserID = tok.User.ID
		s.Email = tok.User.Email
		s.Role = ResolveUserRole(tok.User)
	}
	return s
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("identity: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("identity: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var pe providerError
		_ = json.Unmarshal(raw, &pe)
		msg := pe.text()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		c.logger.Warn("identity provider rejected request",
			"path", path, "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("identity: decode response: %w", err)
		}
	}
	return nil
}
