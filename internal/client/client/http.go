package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/client/models"
	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/netx"
)

type envelope struct {
	Error      bool            `json:"error"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Logout forgets the session token. Tokens are stateless, so the server is
// not contacted.
func (c *HTTPClient) Logout() {
	c.setToken("")
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/", nil, false, nil)
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", reg, false, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for a session token and keeps it for later
// calls. password is not retained.
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	body := map[string]string{"email": email, "password": string(password)}

	var res loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, false, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("login response has no token")
	}

	c.setToken(res.AccessToken)
	return res.User, nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/profile", nil, true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Upload streams r to POST /media/upload and returns the stored file URL.
func (c *HTTPClient) Upload(ctx context.Context, fileName string, r io.Reader) (string, error) {
	token := c.getToken()
	if token == "" {
		return "", ErrNotLoggedIn
	}

	req, err := netx.NewMultipartFileRequest(ctx, c.baseURL+"/media/upload", "file", fileName, r)
	if err != nil {
		return "", err
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)

	var res struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in any, auth bool, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.getToken()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || env.Error {
		if resp.StatusCode == http.StatusUnauthorized && req.Header.Get(common.AuthorizationHeaderName) != "" {
			c.setToken("")
		}
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
var _ Client = (*HTTPClient)(nil)
