package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config holds settings for the directory admin API client.
type Config struct {
	BaseURL    string        `env:"DIRECTORY_BASE_URL,required"`           // BaseURL is the root of the directory admin API.
	AdminToken string        `env:"DIRECTORY_ADMIN_TOKEN,required"`        // AdminToken authorizes admin operations.
	Timeout    time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"10s"`    // Timeout bounds each admin call.
	UserAgent  string        `env:"DIRECTORY_USER_AGENT" envDefault:"canonid"` // UserAgent identifies this service to the directory.
}

// AdminClient implements Directory against an HTTP admin API.
type AdminClient struct {
	cfg    Config
	client *http.Client
}

// NewAdminClient creates a directory admin client from config.
func NewAdminClient(cfg Config) (*AdminClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("directory: BaseURL is required")
	}
	if cfg.AdminToken == "" {
		return nil, errors.New("directory: AdminToken is required")
	}
	return &AdminClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type identityPayload struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	Email         string        `json:"email"`
	EmailVerified bool          `json:"emailVerified"`
	Native        bool          `json:"native"`
	Providers     []providerRef `json:"providers,omitempty"`
	LinkedTo      string        `json:"linkedTo,omitempty"`
}

type providerRef struct {
	Provider string `json:"provider"`
	UserID   string `json:"userId"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p identityPayload) identity() Identity {
	refs := make([]ProviderRef, 0, len(p.Providers))
	for _, r := range p.Providers {
		refs = append(refs, ProviderRef{Provider: r.Provider, UserID: r.UserID})
	}
	return Identity{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		Native:        p.Native,
		Providers:     refs,
		LinkedTo:      p.LinkedTo,
	}
}

func (c *AdminClient) FindByEmail(ctx context.Context, normalizedEmail string) ([]Identity, error) {
	u := fmt.Sprintf("%s/admin/identities?email=%s", c.cfg.BaseURL, url.QueryEscape(normalizedEmail))

	var payload []identityPayload
	if err := c.do(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return nil, err
	}

	out := make([]Identity, 0, len(payload))
	for _, p := range payload {
		out = append(out, p.identity())
	}
	return out, nil
}

func (c *AdminClient) FindByID(ctx context.Context, identityID string) (Identity, error) {
	u := fmt.Sprintf("%s/admin/identities/%s", c.cfg.BaseURL, url.PathEscape(identityID))

	var payload identityPayload
	if err := c.do(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return Identity{}, err
	}
	return payload.identity(), nil
}

func (c *AdminClient) CreateNative(ctx context.Context, normalizedEmail string) (Identity, error) {
	u := c.cfg.BaseURL + "/admin/identities"
	body := map[string]any{"email": normalizedEmail, "native": true}

	var payload identityPayload
	if err := c.do(ctx, http.MethodPost, u, body, &payload); err != nil {
		return Identity{}, err
	}
	return payload.identity(), nil
}

func (c *AdminClient) LinkProvider(ctx context.Context, nativeUsername string, src ProviderRef) error {
	u := fmt.Sprintf("%s/admin/identities/%s/links", c.cfg.BaseURL, url.PathEscape(nativeUsername))
	body := map[string]any{"provider": src.Provider, "userId": src.UserID}
	return c.do(ctx, http.MethodPost, u, body, nil)
}

func (c *AdminClient) SetPassword(ctx context.Context, username, password string) error {
	u := fmt.Sprintf("%s/admin/identities/%s/password", c.cfg.BaseURL, url.PathEscape(username))
	body := map[string]any{"password": password, "permanent": true}
	return c.do(ctx, http.MethodPut, u, body, nil)
}

func (c *AdminClient) do(ctx context.Context, method, u string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var ep errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&ep)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrIdentityNotFound
	case resp.StatusCode == http.StatusConflict && ep.Code == "already_linked":
		return ErrAlreadyLinked
	case resp.StatusCode == http.StatusConflict && ep.Code == "link_conflict":
		return ErrLinkConflict
	case resp.StatusCode == http.StatusConflict:
		return ErrIdentityExists
	default:
		return fmt.Errorf("directory: %s %s returned %d (%s)", method, u, resp.StatusCode, ep.Code)
	}
}
