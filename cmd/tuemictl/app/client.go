package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// client is a minimal JSON client of the tuemi-server API that signs in once
// and keeps the session cookie.
type client struct {
	base string
	http *http.Client
}

func newClient(ctx context.Context, g *globalOptions) (*client, error) {
	if g.email == "" || g.password == "" {
		return nil, errors.New("--email and --password (or TUEMI_EMAIL and TUEMI_PASSWORD) are required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &client{
		base: strings.TrimRight(g.server, "/") + "/api/v1",
		http: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}

	creds := map[string]string{"email": g.email, "password": g.password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, nil); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return c, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
