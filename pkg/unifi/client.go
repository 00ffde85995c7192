// Package unifi is a minimal client for the UniFi network controller: it
// logs in, power-cycles PoE switch ports and logs out.
package unifi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/davidroman0O/poecycle/errors"
	"github.com/davidroman0O/poecycle/pkg/config"
)

// DefaultTimeout bounds every request so an unreachable controller is reported
const DefaultTimeout = 30 * time.Second

// Client talks to one controller using a cookie-based session
type Client struct {
	cfg      config.ControllerConfig
	http     *resty.Client
	logger   *slog.Logger
	debug    bool
	timeout  time.Duration
	loggedIn bool
}

// Option configures a Client
type Option func(*Client)

// WithDebug enables request/response tracing
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the controller described by cfg. No request is
// made until Login.
func New(cfg config.ControllerConfig, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:     cfg,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(c.timeout).
		SetCookieJar(jar).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}).
		SetLogger(&restyLogger{l: c.logger}).
		SetDebug(c.debug)

	return c, nil
}

// Close releases the underlying HTTP resources
func (c *Client) Close() {
	c.http.Close()
}

// Login opens a session. Bad credentials and unreachable controllers are
// both reported as auth errors.
func (c *Client) Login(ctx context.Context) error {
	c.logger.Debug("logging in", "url", c.cfg.BaseURL, "username", c.cfg.Username)

	meta, status, err := c.post(ctx, loginPath, loginRequest{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
	if err != nil {
		return errors.WithOp(errors.Wrap(err, errors.ErrAuth,
			fmt.Sprintf("cannot reach controller at %s", c.cfg.BaseURL)), "unifi.Login")
	}
	if status/100 != 2 || meta.RC != rcOK {
		return errors.WithOp(errors.WithContext(
			errors.Newf(errors.ErrAuth, "login as %q rejected (%s)", c.cfg.Username, describe(status, meta)),
			map[string]interface{}{"status": status, "rc": meta.RC},
		), "unifi.Login")
	}

	c.loggedIn = true
	c.logger.Debug("logged in", "url", c.cfg.BaseURL)
	return nil
}

// PowerCycle toggles PoE on port of the switch identified by mac
func (c *Client) PowerCycle(ctx context.Context, mac, port string) error {
	if !c.loggedIn {
		return errors.WithOp(errors.New(errors.ErrController, "not logged in"), "unifi.PowerCycle")
	}

	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return errors.WithOp(errors.WithContext(
			errors.Wrap(err, errors.ErrDeviceInvalidMAC, fmt.Sprintf("invalid switch MAC %q", mac)),
			map[string]interface{}{"mac": mac},
		), "unifi.PowerCycle")
	}

	idx, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || idx < 1 {
		return errors.WithOp(errors.WithContext(
			errors.Newf(errors.ErrDeviceInvalidPort, "invalid port %q: must be a positive integer", port),
			map[string]interface{}{"port": port},
		), "unifi.PowerCycle")
	}

	path := fmt.Sprintf(devmgrPath, c.cfg.Site)
	c.logger.Debug("power cycling port", "path", path, "mac", hw.String(), "port", idx)

	meta, status, err := c.post(ctx, path, devmgrRequest{
		Cmd:     cmdPowerCycle,
		MAC:     hw.String(),
		PortIdx: idx,
	})
	if err != nil {
		return errors.WithOp(errors.Wrap(err, errors.ErrController, "power-cycle request failed"), "unifi.PowerCycle")
	}
	if status/100 != 2 || meta.RC != rcOK {
		return errors.WithOp(errors.WithContext(
			errors.Newf(errors.ErrController, "power-cycle of %s port %d rejected (%s)", hw, idx, describe(status, meta)),
			map[string]interface{}{"status": status, "rc": meta.RC, "mac": hw.String(), "port": idx},
		), "unifi.PowerCycle")
	}
	return nil
}

// Logout closes the session. Calling it without a session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}
	c.loggedIn = false

	meta, status, err := c.post(ctx, logoutPath, struct{}{})
	if err != nil {
		return errors.WithOp(errors.Wrap(err, errors.ErrController, "logout request failed"), "unifi.Logout")
	}
	if status/100 != 2 {
		return errors.WithOp(errors.Newf(errors.ErrController, "logout rejected (%s)", describe(status, meta)), "unifi.Logout")
	}
	c.logger.Debug("logged out", "url", c.cfg.BaseURL)
	return nil
}

// post sends body as JSON and decodes the response envelope. A non-JSON
// body leaves meta empty; callers judge success on status and meta together.
func (c *Client) post(ctx context.Context, path string, body interface{}) (Meta, int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return Meta{}, 0, err
	}

	var env envelope
	raw := resp.String()
	if raw != "" {
		if jerr := json.Unmarshal([]byte(raw), &env); jerr != nil {
			c.logger.Debug("response is not a controller envelope", "path", path, "status", resp.StatusCode())
		}
	}
	return env.Meta, resp.StatusCode(), nil
}

func describe(status int, meta Meta) string {
	switch {
	case meta.Msg != "":
		return fmt.Sprintf("HTTP %d, %s", status, meta.Msg)
	case meta.RC != "":
		return fmt.Sprintf("HTTP %d, rc=%s", status, meta.RC)
	default:
		return fmt.Sprintf("HTTP %d", status)
	}
}
