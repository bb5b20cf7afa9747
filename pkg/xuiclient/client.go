package xuiclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/constants"
	apperrors "xui-vpn-bot/internal/errors"
	"xui-vpn-bot/internal/models"
)

// ErrNotFound is returned when no client with the requested email exists
// in the inbound. It is a normal outcome, not a transport failure.
var ErrNotFound = errors.New("client not found")

// Client is a stateful 3x-ui panel API client. It owns the HTTP session,
// the logged-in flag and the inbound cache; all three are guarded by mu so
// the client is safe for concurrent use.
type Client struct {
	httpClient *resty.Client
	cfg        config.PanelConfig
	botName    string
	logger     *logrus.Logger

	mu          sync.Mutex
	loggedIn    bool
	inbound     *models.Inbound
	inboundTime time.Time
	freshness   time.Duration
}

// apiResponse is the envelope every panel API endpoint responds with.
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// NewClient creates a new panel API client. The session is created lazily:
// no network traffic happens until the first operation.
func NewClient(cfg config.PanelConfig, botName string, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(constants.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: !cfg.VerifySSL})

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		botName:    botName,
		logger:     logger,
		freshness:  constants.InboundCacheFreshness,
	}
}

// Close releases the underlying HTTP connections.
func (c *Client) Close() {
	c.httpClient.GetClient().CloseIdleConnections()
}

// login performs a form-encoded credential POST against the panel.
// It updates the logged-in flag and never panics.
func (c *Client) login(ctx context.Context) error {
	c.logger.Infof("Logging in to 3x-ui panel at %s", c.cfg.Host)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
		}).
		Post(c.cfg.Host + "/login")

	if err != nil {
		c.setLoggedIn(false)
		c.logger.Errorf("Login request failed: %v", err)
		return fmt.Errorf("login request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.setLoggedIn(false)
		c.logger.Errorf("Login failed - URL: %s/login, Status: %d", c.cfg.Host, resp.StatusCode())
		return &apperrors.PanelAPIError{Operation: "login", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	c.setLoggedIn(true)
	c.logger.Info("Login successful")
	return nil
}

// ensureLoggedIn logs in if the session is not authenticated yet. A login
// failure is only logged here; the retry wrapper around each operation is
// responsible for surfacing the ultimate failure.
func (c *Client) ensureLoggedIn(ctx context.Context) {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.mu.Unlock()

	if loggedIn {
		return
	}
	if err := c.login(ctx); err != nil {
		c.logger.Warnf("Login attempt failed: %v", err)
	}
}

func (c *Client) setLoggedIn(v bool) {
	c.mu.Lock()
	c.loggedIn = v
	c.mu.Unlock()
}

// resetSession replaces the session cookies with a fresh jar and drops the
// authenticated flag, forcing the next operation to log in again.
func (c *Client) resetSession() {
	jar, err := cookiejar.New(nil)
	if err == nil {
		c.httpClient.SetCookieJar(jar)
	}
	c.setLoggedIn(false)
}

// withRelogin runs fn once and, if it fails with anything but a not-found
// result, assumes the session has silently expired: it resets the session,
// logs in again and reruns fn exactly once. A failed relogin returns the
// original error without a second attempt.
func (c *Client) withRelogin(ctx context.Context, operation string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}

	c.logger.Warnf("%s failed, forcing relogin and retrying once: %v", operation, err)
	c.resetSession()
	if loginErr := c.login(ctx); loginErr != nil {
		c.logger.Errorf("Relogin during %s failed: %v", operation, loginErr)
		return err
	}

	return fn(ctx)
}

// getInbound returns the inbound configuration, serving the cached snapshot
// while it is fresh. forceRefresh bypasses the cache; mutating operations
// use it so the very next read observes their change.
func (c *Client) getInbound(ctx context.Context, forceRefresh bool) (*models.Inbound, error) {
	c.mu.Lock()
	if !forceRefresh && c.inbound != nil && time.Since(c.inboundTime) < c.freshness {
		inbound := c.inbound
		c.mu.Unlock()
		return inbound, nil
	}
	c.mu.Unlock()

	c.ensureLoggedIn(ctx)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/panel/api/inbounds/get/%d", c.cfg.Host, c.cfg.InboundID))

	if err != nil {
		return nil, fmt.Errorf("get inbound request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &apperrors.PanelAPIError{Operation: "get inbound", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse inbound response: %w", err)
	}
	if !apiResp.Success {
		return nil, &apperrors.PanelAPIError{Operation: "get inbound", Status: resp.StatusCode(), Message: apiResp.Msg}
	}

	var inbound models.Inbound
	if err := json.Unmarshal(apiResp.Obj, &inbound); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbound %d: %w", c.cfg.InboundID, err)
	}

	c.mu.Lock()
	c.inbound = &inbound
	c.inboundTime = time.Now()
	c.mu.Unlock()

	return &inbound, nil
}

// invalidateCache drops the cached inbound snapshot.
func (c *Client) invalidateCache() {
	c.mu.Lock()
	c.inbound = nil
	c.mu.Unlock()
}

// refreshCache force-refetches the inbound after a successful mutation.
// The mutation already succeeded, so a refresh failure is only logged.
func (c *Client) refreshCache(ctx context.Context) {
	c.invalidateCache()
	if _, err := c.getInbound(ctx, true); err != nil {
		c.logger.Warnf("Failed to refresh inbound cache: %v", err)
	}
}

// findClient scans the inbound's embedded client list for a
// case-insensitive email match. Malformed settings yield not-found.
func (c *Client) findClient(inbound *models.Inbound, label string) *models.ClientRecord {
	var settings models.ClientSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		c.logger.Errorf("Failed to parse settings of inbound %d: %v", inbound.ID, err)
		return nil
	}

	for i := range settings.Clients {
		if strings.EqualFold(settings.Clients[i].Email, label) {
			return &settings.Clients[i]
		}
	}
	return nil
}

// GetUser returns the client record with the given email, matched
// case-insensitively. Returns ErrNotFound if no such record exists.
func (c *Client) GetUser(ctx context.Context, label string) (*models.ClientRecord, error) {
	var record *models.ClientRecord
	err := c.withRelogin(ctx, "get user", func(ctx context.Context) error {
		var err error
		record, err = c.getUser(ctx, label)
		return err
	})
	return record, err
}

func (c *Client) getUser(ctx context.Context, label string) (*models.ClientRecord, error) {
	inbound, err := c.getInbound(ctx, false)
	if err != nil {
		return nil, err
	}

	record := c.findClient(inbound, label)
	if record == nil {
		return nil, fmt.Errorf("%q: %w", label, ErrNotFound)
	}
	return record, nil
}

// AddUser provisions a new client with a fresh UUID, an expiry of
// expireDays from now and a quota of trafficGB. It returns the new UUID.
func (c *Client) AddUser(ctx context.Context, label string, expireDays, trafficGB int) (string, error) {
	var clientID string
	err := c.withRelogin(ctx, "add user", func(ctx context.Context) error {
		var err error
		clientID, err = c.addUser(ctx, label, expireDays, trafficGB)
		return err
	})
	return clientID, err
}

func (c *Client) addUser(ctx context.Context, label string, expireDays, trafficGB int) (string, error) {
	c.ensureLoggedIn(ctx)

	record := models.ClientRecord{
		ID:         uuid.NewString(),
		Email:      strings.ToLower(label),
		Enable:     true,
		ExpiryTime: expiryAfter(time.Now(), expireDays),
		TotalGB:    int64(trafficGB) * constants.BytesInGB,
		Flow:       "",
	}

	c.logger.Infof("Adding client %q to inbound %d", record.Email, c.cfg.InboundID)

	endpoint := c.cfg.Host + "/panel/api/inbounds/addClient"
	if err := c.submitClient(ctx, "add client", endpoint, record); err != nil {
		c.logger.Errorf("Failed to add client %q: %v", record.Email, err)
		return "", err
	}

	c.refreshCache(ctx)
	return record.ID, nil
}

// updateUser submits a full replacement of one client record keyed by its
// UUID and returns that UUID.
func (c *Client) updateUser(ctx context.Context, record models.ClientRecord) (string, error) {
	var clientID string
	err := c.withRelogin(ctx, "update user", func(ctx context.Context) error {
		var err error
		clientID, err = c.doUpdateUser(ctx, record)
		return err
	})
	return clientID, err
}

func (c *Client) doUpdateUser(ctx context.Context, record models.ClientRecord) (string, error) {
	c.ensureLoggedIn(ctx)

	c.logger.Infof("Updating client %q (%s) in inbound %d", record.Email, record.ID, c.cfg.InboundID)

	endpoint := fmt.Sprintf("%s/panel/api/inbounds/updateClient/%s", c.cfg.Host, record.ID)
	if err := c.submitClient(ctx, "update client", endpoint, record); err != nil {
		c.logger.Errorf("Failed to update client %q (%s): %v", record.Email, record.ID, err)
		return "", err
	}

	c.refreshCache(ctx)
	return record.ID, nil
}

// ModifyUser extends an existing client or creates a new one (upsert).
// For an existing client the new expiry counts from the current expiry if
// it is still in the future, otherwise from now; the quota is overwritten
// and the client re-enabled. Relies on the relogin guards of the
// operations it delegates to.
func (c *Client) ModifyUser(ctx context.Context, label string, expireDays, trafficGB int) (string, error) {
	existing, err := c.GetUser(ctx, strings.ToLower(label))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.AddUser(ctx, label, expireDays, trafficGB)
		}
		return "", err
	}

	base := time.Now()
	if existing.ExpiryTime > base.UnixMilli() {
		base = time.UnixMilli(existing.ExpiryTime)
	}

	updated := *existing
	updated.Enable = true
	updated.ExpiryTime = expiryAfter(base, expireDays)
	updated.TotalGB = int64(trafficGB) * constants.BytesInGB

	return c.updateUser(ctx, updated)
}

// DeleteUser removes the client with the given email from the inbound.
// Deleting an absent client is a success: the desired state already holds.
func (c *Client) DeleteUser(ctx context.Context, label string) error {
	return c.withRelogin(ctx, "delete user", func(ctx context.Context) error {
		return c.deleteUser(ctx, label)
	})
}

func (c *Client) deleteUser(ctx context.Context, label string) error {
	c.ensureLoggedIn(ctx)

	record, err := c.getUser(ctx, label)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Infof("Client %q already absent, nothing to delete", label)
			return nil
		}
		return err
	}

	c.logger.Infof("Deleting client %q (%s) from inbound %d", label, record.ID, c.cfg.InboundID)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Post(fmt.Sprintf("%s/panel/api/inbounds/%d/delClient/%s", c.cfg.Host, c.cfg.InboundID, record.ID))

	if err != nil {
		c.logger.Errorf("Delete client request for %q failed: %v", label, err)
		return fmt.Errorf("delete client request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &apperrors.PanelAPIError{Operation: "delete client", Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to parse delete client response: %w", err)
	}
	if !apiResp.Success {
		return &apperrors.PanelAPIError{Operation: "delete client", Status: resp.StatusCode(), Message: apiResp.Msg}
	}

	c.refreshCache(ctx)
	return nil
}

// submitClient POSTs a single-element client list to an add/update
// endpoint using the panel's settings-as-JSON-string body shape.
func (c *Client) submitClient(ctx context.Context, operation, endpoint string, record models.ClientRecord) error {
	settingsJSON, err := json.Marshal(models.ClientSettings{Clients: []models.ClientRecord{record}})
	if err != nil {
		return fmt.Errorf("failed to marshal client settings: %w", err)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"id":       c.cfg.InboundID,
			"settings": string(settingsJSON),
		}).
		Post(endpoint)

	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return &apperrors.PanelAPIError{Operation: operation, Status: resp.StatusCode(), Message: string(resp.Body())}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	if !apiResp.Success {
		return &apperrors.PanelAPIError{Operation: operation, Status: resp.StatusCode(), Message: apiResp.Msg}
	}

	return nil
}

// expiryAfter returns base plus a whole number of days as a millisecond
// epoch timestamp.
func expiryAfter(base time.Time, days int) int64 {
	return base.Add(time.Duration(days) * 24 * time.Hour).UnixMilli()
}
