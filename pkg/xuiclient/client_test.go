package xuiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakePanel simulates the 3x-ui admin API: session login, inbound fetch
// and the client add/update/delete endpoints.
type fakePanel struct {
	t *testing.T

	mu           sync.Mutex
	loginCalls   int
	fetchCalls   int
	sessionValid bool
	failLogin    bool

	protocol       string
	port           int
	streamSettings string
	clients        []models.ClientRecord
}

func newFakePanel(t *testing.T) *fakePanel {
	return &fakePanel{
		t:              t,
		protocol:       "vless",
		port:           443,
		streamSettings: `{"network":"tcp","security":"none"}`,
	}
}

func (p *fakePanel) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch {
		case r.URL.Path == "/login":
			p.loginCalls++
			if p.failLogin {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Method != http.MethodPost {
				p.t.Errorf("login method %s", r.Method)
			}
			if err := r.ParseForm(); err != nil || r.PostFormValue("username") == "" {
				p.t.Errorf("login body is not form-encoded credentials")
			}
			p.sessionValid = true
			http.SetCookie(w, &http.Cookie{Name: "3x-ui", Value: "session"})
			writeJSON(w, map[string]interface{}{"success": true})

		case r.URL.Path == "/panel/api/inbounds/get/1":
			p.fetchCalls++
			if !p.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			settings, _ := json.Marshal(models.ClientSettings{Clients: p.clients})
			writeJSON(w, map[string]interface{}{
				"success": true,
				"obj": models.Inbound{
					ID:             1,
					Port:           p.port,
					Protocol:       p.protocol,
					Settings:       string(settings),
					StreamSettings: p.streamSettings,
				},
			})

		case r.URL.Path == "/panel/api/inbounds/addClient":
			if !p.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			p.clients = append(p.clients, p.decodeClient(r))
			writeJSON(w, map[string]interface{}{"success": true})

		case strings.HasPrefix(r.URL.Path, "/panel/api/inbounds/updateClient/"):
			if !p.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			id := strings.TrimPrefix(r.URL.Path, "/panel/api/inbounds/updateClient/")
			record := p.decodeClient(r)
			replaced := false
			for i := range p.clients {
				if p.clients[i].ID == id {
					p.clients[i] = record
					replaced = true
				}
			}
			writeJSON(w, map[string]interface{}{"success": replaced})

		case strings.HasPrefix(r.URL.Path, "/panel/api/inbounds/1/delClient/"):
			if !p.sessionValid {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			id := strings.TrimPrefix(r.URL.Path, "/panel/api/inbounds/1/delClient/")
			kept := p.clients[:0]
			for _, client := range p.clients {
				if client.ID != id {
					kept = append(kept, client)
				}
			}
			p.clients = kept
			writeJSON(w, map[string]interface{}{"success": true})

		default:
			http.NotFound(w, r)
		}
	})
}

func (p *fakePanel) decodeClient(r *http.Request) models.ClientRecord {
	var body struct {
		ID       int    `json:"id"`
		Settings string `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		p.t.Errorf("decode request body: %v", err)
	}
	if body.ID != 1 {
		p.t.Errorf("unexpected inbound id %d", body.ID)
	}
	var settings models.ClientSettings
	if err := json.Unmarshal([]byte(body.Settings), &settings); err != nil {
		p.t.Errorf("decode embedded settings: %v", err)
	}
	if len(settings.Clients) != 1 {
		p.t.Errorf("expected single-element client list, got %d", len(settings.Clients))
	}
	return settings.Clients[0]
}

func (p *fakePanel) seed(clients ...models.ClientRecord) {
	p.mu.Lock()
	p.clients = clients
	p.mu.Unlock()
}

func (p *fakePanel) expireSession() {
	p.mu.Lock()
	p.sessionValid = false
	p.mu.Unlock()
}

func (p *fakePanel) counts() (logins, fetches int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCalls, p.fetchCalls
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, panel *fakePanel) *Client {
	t.Helper()
	srv := httptest.NewServer(panel.handler())
	t.Cleanup(srv.Close)

	cfg := config.PanelConfig{
		Host:      srv.URL,
		Username:  "admin",
		Password:  "secret",
		InboundID: 1,
		Domain:    "vpn.example.com",
	}

	client := NewClient(cfg, "VPN", testLogger())
	t.Cleanup(client.Close)
	return client
}

func TestGetUserCaseInsensitive(t *testing.T) {
	panel := newFakePanel(t)
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "User_1", Enable: true})
	client := newTestClient(t, panel)

	for _, label := range []string{"user_1", "USER_1", "User_1"} {
		record, err := client.GetUser(context.Background(), label)
		if err != nil {
			t.Fatalf("GetUser(%q): %v", label, err)
		}
		if record.ID != "uuid-1" {
			t.Fatalf("GetUser(%q) returned ID %q", label, record.ID)
		}
	}
}

func TestGetUserNotFound(t *testing.T) {
	panel := newFakePanel(t)
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1"})
	client := newTestClient(t, panel)

	_, err := client.GetUser(context.Background(), "user_2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A not-found result is a normal outcome, not a session failure:
	// it must not trigger a relogin.
	if logins, _ := panel.counts(); logins != 1 {
		t.Fatalf("expected 1 login, got %d", logins)
	}
}

func TestGetUserMalformedSettings(t *testing.T) {
	panel := newFakePanel(t)
	client := newTestClient(t, panel)

	panel.mu.Lock()
	panel.clients = nil
	panel.mu.Unlock()
	// Force the inbound to carry unparseable settings by fetching through
	// a snapshot with broken JSON.
	inbound := &models.Inbound{ID: 1, Settings: "{not json"}
	if record := client.findClient(inbound, "user_1"); record != nil {
		t.Fatalf("expected nil record for malformed settings, got %+v", record)
	}
}

func TestInboundCacheFreshness(t *testing.T) {
	panel := newFakePanel(t)
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1"})
	client := newTestClient(t, panel)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.GetUser(ctx, "user_1"); err != nil {
			t.Fatalf("GetUser #%d: %v", i, err)
		}
	}
	if _, fetches := panel.counts(); fetches != 1 {
		t.Fatalf("expected 1 fetch within freshness window, got %d", fetches)
	}

	// Shrink the window so the cache goes stale.
	client.mu.Lock()
	client.freshness = time.Millisecond
	client.mu.Unlock()
	time.Sleep(5 * time.Millisecond)

	if _, err := client.GetUser(ctx, "user_1"); err != nil {
		t.Fatalf("GetUser after expiry: %v", err)
	}
	if _, fetches := panel.counts(); fetches != 2 {
		t.Fatalf("expected 2 fetches after window elapsed, got %d", fetches)
	}

	if _, err := client.getInbound(ctx, true); err != nil {
		t.Fatalf("getInbound force refresh: %v", err)
	}
	if _, fetches := panel.counts(); fetches != 3 {
		t.Fatalf("expected force refresh to bypass cache, got %d fetches", fetches)
	}
}

func TestAddUserRoundTrip(t *testing.T) {
	panel := newFakePanel(t)
	client := newTestClient(t, panel)
	ctx := context.Background()

	clientID, err := client.AddUser(ctx, "User_5", 14, constants.DefaultTrafficGB)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if clientID == "" {
		t.Fatal("AddUser returned empty UUID")
	}

	record, err := client.GetUser(ctx, "user_5")
	if err != nil {
		t.Fatalf("GetUser after add: %v", err)
	}
	if record.ID != clientID {
		t.Fatalf("expected UUID %q, got %q", clientID, record.ID)
	}
	if record.Email != "user_5" {
		t.Fatalf("expected lowercased email, got %q", record.Email)
	}
	if !record.Enable {
		t.Fatal("new client is not enabled")
	}
	if record.TotalGB != constants.DefaultTrafficGB*constants.BytesInGB {
		t.Fatalf("unexpected quota %d", record.TotalGB)
	}

	wantExpiry := time.Now().Add(14 * 24 * time.Hour).UnixMilli()
	if diff := record.ExpiryTime - wantExpiry; diff < -5000 || diff > 5000 {
		t.Fatalf("expiry %d not within tolerance of %d", record.ExpiryTime, wantExpiry)
	}
}

func TestAddUserForcesCacheRefresh(t *testing.T) {
	panel := newFakePanel(t)
	client := newTestClient(t, panel)
	ctx := context.Background()

	// Warm the cache, then add: the mutation must refetch so the next
	// read observes the new client without waiting out the window.
	if _, err := client.getInbound(ctx, false); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := client.AddUser(ctx, "user_9", 7, 10); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := client.GetUser(ctx, "user_9"); err != nil {
		t.Fatalf("GetUser right after AddUser: %v", err)
	}

	if _, fetches := panel.counts(); fetches != 2 {
		t.Fatalf("expected warm fetch + forced refresh, got %d fetches", fetches)
	}
}

func TestModifyUserExtendsFutureExpiry(t *testing.T) {
	panel := newFakePanel(t)
	future := time.Now().Add(48 * time.Hour).UnixMilli()
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1", Enable: false, ExpiryTime: future, TotalGB: 1})
	client := newTestClient(t, panel)

	clientID, err := client.ModifyUser(context.Background(), "user_1", 5, 50)
	if err != nil {
		t.Fatalf("ModifyUser: %v", err)
	}
	if clientID != "uuid-1" {
		t.Fatalf("expected existing UUID, got %q", clientID)
	}

	record, err := client.GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUser after modify: %v", err)
	}
	wantExpiry := future + 5*int64(constants.MillisecondsInDay)
	if record.ExpiryTime != wantExpiry {
		t.Fatalf("expected expiry %d, got %d", wantExpiry, record.ExpiryTime)
	}
	if !record.Enable {
		t.Fatal("modify must re-enable the client")
	}
	if record.TotalGB != 50*constants.BytesInGB {
		t.Fatalf("quota not overwritten: %d", record.TotalGB)
	}
}

func TestModifyUserExpiredCountsFromNow(t *testing.T) {
	panel := newFakePanel(t)
	expired := time.Now().Add(-24 * time.Hour).UnixMilli()
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1", ExpiryTime: expired})
	client := newTestClient(t, panel)

	if _, err := client.ModifyUser(context.Background(), "user_1", 5, 50); err != nil {
		t.Fatalf("ModifyUser: %v", err)
	}

	record, err := client.GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUser after modify: %v", err)
	}
	wantExpiry := time.Now().Add(5 * 24 * time.Hour).UnixMilli()
	if diff := record.ExpiryTime - wantExpiry; diff < -5000 || diff > 5000 {
		t.Fatalf("expiry %d not within tolerance of %d", record.ExpiryTime, wantExpiry)
	}
}

func TestModifyUserCreatesMissing(t *testing.T) {
	panel := newFakePanel(t)
	client := newTestClient(t, panel)

	clientID, err := client.ModifyUser(context.Background(), "User_7", 3, 50)
	if err != nil {
		t.Fatalf("ModifyUser: %v", err)
	}

	record, err := client.GetUser(context.Background(), "user_7")
	if err != nil {
		t.Fatalf("GetUser after upsert-create: %v", err)
	}
	if record.ID != clientID {
		t.Fatalf("expected UUID %q, got %q", clientID, record.ID)
	}
}

func TestDeleteUserIdempotent(t *testing.T) {
	panel := newFakePanel(t)
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1"})
	client := newTestClient(t, panel)
	ctx := context.Background()

	if err := client.DeleteUser(ctx, "user_1"); err != nil {
		t.Fatalf("first DeleteUser: %v", err)
	}
	if err := client.DeleteUser(ctx, "user_1"); err != nil {
		t.Fatalf("second DeleteUser (already absent): %v", err)
	}

	if _, err := client.GetUser(ctx, "user_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestReloginRetryRecoversExpiredSession(t *testing.T) {
	panel := newFakePanel(t)
	panel.seed(models.ClientRecord{ID: "uuid-1", Email: "user_1"})
	client := newTestClient(t, panel)
	ctx := context.Background()

	if _, err := client.GetUser(ctx, "user_1"); err != nil {
		t.Fatalf("initial GetUser: %v", err)
	}

	// The panel silently expires the session; the stale cache is
	// disabled so the next read has to hit the network.
	panel.expireSession()
	client.mu.Lock()
	client.freshness = 0
	client.mu.Unlock()

	record, err := client.GetUser(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetUser after session expiry: %v", err)
	}
	if record.ID != "uuid-1" {
		t.Fatalf("unexpected record %+v", record)
	}

	logins, fetches := panel.counts()
	if logins != 2 {
		t.Fatalf("expected exactly one relogin (2 logins total), got %d", logins)
	}
	if fetches != 3 {
		t.Fatalf("expected initial fetch + failed attempt + retry, got %d fetches", fetches)
	}
}

func TestReloginFailureReturnsOriginalError(t *testing.T) {
	panel := newFakePanel(t)
	panel.failLogin = true
	client := newTestClient(t, panel)

	_, err := client.GetUser(context.Background(), "user_1")
	if err == nil {
		t.Fatal("expected error when login never succeeds")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("transport failure must not masquerade as not-found: %v", err)
	}

	// ensureLoggedIn attempt plus the single relogin attempt.
	if logins, _ := panel.counts(); logins != 2 {
		t.Fatalf("expected 2 login attempts, got %d", logins)
	}
}

func TestExpiryAfter(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	got := expiryAfter(base, 14)
	want := base.UnixMilli() + 14*int64(constants.MillisecondsInDay)
	if got != want {
		t.Fatalf("expiryAfter = %d, want %d", got, want)
	}
}

func TestPanelErrorSurfacesStatus(t *testing.T) {
	panel := newFakePanel(t)
	client := newTestClient(t, panel)

	// Break the inbound endpoint wholesale.
	panel.failLogin = true
	_, err := client.GetUser(context.Background(), "user_1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), fmt.Sprint(http.StatusUnauthorized)) {
		t.Fatalf("expected status in error, got %v", err)
	}
}
