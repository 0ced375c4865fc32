package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/app"
	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/middleware"
	"github.com/meit-app/meit/internal/model"
)

const testSecret = "test-secret"

type env struct {
	e   *echo.Echo
	gw  *gateway.Memory
	reg *app.Registry
	ch  *ClientHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gw := gateway.NewMemory(gateway.MemoryOptions{JWTSecret: testSecret})
	reg := app.NewRegistry(gw, nil, 0)
	t.Cleanup(reg.Stop)

	e := echo.New()
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	ch := NewClientHandler(reg, nil)
	auth := NewAuthHandler(gw, reg, nil)
	pub := &PublicHandler{Merchants: gw}

	// same layout as the router package
	a := e.Group("/v1/auth")
	a.POST("/login", auth.Login)
	a.POST("/refresh", auth.Refresh)
	a.POST("/logout", auth.Logout, middleware.JWTAuth(testSecret))
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.GET("/me", ch.Me)
	g.POST("/me/profile", ch.CompleteProfile)
	g.POST("/me/refresh", ch.Refresh)
	g.GET("/merchants", ch.ListMerchants)
	g.GET("/merchants/:id", ch.GetMerchant)
	g.POST("/merchants/:id/favorite", ch.ToggleFavorite)
	g.POST("/locations/:id/register", ch.Register)
	g.GET("/points", ch.Points)
	g.GET("/gift-cards", ch.ListGiftCards)
	g.GET("/gift-cards/expiring", ch.ExpiringGiftCards)
	g.GET("/gift-cards/:id", ch.GetGiftCard)
	g.GET("/challenges", ch.ListChallenges)
	g.GET("/challenges/:id", ch.GetChallenge)
	g.GET("/notifications", ch.ListNotifications)
	g.POST("/notifications/read-all", ch.MarkAllNotificationsRead)
	g.POST("/notifications/:id/read", ch.MarkNotificationRead)
	g.DELETE("/notifications/:id", ch.DeleteNotification)
	g.POST("/scan", ch.Scan)
	g.POST("/scan/resolve", ch.ResolveScan)
	g.DELETE("/scan", ch.StopScan)
	e.GET("/v1/public/locations/:id", pub.GetLocation, pass)

	gw.AddLocation(model.Location{ID: 1, Name: "Café Central", Category: "Cafetería"}, 100)
	gw.AddLocation(model.Location{ID: 2, Name: "Panadería Sol"}, 101)
	gw.AddLocation(model.Location{ID: 3, Name: "Sin padre"}, 0)
	return &env{e: e, gw: gw, reg: reg, ch: ch}
}

// account creates credentials and, when name is set, a profile.  It
// returns the customer id (empty without profile).
func (v *env) account(t *testing.T, email, name string) string {
	t.Helper()
	id, err := v.gw.AddAccount(email, "pw")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if name == "" {
		return ""
	}
	return v.gw.AddCustomer(model.Customer{IdentityID: id, Email: email, Name: name, IsActive: true}).ID
}

func (v *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func (v *env) login(t *testing.T, email string) (model.RawSession, string) {
	t.Helper()
	rec := v.do(t, http.MethodPost, "/v1/auth/login", "", loginReq{Email: email, Password: "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var resp sessionResp
	decode(t, rec, &resp)
	return resp.Session, resp.Status
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestLoginLoadsClient(t *testing.T) {
	v := newEnv(t)
	cust := v.account(t, "ana@example.com", "Ana")
	v.gw.AddRelation(model.Relation{CustomerID: cust, MerchantID: 100, LocationID: 1, AvailablePoints: 30, IsActive: true})

	raw, status := v.login(t, "ana@example.com")
	if status != "ready" {
		t.Fatalf("status = %q, want ready", status)
	}

	rec := v.do(t, http.MethodGet, "/v1/me", raw.AccessToken, nil)
	var me meResp
	decode(t, rec, &me)
	if me.Profile == nil || me.Profile.ID != cust || me.Email != "ana@example.com" {
		t.Fatalf("unexpected me %+v", me)
	}

	rec = v.do(t, http.MethodGet, "/v1/merchants", raw.AccessToken, nil)
	var list listResp[model.Merchant]
	decode(t, rec, &list)
	if !list.Initialized || len(list.Items) != 1 || list.Items[0].Name != "Café Central" || list.Items[0].Points != 30 {
		t.Fatalf("unexpected merchants %+v", list)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	rec := v.do(t, http.MethodPost, "/v1/auth/login", "", loginReq{Email: "ana@example.com", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	rec = v.do(t, http.MethodPost, "/v1/auth/login", "", loginReq{Email: "ana@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	v := newEnv(t)
	for _, tok := range []string{"", "garbage"} {
		if rec := v.do(t, http.MethodGet, "/v1/me", tok, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: code = %d, want 401", tok, rec.Code)
		}
	}
}

func TestProfilePendingUntilCompleted(t *testing.T) {
	v := newEnv(t)
	v.account(t, "bea@example.com", "")
	raw, status := v.login(t, "bea@example.com")
	if status != "profile_pending" {
		t.Fatalf("status = %q, want profile_pending", status)
	}

	if rec := v.do(t, http.MethodGet, "/v1/merchants", raw.AccessToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("merchants before profile: %d, want 403", rec.Code)
	}
	if rec := v.do(t, http.MethodPost, "/v1/me/profile", raw.AccessToken, model.ProfileInput{Name: "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank name: %d, want 400", rec.Code)
	}

	rec := v.do(t, http.MethodPost, "/v1/me/profile", raw.AccessToken, model.ProfileInput{Name: "Bea", Gender: "F"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("complete profile: %d %s", rec.Code, rec.Body)
	}
	if rec := v.do(t, http.MethodGet, "/v1/merchants", raw.AccessToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("merchants after profile: %d", rec.Code)
	}
}

func TestRegisterLocation(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	rec := v.do(t, http.MethodPost, "/v1/locations/2/register", raw.AccessToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: %d %s", rec.Code, rec.Body)
	}
	var res struct {
		Relation model.Relation `json:"relation"`
		IsNew    bool           `json:"is_new"`
	}
	decode(t, rec, &res)
	if !res.IsNew || res.Relation.MerchantID != 101 || res.Relation.AvailablePoints != 10 {
		t.Fatalf("unexpected result %+v", res)
	}

	rec = v.do(t, http.MethodPost, "/v1/locations/2/register", raw.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second register: %d", rec.Code)
	}

	cases := map[string]int{
		"/v1/locations/3/register":   http.StatusUnprocessableEntity,
		"/v1/locations/99/register":  http.StatusNotFound,
		"/v1/locations/abc/register": http.StatusBadRequest,
	}
	for path, want := range cases {
		if rec := v.do(t, http.MethodPost, path, raw.AccessToken, nil); rec.Code != want {
			t.Fatalf("%s: code = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestScanBusinessCode(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	rec := v.do(t, http.MethodPost, "/v1/scan", raw.AccessToken, scanReq{Code: "meit://business/1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("scan: %d %s", rec.Code, rec.Body)
	}
	var out struct {
		State        string `json:"state"`
		Route        string `json:"route"`
		Registration *struct {
			IsNew bool `json:"is_new"`
		} `json:"registration"`
	}
	decode(t, rec, &out)
	if out.State != "navigated" || out.Route != "/register-business/1" || out.Registration == nil || !out.Registration.IsNew {
		t.Fatalf("unexpected outcome %s", rec.Body)
	}

	rec = v.do(t, http.MethodGet, "/v1/merchants", raw.AccessToken, nil)
	var list listResp[model.Merchant]
	decode(t, rec, &list)
	if len(list.Items) != 1 || list.Items[0].LocationID != 1 {
		t.Fatalf("merchants after scan: %+v", list.Items)
	}

	// scanning again resumes the camera and finds the existing relation
	rec = v.do(t, http.MethodPost, "/v1/scan", raw.AccessToken, scanReq{Code: "meit://business/1"})
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Registration == nil || out.Registration.IsNew {
		t.Fatalf("rescan: %d %s", rec.Code, rec.Body)
	}
	if n := len(v.gw.RelationsFor(v.customerID(t, raw), 1)); n != 1 {
		t.Fatalf("relations = %d, want 1", n)
	}
}

func (v *env) customerID(t *testing.T, raw model.RawSession) string {
	t.Helper()
	c, err := v.gw.GetCustomerByIdentity(context.Background(), raw.IdentityID)
	if err != nil {
		t.Fatalf("GetCustomerByIdentity: %v", err)
	}
	return c.ID
}

func TestScanInvalidAndPromptedCodes(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	rec := v.do(t, http.MethodPost, "/v1/scan", raw.AccessToken, scanReq{Code: "hello"})
	var out struct {
		State  string `json:"state"`
		Prompt string `json:"prompt"`
		Route  string `json:"route"`
	}
	decode(t, rec, &out)
	if rec.Code != http.StatusBadRequest || out.Prompt != "invalid_code" || out.State != "scanning" {
		t.Fatalf("invalid code: %d %s", rec.Code, rec.Body)
	}

	rec = v.do(t, http.MethodPost, "/v1/scan", raw.AccessToken, scanReq{Code: "merchant:abc"})
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Prompt != "confirm_merchant" || out.State != "matched" {
		t.Fatalf("merchant code: %d %s", rec.Code, rec.Body)
	}

	rec = v.do(t, http.MethodPost, "/v1/scan", raw.AccessToken, scanReq{Code: "meit://business/1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("frame while matched: %d, want 409", rec.Code)
	}
	if n := v.gw.Calls("CreateRelation"); n != 0 {
		t.Fatalf("CreateRelation called %d times while matched", n)
	}

	rec = v.do(t, http.MethodPost, "/v1/scan/resolve", raw.AccessToken, resolveReq{Confirm: true})
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Route != "/store/abc" || out.State != "scanning" {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body)
	}
	if rec := v.do(t, http.MethodPost, "/v1/scan/resolve", raw.AccessToken, resolveReq{Confirm: true}); rec.Code != http.StatusConflict {
		t.Fatalf("resolve with nothing pending: %d, want 409", rec.Code)
	}
	if rec := v.do(t, http.MethodDelete, "/v1/scan", raw.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("stop: %d", rec.Code)
	}
}

func TestToggleFavorite(t *testing.T) {
	v := newEnv(t)
	cust := v.account(t, "ana@example.com", "Ana")
	rel := v.gw.AddRelation(model.Relation{CustomerID: cust, MerchantID: 100, LocationID: 1, IsActive: true})
	raw, _ := v.login(t, "ana@example.com")

	rec := v.do(t, http.MethodPost, "/v1/merchants/"+rel.ID+"/favorite", raw.AccessToken, nil)
	var resp toggleResp
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Phase != "confirmed" || !resp.Merchant.IsFavorite {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body)
	}

	v.gw.Fail("UpdateRelationFavorite", gateway.ErrNetwork)
	rec = v.do(t, http.MethodPost, "/v1/merchants/"+rel.ID+"/favorite", raw.AccessToken, nil)
	decode(t, rec, &resp)
	if rec.Code != http.StatusServiceUnavailable || resp.Phase != "reverted" || !resp.Merchant.IsFavorite {
		t.Fatalf("failed toggle: %d %s", rec.Code, rec.Body)
	}

	if rec := v.do(t, http.MethodPost, "/v1/merchants/nope/favorite", raw.AccessToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown relation: %d, want 404", rec.Code)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	v := newEnv(t)
	cust := v.account(t, "ana@example.com", "Ana")
	old := v.gw.InsertNotification(model.Notification{CustomerID: cust, LocationID: 1, Type: model.NotificationCheckIn,
		Title: "Visita", CreatedAt: time.Now().Add(-time.Hour)})
	raw, _ := v.login(t, "ana@example.com")

	pushed := v.gw.InsertNotification(model.Notification{CustomerID: cust, LocationID: 1, Type: model.NotificationPointsAssigned, Title: "Puntos"})
	var list notificationsResp
	deadline := time.Now().Add(2 * time.Second)
	for {
		decode(t, v.do(t, http.MethodGet, "/v1/notifications", raw.AccessToken, nil), &list)
		if len(list.Items) == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(list.Items) != 2 || list.Items[0].ID != pushed.ID || list.Unread != 2 {
		t.Fatalf("after push: %+v", list)
	}

	if rec := v.do(t, http.MethodPost, "/v1/notifications/"+old.ID+"/read", raw.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("mark read: %d", rec.Code)
	}
	decode(t, v.do(t, http.MethodGet, "/v1/notifications?unread=true", raw.AccessToken, nil), &list)
	if len(list.Items) != 1 || list.Items[0].ID != pushed.ID {
		t.Fatalf("unread filter: %+v", list.Items)
	}

	if rec := v.do(t, http.MethodPost, "/v1/notifications/read-all", raw.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("read-all: %d", rec.Code)
	}
	if rec := v.do(t, http.MethodDelete, "/v1/notifications/"+pushed.ID, raw.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	decode(t, v.do(t, http.MethodGet, "/v1/notifications?reload=true", raw.AccessToken, nil), &list)
	if len(list.Items) != 1 || list.Unread != 0 {
		t.Fatalf("after delete: %+v", list)
	}

	if rec := v.do(t, http.MethodGet, "/v1/notifications?type=bogus", raw.AccessToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type: %d, want 400", rec.Code)
	}
}

func TestWalletViews(t *testing.T) {
	v := newEnv(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v.ch.Now = func() time.Time { return now }

	cust := v.account(t, "ana@example.com", "Ana")
	v.gw.AddRelation(model.Relation{CustomerID: cust, MerchantID: 100, LocationID: 1, AvailablePoints: 25, IsActive: true})
	v.gw.AddGiftCard(model.GiftCard{ID: "soon", CustomerID: cust, LocationID: 1, Status: model.GiftCardActive, ExpiresAt: now.Add(48 * time.Hour)})
	v.gw.AddGiftCard(model.GiftCard{ID: "later", CustomerID: cust, LocationID: 1, Status: model.GiftCardActive, ExpiresAt: now.Add(30 * 24 * time.Hour)})
	v.gw.AddGiftCard(model.GiftCard{ID: "lapsed", CustomerID: cust, LocationID: 1, Status: model.GiftCardActive, ExpiresAt: now.Add(-time.Hour)})
	end := now.Add(-time.Hour)
	v.gw.AddChallenge(model.Challenge{ID: "run", LocationID: 1, Title: "5 visitas", IsActive: true})
	v.gw.AddChallenge(model.Challenge{ID: "over", LocationID: 1, Title: "Pasado", IsActive: true, EndDate: &end})
	raw, _ := v.login(t, "ana@example.com")

	var cards listResp[giftCardView]
	decode(t, v.do(t, http.MethodGet, "/v1/gift-cards/expiring", raw.AccessToken, nil), &cards)
	ids := map[string]bool{}
	for _, c := range cards.Items {
		ids[c.ID] = true
	}
	if !ids["soon"] || ids["later"] {
		t.Fatalf("expiring: %+v", cards.Items)
	}

	var card giftCardView
	decode(t, v.do(t, http.MethodGet, "/v1/gift-cards/lapsed", raw.AccessToken, nil), &card)
	if card.Status != model.GiftCardActive || card.EffectiveStatus != model.GiftCardExpired {
		t.Fatalf("lapsed card: %+v", card)
	}
	if rec := v.do(t, http.MethodGet, "/v1/gift-cards/missing", raw.AccessToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing card: %d", rec.Code)
	}

	var challenges listResp[model.Challenge]
	decode(t, v.do(t, http.MethodGet, "/v1/challenges?active=true", raw.AccessToken, nil), &challenges)
	if len(challenges.Items) != 1 || challenges.Items[0].ID != "run" {
		t.Fatalf("active challenges: %+v", challenges.Items)
	}

	var points pointsResp
	decode(t, v.do(t, http.MethodGet, "/v1/points", raw.AccessToken, nil), &points)
	if points.Total != 25 || len(points.ByRelation.Items) != 1 {
		t.Fatalf("points: %+v", points)
	}
}

func TestRefreshReportsFailedCaches(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	v.gw.Fail("GetGiftCards", gateway.ErrNetwork)
	rec := v.do(t, http.MethodPost, "/v1/me/refresh", raw.AccessToken, nil)
	var resp struct {
		Failed map[string]string `json:"failed"`
	}
	decode(t, rec, &resp)
	if rec.Code != http.StatusMultiStatus || resp.Failed["gift_cards"] != "network" || len(resp.Failed) != 1 {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
}

func TestEvictedClientReopensFromToken(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	v.reg.Stop()
	if v.reg.Len() != 0 {
		t.Fatal("registry not emptied")
	}
	rec := v.do(t, http.MethodGet, "/v1/me", raw.AccessToken, nil)
	var me meResp
	decode(t, rec, &me)
	if me.Status != "ready" || v.reg.Len() != 1 {
		t.Fatalf("reopen: %s", rec.Body)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	if rec := v.do(t, http.MethodPost, "/v1/auth/logout", raw.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body)
	}
	if !v.gw.SessionRevoked(raw.RefreshToken) {
		t.Fatal("refresh token still valid")
	}
	if v.reg.Len() != 0 {
		t.Fatal("client kept after logout")
	}
}

func TestLogoutAfterEvictionRevokesBodyToken(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	v.reg.Stop()
	if rec := v.do(t, http.MethodGet, "/v1/me", raw.AccessToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	if v.reg.Len() != 1 {
		t.Fatal("client not rebuilt")
	}
	rec := v.do(t, http.MethodPost, "/v1/auth/logout", raw.AccessToken, logoutReq{RefreshToken: raw.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body)
	}
	if !v.gw.SessionRevoked(raw.RefreshToken) {
		t.Fatal("refresh token still valid")
	}
	if v.reg.Len() != 0 {
		t.Fatal("client kept after logout")
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	rec := v.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshReq{RefreshToken: raw.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	var resp sessionResp
	decode(t, rec, &resp)
	if resp.Status != "ready" || resp.Profile == nil || resp.Session.IdentityID != raw.IdentityID {
		t.Fatalf("unexpected refresh response %s", rec.Body)
	}
	if resp.Session.RefreshToken == "" || resp.Session.RefreshToken == raw.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if !v.gw.SessionRevoked(raw.RefreshToken) || v.gw.SessionRevoked(resp.Session.RefreshToken) {
		t.Fatal("old token should be revoked and the new one live")
	}
	if v.reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", v.reg.Len())
	}

	// The client now holds the new token, so a plain logout revokes it.
	if rec := v.do(t, http.MethodPost, "/v1/auth/logout", resp.Session.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body)
	}
	if !v.gw.SessionRevoked(resp.Session.RefreshToken) {
		t.Fatal("rotated token survived logout")
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	v := newEnv(t)
	v.account(t, "ana@example.com", "Ana")
	raw, _ := v.login(t, "ana@example.com")

	if rec := v.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshReq{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty token: %d", rec.Code)
	}
	if rec := v.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshReq{RefreshToken: "bogus"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown token: %d", rec.Code)
	}
	if rec := v.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshReq{RefreshToken: raw.RefreshToken}); rec.Code != http.StatusOK {
		t.Fatalf("first refresh: %d %s", rec.Code, rec.Body)
	}
	if rec := v.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshReq{RefreshToken: raw.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused token: %d", rec.Code)
	}
}

func TestPublicLocation(t *testing.T) {
	v := newEnv(t)
	rec := v.do(t, http.MethodGet, "/v1/public/locations/1", "", nil)
	var loc model.Location
	decode(t, rec, &loc)
	if rec.Code != http.StatusOK || loc.Name != "Café Central" {
		t.Fatalf("location: %d %s", rec.Code, rec.Body)
	}
	for id, want := range map[string]int{"99": http.StatusNotFound, "abc": http.StatusBadRequest, "0": http.StatusBadRequest} {
		if rec := v.do(t, http.MethodGet, "/v1/public/locations/"+id, "", nil); rec.Code != want {
			t.Fatalf("location %s: %d, want %d", id, rec.Code, want)
		}
	}
}
