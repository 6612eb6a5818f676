package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/auth"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSecret = []byte("test-secret")

type fakeService struct {
	generate   services.GenerateResult
	validate   services.ValidateResult
	use        services.ValidateResult
	extend     services.ExtendResult
	cleanup    services.CleanupResult
	statistics services.StatisticsResult

	gotParticipant int64
	gotType        string
	gotExpiry      time.Duration
	gotToken       string
	gotIP          string
	gotAdditional  time.Duration
	gotDays        int
	gotCtxIP       string
}

func (f *fakeService) GenerateToken(ctx context.Context, pid int64, tokenType string, expiry time.Duration) services.GenerateResult {
	f.gotParticipant, f.gotType, f.gotExpiry = pid, tokenType, expiry
	f.gotCtxIP = services.ClientIP(ctx)
	return f.generate
}

func (f *fakeService) ValidateToken(_ context.Context, token, ip string) services.ValidateResult {
	f.gotToken, f.gotIP = token, ip
	return f.validate
}

func (f *fakeService) UseToken(_ context.Context, token, ip string) services.ValidateResult {
	f.gotToken, f.gotIP = token, ip
	return f.use
}

func (f *fakeService) ExtendToken(_ context.Context, token string, additional time.Duration) services.ExtendResult {
	f.gotToken, f.gotAdditional = token, additional
	return f.extend
}

func (f *fakeService) CleanupExpiredTokens(_ context.Context, days int) services.CleanupResult {
	f.gotDays = days
	return f.cleanup
}

func (f *fakeService) GetStatistics(context.Context) services.StatisticsResult {
	return f.statistics
}

func operatorHeader(t *testing.T) string {
	t.Helper()
	tok, err := auth.GenerateToken("ops-1", testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, router http.Handler, method, path, body, authz string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	req.RemoteAddr = "203.0.113.50:4321"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func newTestRouter(t *testing.T, svc ClaimService) *gin.Engine {
	t.Helper()
	router, err := NewRouter(svc, logging.Nop{}, testSecret, nil, nil)
	require.NoError(t, err)
	return router
}

func TestGenerate(t *testing.T) {
	svc := &fakeService{generate: services.GenerateResult{
		Outcome: services.Outcome{Success: true}, Token: "tok", ClaimURL: "https://x/claim/tok",
	}}
	router := newTestRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/api/v1/tokens", `{"participant_id":42,"token_type":"prize_tracking","expiry_seconds":3600}`, operatorHeader(t))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(42), svc.gotParticipant)
	assert.Equal(t, "prize_tracking", svc.gotType)
	assert.Equal(t, time.Hour, svc.gotExpiry)
	assert.Equal(t, "203.0.113.50", svc.gotCtxIP)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, false, body["existing"])
}

func TestGenerate_ExistingIs200(t *testing.T) {
	svc := &fakeService{generate: services.GenerateResult{Outcome: services.Outcome{Success: true}, Token: "tok", Existing: true}}
	rec := do(t, newTestRouter(t, svc), http.MethodPost, "/api/v1/tokens", `{"participant_id":42}`, operatorHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Duration(0), svc.gotExpiry)
}

func TestGenerate_BadRequests(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	for _, body := range []string{`{}`, `{"participant_id":"x"}`, `not json`, `{"participant_id":1,"expiry_seconds":-5}`, `{"participant_id":1,"expiry_seconds":18446744074}`} {
		rec := do(t, router, http.MethodPost, "/api/v1/tokens", body, operatorHeader(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestGenerate_Ineligible(t *testing.T) {
	svc := &fakeService{generate: services.GenerateResult{
		Outcome: services.Outcome{Error: services.MsgIneligible, Reason: services.ReasonIneligible},
	}}
	rec := do(t, newTestRouter(t, svc), http.MethodPost, "/api/v1/tokens", `{"participant_id":7}`, operatorHeader(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.MsgIneligible, decode(t, rec)["error"])
}

func TestOperatorRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	expired, err := auth.GenerateToken("ops", testSecret, -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("ops", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name, authz, wantErr string
	}{
		{"missing", "", "missing token"},
		{"not bearer", "Basic abc", "missing token"},
		{"expired", "Bearer " + expired, "token expired"},
		{"wrong secret", "Bearer " + foreign, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/v1/tokens/statistics", "", tt.authz)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantErr, decode(t, rec)["error"])
		})
	}
}

func TestValidate_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		outcome services.Outcome
		want    int
	}{
		{"success", services.Outcome{Success: true}, http.StatusOK},
		{"blocked", services.Outcome{Blocked: true, Reason: services.ReasonBlocked}, http.StatusTooManyRequests},
		{"expired", services.Outcome{Expired: true, Reason: services.ReasonTokenExpired}, http.StatusGone},
		{"not found", services.Outcome{Reason: services.ReasonTokenNotFound}, http.StatusNotFound},
		{"malformed", services.Outcome{Reason: services.ReasonInvalidFormat}, http.StatusBadRequest},
		{"internal", services.Outcome{Reason: services.ReasonInternal}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{validate: services.ValidateResult{Outcome: tt.outcome}}
			rec := do(t, newTestRouter(t, svc), http.MethodGet, "/api/v1/claims/abc123", "", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "abc123", svc.gotToken)
			assert.Equal(t, "203.0.113.50", svc.gotIP)
		})
	}
}

func TestValidate_PayloadShape(t *testing.T) {
	svc := &fakeService{validate: services.ValidateResult{
		Outcome:     services.Outcome{Success: true},
		Token:       &models.ClaimToken{ID: 1, ParticipantID: 42, Token: "tok"},
		Participant: &models.ParticipantView{ID: 42, Name: "Ann"},
		Prize:       &models.PrizeView{GameName: "Spring Draw", Currency: "EUR"},
	}}
	rec := do(t, newTestRouter(t, svc), http.MethodGet, "/api/v1/claims/tok", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	participant := body["participant"].(map[string]any)
	assert.EqualValues(t, 42, participant["id"])
	assert.Equal(t, "Spring Draw", body["prize"].(map[string]any)["game_name"])
	assert.NotContains(t, body, "error")
}

func TestRedeem_AlreadyUsedIsConflict(t *testing.T) {
	svc := &fakeService{use: services.ValidateResult{
		Outcome: services.Outcome{Error: services.MsgAlreadyUsed, Reason: services.ReasonAlreadyUsed},
	}}
	rec := do(t, newTestRouter(t, svc), http.MethodPost, "/api/v1/claims/tok/redeem", "", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.MsgAlreadyUsed, decode(t, rec)["error"])
}

func TestExtend(t *testing.T) {
	svc := &fakeService{extend: services.ExtendResult{Outcome: services.Outcome{Success: true}}}
	router := newTestRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/api/v1/tokens/tok/extend", `{"additional_seconds":7200}`, operatorHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", svc.gotToken)
	assert.Equal(t, 2*time.Hour, svc.gotAdditional)

	rec = do(t, router, http.MethodPost, "/api/v1/tokens/tok/extend", `{}`, operatorHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.gotToken = ""
	for _, body := range []string{`{"additional_seconds":18446744074}`, `{"additional_seconds":-18446744074}`} {
		rec = do(t, router, http.MethodPost, "/api/v1/tokens/tok/extend", body, operatorHeader(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, svc.gotToken, "overflowing durations never reach the service")

	rec = do(t, router, http.MethodPost, "/api/v1/tokens/tok/extend", `{"additional_seconds":9223372036}`, operatorHeader(t))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Duration(9223372036)*time.Second, svc.gotAdditional)

	svc.extend = services.ExtendResult{Outcome: services.Outcome{Error: services.MsgNotExtendable, Reason: services.ReasonNotExtendable}}
	rec = do(t, router, http.MethodPost, "/api/v1/tokens/tok/extend", `{"additional_seconds":60}`, operatorHeader(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanup(t *testing.T) {
	svc := &fakeService{cleanup: services.CleanupResult{Outcome: services.Outcome{Success: true}, Deleted: 3}}
	router := newTestRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/api/v1/tokens/cleanup?older_than_days=90", "", operatorHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90, svc.gotDays)
	assert.EqualValues(t, 3, decode(t, rec)["deleted"])

	rec = do(t, router, http.MethodPost, "/api/v1/tokens/cleanup", "", operatorHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.gotDays)

	rec = do(t, router, http.MethodPost, "/api/v1/tokens/cleanup?older_than_days=-1", "", operatorHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatistics(t *testing.T) {
	svc := &fakeService{statistics: services.StatisticsResult{
		Outcome: services.Outcome{Success: true},
		Stats:   &models.TokenStatistics{Total: 5, ByType: []models.TypeStatistics{}, Window: models.WindowStatistics{Days: 30, RedemptionRate: 12.5}},
	}}
	rec := do(t, newTestRouter(t, svc), http.MethodGet, "/api/v1/tokens/statistics", "", operatorHeader(t))

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["statistics"].(map[string]any)
	assert.EqualValues(t, 5, stats["total"])
	assert.Equal(t, 12.5, stats["window"].(map[string]any)["redemption_rate"])
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeService{}), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}
