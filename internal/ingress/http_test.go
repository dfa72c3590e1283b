package ingress

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangecore/matchkernel/internal/broadcast"
	"github.com/exchangecore/matchkernel/internal/obsmetrics"
	"github.com/exchangecore/matchkernel/internal/registry"
)

func newTestServer() *Server {
	return NewServer(registry.New(), NewAuthenticator("test-secret"), nil, broadcast.NewHub(), obsmetrics.New())
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWalletRegisterAndIssueToken(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/wallets", walletCredentials{Wallet: "w1", Secret: "hunter2"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/wallets/w1/token", map[string]string{"secret": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestWalletRegisterRejectsDuplicate(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	doJSON(t, router, http.MethodPost, "/v1/wallets", walletCredentials{Wallet: "w1", Secret: "hunter2"})
	rec := doJSON(t, router, http.MethodPost, "/v1/wallets", walletCredentials{Wallet: "w1", Secret: "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIssueTokenRejectsWrongSecret(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	doJSON(t, router, http.MethodPost, "/v1/wallets", walletCredentials{Wallet: "w1", Secret: "hunter2"})
	rec := doJSON(t, router, http.MethodPost, "/v1/wallets/w1/token", map[string]string{"secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueTokenRejectsUnknownWallet(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/wallets/ghost/token", map[string]string{"secret": "anything"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssuedTokenAuthenticatesOrderSubmission(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	doJSON(t, router, http.MethodPost, "/v1/wallets", walletCredentials{Wallet: "w1", Secret: "hunter2"})
	rec := doJSON(t, router, http.MethodPost, "/v1/wallets/w1/token", map[string]string{"secret": "hunter2"})
	var tokenResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))

	body, err := json.Marshal(OrderRequest{OrderID: "A", Side: "BUY", Price: "100.00", Quantity: 5})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/markets/BTC-USD/orders", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenResp["token"])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubmitRejectsMissingToken(t *testing.T) {
	s := newTestServer()
	router := s.Router()

	body, err := json.Marshal(OrderRequest{OrderID: "A", Side: "BUY", Price: "100.00", Quantity: 5})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/markets/BTC-USD/orders", bytes.NewReader(body))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
