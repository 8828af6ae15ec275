package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceAccountJSON(t *testing.T, tokenURL string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "timeoff-sync",
		"private_key_id": "key-1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "sync@timeoff-sync.iam.gserviceaccount.com",
		"client_id":      "1234",
		"token_uri":      tokenURL,
	})
	require.NoError(t, err)
	return raw
}

func TestGoogleService_DelegatesToSubject(t *testing.T) {
	var subject, scope string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))

		claims, err := jwt.ParseString(r.Form.Get("assertion"), jwt.WithVerify(false), jwt.WithValidate(false))
		require.NoError(t, err)
		subject = claims.Subject()
		if v, ok := claims.Get("scope"); ok {
			scope, _ = v.(string)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"delegated","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer delegated", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, err := NewGoogleService(serviceAccountJSON(t, srv.URL+"/token"), []string{"https://www.googleapis.com/auth/calendar.events"})
	require.NoError(t, err)
	assert.Equal(t, "sync@timeoff-sync.iam.gserviceaccount.com", svc.ServiceAccountEmail())

	client, err := svc.HTTPClient(context.Background(), "alice@example.com")
	require.NoError(t, err)
	resp, err := client.Get(srv.URL + "/calendar")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", subject)
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events", scope)
}

func TestGoogleService_RequiresSubject(t *testing.T) {
	svc, err := NewGoogleService(serviceAccountJSON(t, "http://127.0.0.1/token"), nil)
	require.NoError(t, err)

	_, err = svc.HTTPClient(context.Background(), "")
	assert.Error(t, err)
}

func TestGoogleService_InvalidCredentials(t *testing.T) {
	_, err := NewGoogleService([]byte(`{"type":"authorized_user"}`), nil)
	assert.Error(t, err)

	_, err = NewGoogleServiceFromFile("/nonexistent/sa.json", nil)
	assert.Error(t, err)
}
