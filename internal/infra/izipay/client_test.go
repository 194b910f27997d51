package izipay

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateFormToken(t *testing.T) {
	var got createPaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, createPaymentPath, r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"SUCCESS","answer":{"formToken":"tok-123"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL + "/", Username: "shop", Password: "secret"})
	token, err := c.CreateFormToken(context.Background(), usecase.FormTokenRequest{
		Amount:   9980,
		Currency: "PEN",
		OrderID:  "SG-1",
		Customer: usecase.FormTokenCustomer{Email: "ana@example.com", Department: "Lima", District: "Miraflores"},
		Metadata: map[string]string{"shippingMethod": "olva"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	assert.Equal(t, int64(9980), got.Amount)
	assert.Equal(t, "SG-1", got.OrderID)
	assert.Equal(t, "Lima", got.Customer.BillingDetails.State)
	assert.Equal(t, "Miraflores", got.Customer.ShippingDetails.District)
	assert.Equal(t, "olva", got.Metadata["shippingMethod"])
}

func TestClient_CreateFormToken_ErrorAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","answer":{"errorCode":"INT_905","errorMessage":"invalid amount"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, Username: "shop", Password: "secret"})
	_, err := c.CreateFormToken(context.Background(), usecase.FormTokenRequest{Amount: 0})
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "INT_905")
}

func TestClient_CreateFormToken_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL, Username: "shop", Password: "wrong"})
	_, err := c.CreateFormToken(context.Background(), usecase.FormTokenRequest{})
	require.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_CreateFormToken_MissingCredentials(t *testing.T) {
	c := NewClient(Config{APIURL: "http://127.0.0.1:1"})
	_, err := c.CreateFormToken(context.Background(), usecase.FormTokenRequest{})
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_VerifyAnswer(t *testing.T) {
	c := NewClient(Config{HMACKey: "hmac-key"})
	answer := `{"orderStatus":"PAID"}`
	hash := hex.EncodeToString(Sign("hmac-key", answer))

	tests := []struct {
		name      string
		answer    string
		hash      string
		algorithm string
		wantErr   error
	}{
		{name: "valid", answer: answer, hash: hash, algorithm: "sha256_hmac"},
		{name: "uppercase hex", answer: answer, hash: strings.ToUpper(hash), algorithm: "SHA256_HMAC"},
		{name: "tampered answer", answer: `{"orderStatus":"PAID","x":1}`, hash: hash, algorithm: "sha256_hmac", wantErr: ErrHashMismatch},
		{name: "not hex", answer: answer, hash: "zz", algorithm: "sha256_hmac", wantErr: ErrHashMismatch},
		{name: "other algorithm", answer: answer, hash: hash, algorithm: "sha1", wantErr: ErrUnsupportedHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.VerifyAnswer(tt.answer, tt.hash, tt.algorithm)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

