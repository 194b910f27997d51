package izipay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/usecase"
)

const (
	createPaymentPath = "/api-payment/V4/Charge/CreatePayment"
	// kr-hash-algorithm で届く値
	HashAlgorithmHMACSHA256 = "sha256_hmac"
)

var (
	ErrMissingCredentials = errors.New("izipay: missing credentials")
	ErrRequestFailed      = errors.New("izipay: request failed")
	ErrHashMismatch       = errors.New("izipay: hash mismatch")
	ErrUnsupportedHash    = errors.New("izipay: unsupported hash algorithm")
)

type Config struct {
	APIURL   string
	Username string
	Password string
	HMACKey  string
	Timeout  time.Duration
}

// Client は izipay REST API（フォームトークン発行）と決済結果の署名確認
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type billingDetails struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	CellPhoneNumber string `json:"cellPhoneNumber,omitempty"`
	Address         string `json:"address,omitempty"`
	Country         string `json:"country,omitempty"`
	State           string `json:"state,omitempty"`
	City            string `json:"city,omitempty"`
	District        string `json:"district,omitempty"`
}

type shippingDetails struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
	Address2    string `json:"address2,omitempty"`
	Country     string `json:"country,omitempty"`
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
}

type customer struct {
	Email           string          `json:"email"`
	BillingDetails  billingDetails  `json:"billingDetails"`
	ShippingDetails shippingDetails `json:"shippingDetails"`
}

type createPaymentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	OrderID  string            `json:"orderId"`
	Customer customer          `json:"customer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type createPaymentResponse struct {
	Status string `json:"status"`
	Answer struct {
		FormToken    string `json:"formToken"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"answer"`
}

func (c *Client) CreateFormToken(ctx context.Context, req usecase.FormTokenRequest) (string, error) {
	if c.cfg.Username == "" || c.cfg.Password == "" {
		return "", ErrMissingCredentials
	}

	cu := req.Customer
	body, err := json.Marshal(createPaymentRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		OrderID:  req.OrderID,
		Customer: customer{
			Email: cu.Email,
			BillingDetails: billingDetails{
				FirstName:       cu.FirstName,
				LastName:        cu.LastName,
				CellPhoneNumber: cu.Phone,
				Address:         cu.Address,
				Country:         cu.Country,
				State:           cu.Department,
				City:            cu.Province,
				District:        cu.District,
			},
			ShippingDetails: shippingDetails{
				FirstName:   cu.FirstName,
				LastName:    cu.LastName,
				PhoneNumber: cu.Phone,
				Address:     cu.Address,
				Address2:    cu.Reference,
				Country:     cu.Country,
				State:       cu.Department,
				City:        cu.Province,
				District:    cu.District,
			},
		},
		Metadata: req.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("izipay: failed to marshal request: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, createPaymentPath, body)
	if err != nil {
		return "", err
	}

	var resp createPaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("izipay: failed to parse response: %w", err)
	}
	if resp.Status != "SUCCESS" || resp.Answer.FormToken == "" {
		return "", fmt.Errorf("%w: %s %s", ErrRequestFailed, resp.Answer.ErrorCode, resp.Answer.ErrorMessage)
	}
	return resp.Answer.FormToken, nil
}

// kr-answer を HMAC-SHA256（キーは HMAC 用キー）で確認する
func (c *Client) VerifyAnswer(answer string, hash string, algorithm string) error {
	if algorithm != "" && !strings.EqualFold(algorithm, HashAlgorithmHMACSHA256) {
		return fmt.Errorf("%w: %s", ErrUnsupportedHash, algorithm)
	}
	if c.cfg.HMACKey == "" {
		return ErrMissingCredentials
	}

	got, err := hex.DecodeString(strings.TrimSpace(hash))
	if err != nil {
		return ErrHashMismatch
	}
	if !hmac.Equal(got, Sign(c.cfg.HMACKey, answer)) {
		return ErrHashMismatch
	}
	return nil
}

// Sign は kr-hash と同じ計算（テストや手動確認用）
func Sign(key string, answer string) []byte {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(answer))
	return mac.Sum(nil)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("izipay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("izipay: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}
	return respBody, nil
}
