package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

// HTTPGateway sends SMS through a token-authenticated bulk SMS REST API.
// It logs in with username/password and caches the token until shortly
// before it expires.
type HTTPGateway struct {
	apiURL      string
	username    string
	password    string
	mask        string
	countryCode string
	client      *http.Client

	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
	now         func() time.Time
}

// HTTPConfig holds configuration for the HTTP SMS gateway
type HTTPConfig struct {
	APIURL             string
	Username           string
	Password           string
	Mask               string
	DefaultCountryCode string
}

// NewHTTPGateway creates a new HTTP SMS gateway client
func NewHTTPGateway(config HTTPConfig) *HTTPGateway {
	return &HTTPGateway{
		apiURL:      strings.TrimRight(config.APIURL, "/"),
		username:    config.Username,
		password:    config.Password,
		mask:        config.Mask,
		countryCode: config.DefaultCountryCode,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// LoginRequest represents the login request structure
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response structure
type LoginResponse struct {
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"` // seconds
	ErrCode    string `json:"errCode"`
}

// Recipient represents a single SMS recipient
type Recipient struct {
	Mobile string `json:"mobile"`
}

// SendRequest represents the SMS sending request structure
type SendRequest struct {
	MSISDN        []Recipient `json:"msisdn"`
	Message       string      `json:"message"`
	SourceAddress string      `json:"sourceAddress,omitempty"`
	TransactionID int64       `json:"transaction_id"`
}

// SendResponse represents the SMS sending response structure
type SendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Data    struct {
		CampaignID   int     `json:"campaignId"`
		CampaignCost float64 `json:"campaignCost"`
	} `json:"data"`
	ErrCode string `json:"errCode"`
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// FormatMSISDN converts a national or international number to international
// digits: "012-345 6789" -> "60123456789" for country code "60".
func FormatMSISDN(phone, countryCode string) (string, error) {
	digits := nonDigits.ReplaceAllString(phone, "")
	if digits == "" {
		return "", fmt.Errorf("phone number has no digits")
	}

	switch {
	case countryCode != "" && strings.HasPrefix(digits, countryCode):
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	default:
		digits = countryCode + digits
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", fmt.Errorf("invalid phone number length after formatting: %d digits", len(digits))
	}
	return digits, nil
}

// Login retrieves and caches an access token
func (g *HTTPGateway) Login(ctx context.Context) error {
	payload, err := json.Marshal(LoginRequest{Username: g.username, Password: g.password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	body, err := g.post(ctx, "/login", "", payload)
	if err != nil {
		return fmt.Errorf("failed to send login request: %w", err)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if loginResp.Status != "success" {
		return fmt.Errorf("login failed: %s (error code: %s)", loginResp.Comment, loginResp.ErrCode)
	}

	g.tokenMutex.Lock()
	g.token = loginResp.Token
	g.tokenExpiry = g.now().Add(time.Duration(loginResp.Expiration) * time.Second)
	g.tokenMutex.Unlock()
	return nil
}

// validToken returns the cached token if it is not within 5 minutes of expiry
func (g *HTTPGateway) validToken() (string, bool) {
	g.tokenMutex.RLock()
	defer g.tokenMutex.RUnlock()

	if g.token == "" {
		return "", false
	}
	return g.token, g.now().Before(g.tokenExpiry.Add(-5 * time.Minute))
}

func (g *HTTPGateway) ensureToken(ctx context.Context) (string, error) {
	if token, ok := g.validToken(); ok {
		return token, nil
	}
	if err := g.Login(ctx); err != nil {
		return "", err
	}
	token, _ := g.validToken()
	return token, nil
}

// SendMessage sends a text message to one recipient
func (g *HTTPGateway) SendMessage(ctx context.Context, phone, message string) error {
	token, err := g.ensureToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	msisdn, err := FormatMSISDN(phone, g.countryCode)
	if err != nil {
		return fmt.Errorf("failed to format phone number: %w", err)
	}

	payload, err := json.Marshal(SendRequest{
		MSISDN:        []Recipient{{Mobile: msisdn}},
		Message:       message,
		SourceAddress: g.mask,
		TransactionID: g.now().UnixMicro(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	body, err := g.post(ctx, "/sms", token, payload)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return fmt.Errorf("failed to parse SMS response: %w", err)
	}
	if sendResp.Status != "success" {
		return fmt.Errorf("SMS sending failed: %s (error code: %s)", sendResp.Comment, sendResp.ErrCode)
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path, token string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return body, nil
}

// GetName returns the name of this SMS gateway
func (g *HTTPGateway) GetName() string {
	return "HTTP SMS Gateway"
}
