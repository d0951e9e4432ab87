// services/auth_provider_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"game-prereg-system/utils"
)

// ProviderError is a non-2xx reply from the auth provider
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider returned %d: %s %s", e.Status, e.Code, e.Message)
}

// AuthProviderClient talks to the hosted passwordless auth provider
type AuthProviderClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAuthProviderClient(baseURL, apiKey string) *AuthProviderClient {
	return &AuthProviderClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  utils.HTTPClient,
	}
}

// SendMagicLink calls /auth/v1/otp; the provider emails a sign-in link that
// lands on redirectURL.
func (c *AuthProviderClient) SendMagicLink(ctx context.Context, email, redirectURL string) error {
	endpoint := c.BaseURL + "/auth/v1/otp"
	if redirectURL != "" {
		endpoint += "?" + url.Values{"redirect_to": {redirectURL}}.Encode()
	}

	reqBody := map[string]interface{}{
		"email":       email,
		"create_user": true,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	log.Printf("⚠️ [AUTH_PROVIDER] /auth/v1/otp returned %d: %s", resp.StatusCode, string(body))
	var out struct {
		Code        string `json:"error_code"`
		Error       string `json:"error"`
		Msg         string `json:"msg"`
		Description string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &out)
	perr := &ProviderError{Status: resp.StatusCode, Code: out.Code}
	for _, m := range []string{out.Msg, out.Description, out.Error} {
		if m != "" {
			perr.Message = m
			break
		}
	}
	return perr
}
