package profile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-fitness-planner/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// SyncClient fetches onboarding profiles from the remote profile service.
type SyncClient interface {
	FetchProfiles() ([]StoredProfile, error)
}

// profilesResponse is the top-level structure of the profile API response.
type profilesResponse struct {
	Profiles []StoredProfile `json:"profiles"`
}

type httpSyncClient struct {
	httpClient *http.Client
	config     *config.Config
}

// NewSyncClient creates a client for the remote profile service.
func NewSyncClient(cfg *config.Config) SyncClient {
	return &httpSyncClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}

// FetchProfiles pulls all onboarding profiles. The service authenticates
// requests with a short-lived JWT minted from the configured API key.
func (c *httpSyncClient) FetchProfiles() ([]StoredProfile, error) {
	token, err := c.createToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create api token: %w", err)
	}

	url := fmt.Sprintf("%s/rest/v1/profiles", strings.TrimSuffix(c.config.ProfileAPIURL, "/"))
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile api error: status %d", resp.StatusCode)
	}

	var response profilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Profiles, nil
}

// createToken generates a short-lived JWT from the "keyID:hexSecret" API key.
func (c *httpSyncClient) createToken() (string, error) {
	keyParts := strings.Split(c.config.ProfileAPIKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid api key format: expected id:secret")
	}

	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/rest/v1/",
	})
	token.Header["kid"] = keyParts[0]

	return token.SignedString(secret)
}
