package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
	defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type OAuthClientOptions struct {
	TokenURL     string
	RevokeURL    string
	UserinfoURL  string
	ClientID     string
	Scopes       []string
	RefreshToken string
	HTTPClient   *http.Client
}

// OAuthClient implements TokenIssuer and ProfileFetcher against the OAuth
// endpoints of the identity provider. The cached credential is a refresh
// token; when none is held, sign-in needs the consent path, which for this
// client means the user supplies a refresh token out of band.
type OAuthClient struct {
	tokenURL    string
	revokeURL   string
	userinfoURL string
	clientID    string
	scopes      []string
	httpClient  *http.Client

	mu           sync.Mutex
	refreshToken string
	lastIDToken  string
}

func NewOAuthClient(opts OAuthClientOptions) *OAuthClient {
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	revokeURL := strings.TrimSpace(opts.RevokeURL)
	if revokeURL == "" {
		revokeURL = defaultRevokeURL
	}
	userinfoURL := strings.TrimSpace(opts.UserinfoURL)
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthClient{
		tokenURL:     tokenURL,
		revokeURL:    revokeURL,
		userinfoURL:  userinfoURL,
		clientID:     strings.TrimSpace(opts.ClientID),
		scopes:       opts.Scopes,
		httpClient:   httpClient,
		refreshToken: strings.TrimSpace(opts.RefreshToken),
	}
}

func (c *OAuthClient) HasCachedCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// SetRefreshToken replaces the cached credential, e.g. after the user
// completes the consent flow in a browser.
func (c *OAuthClient) SetRefreshToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshToken = strings.TrimSpace(token)
}

func (c *OAuthClient) RequestToken(ctx context.Context, prompt PromptMode) (Credential, error) {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()

	if refreshToken == "" {
		return Credential{}, errors.New("consent required: no cached credential; sign in with a refresh token first")
	}
	_ = prompt // a cached refresh token serves both modes at this layer

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if len(c.scopes) > 0 {
		form.Set("scope", strings.Join(c.scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Credential{}, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, oauthErrorMessage(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		IDToken     string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return Credential{}, errors.New("token response carried no access token")
	}

	c.mu.Lock()
	c.lastIDToken = parsed.IDToken
	c.mu.Unlock()

	cred := Credential{Token: parsed.AccessToken}
	if parsed.ExpiresIn > 0 {
		cred.Expiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	return cred, nil
}

func (c *OAuthClient) Revoke(ctx context.Context, cred Credential) error {
	if cred.Token == "" {
		return nil
	}
	form := url.Values{}
	form.Set("token", cred.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revoke endpoint returned status %d: %s", resp.StatusCode, oauthErrorMessage(body))
	}
	return nil
}

// Fetch resolves the profile from the userinfo endpoint, falling back to
// the claims of the last ID token when the endpoint is unreachable.
func (c *OAuthClient) Fetch(ctx context.Context, cred Credential) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.identityFromIDToken(err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return c.identityFromIDToken(readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.identityFromIDToken(fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode))
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return c.identityFromIDToken(err)
	}
	return identity, nil
}

func (c *OAuthClient) identityFromIDToken(cause error) (Identity, error) {
	c.mu.Lock()
	idToken := c.lastIDToken
	c.mu.Unlock()
	if idToken == "" {
		return Identity{}, cause
	}
	identity, err := IdentityFromIDToken(idToken)
	if err != nil {
		return Identity{}, cause
	}
	return identity, nil
}

func oauthErrorMessage(body []byte) string {
	var parsed struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		if parsed.ErrorDescription != "" {
			return parsed.Error + ": " + parsed.ErrorDescription
		}
		return parsed.Error
	}
	return strings.TrimSpace(string(body))
}
