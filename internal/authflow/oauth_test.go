package authflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return token
}

func TestOAuthClientRefreshGrant(t *testing.T) {
	var capturedForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		capturedForm = map[string]string{}
		for key := range r.PostForm {
			capturedForm[key] = r.PostForm.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at_1","expires_in":3600,"id_token":""}`))
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientOptions{
		TokenURL:     server.URL,
		ClientID:     "client_1",
		Scopes:       []string{"scope.a", "scope.b"},
		RefreshToken: "rt_1",
		HTTPClient:   server.Client(),
	})
	cred, err := client.RequestToken(context.Background(), PromptNone)
	if err != nil {
		t.Fatalf("request token failed: %v", err)
	}
	if cred.Token != "at_1" {
		t.Fatalf("unexpected access token: %q", cred.Token)
	}
	if cred.Expiry.IsZero() {
		t.Fatalf("expected expiry set from expires_in")
	}
	if capturedForm["grant_type"] != "refresh_token" || capturedForm["refresh_token"] != "rt_1" {
		t.Fatalf("unexpected form: %+v", capturedForm)
	}
	if capturedForm["client_id"] != "client_1" {
		t.Fatalf("expected client id in form, got %+v", capturedForm)
	}
	if capturedForm["scope"] != "scope.a scope.b" {
		t.Fatalf("expected space-joined scopes, got %q", capturedForm["scope"])
	}
}

func TestOAuthClientRequiresCachedCredential(t *testing.T) {
	client := NewOAuthClient(OAuthClientOptions{ClientID: "client_1"})
	if client.HasCachedCredential() {
		t.Fatalf("expected no cached credential")
	}
	if _, err := client.RequestToken(context.Background(), PromptConsent); err == nil {
		t.Fatalf("expected consent-required error without refresh token")
	}
	client.SetRefreshToken("rt_1")
	if !client.HasCachedCredential() {
		t.Fatalf("expected cached credential after set")
	}
}

func TestOAuthClientTokenEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientOptions{
		TokenURL:     server.URL,
		ClientID:     "client_1",
		RefreshToken: "rt_stale",
		HTTPClient:   server.Client(),
	})
	if _, err := client.RequestToken(context.Background(), PromptNone); err == nil {
		t.Fatalf("expected error for invalid grant")
	}
}

func TestOAuthClientRevoke(t *testing.T) {
	var capturedToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		capturedToken = r.PostForm.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientOptions{
		RevokeURL:  server.URL,
		HTTPClient: server.Client(),
	})
	if err := client.Revoke(context.Background(), Credential{Token: "at_1"}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if capturedToken != "at_1" {
		t.Fatalf("expected token in revoke form, got %q", capturedToken)
	}
}

func TestOAuthClientFetchUserinfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at_1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"user@example.com","name":"User","picture":"https://example.com/p.png"}`))
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientOptions{
		UserinfoURL: server.URL,
		HTTPClient:  server.Client(),
	})
	identity, err := client.Fetch(context.Background(), Credential{Token: "at_1"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if identity.Email != "user@example.com" || identity.Name != "User" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestOAuthClientFetchFallsBackToIDToken(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{"email": "claims@example.com", "name": "From Claims"})

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at_1","expires_in":3600,"id_token":"` + idToken + `"}`))
	}))
	defer tokenServer.Close()
	userinfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer userinfoServer.Close()

	client := NewOAuthClient(OAuthClientOptions{
		TokenURL:     tokenServer.URL,
		UserinfoURL:  userinfoServer.URL,
		RefreshToken: "rt_1",
		HTTPClient:   tokenServer.Client(),
	})
	cred, err := client.RequestToken(context.Background(), PromptNone)
	if err != nil {
		t.Fatalf("request token failed: %v", err)
	}
	identity, err := client.Fetch(context.Background(), cred)
	if err != nil {
		t.Fatalf("expected id token fallback, got %v", err)
	}
	if identity.Email != "claims@example.com" || identity.Name != "From Claims" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestIdentityFromIDToken(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{"email": "a@b.c", "name": "A", "picture": "p"})
	identity, err := IdentityFromIDToken(idToken)
	if err != nil {
		t.Fatalf("identity from id token failed: %v", err)
	}
	if identity.Email != "a@b.c" || identity.Name != "A" || identity.Picture != "p" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if _, err := IdentityFromIDToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
	empty := signedIDToken(t, jwt.MapClaims{"sub": "123"})
	if _, err := IdentityFromIDToken(empty); err == nil {
		t.Fatalf("expected error for token without profile claims")
	}
}
