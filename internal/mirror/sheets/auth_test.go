package sheets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE",
		"GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testClientJSON))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "test" || len(cfg.Scopes) != 1 {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := OAuthConfig([]byte("{}")); err == nil {
		t.Error("expected error for empty client definition")
	}
}

func TestParseToken(t *testing.T) {
	tok, err := ParseToken([]byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`))
	if err != nil {
		t.Fatal(err)
	}
	if tok.RefreshToken != "r" {
		t.Errorf("refresh token = %q", tok.RefreshToken)
	}

	if _, err := ParseToken([]byte(`{}`)); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := ParseToken([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestCredentialsOption_OAuthFromFiles(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"a","refresh_token":"r"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", clientFile)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", tokenFile)

	if _, err := credentialsOption(context.Background()); err != nil {
		t.Fatalf("credentialsOption: %v", err)
	}
}

func TestCredentialsOption_OAuthNeedsToken(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testClientJSON)

	if _, err := credentialsOption(context.Background()); err != errNoCredentials {
		t.Fatalf("got %v, want errNoCredentials", err)
	}
}
