package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(42, "maya@example.com", "secret")
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "maya@example.com", claims.Email)

	userID, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int32(42), userID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(42, "maya@example.com", "secret")
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other-secret")
	require.Error(t, err)
}

func TestAccessTokenGarbage(t *testing.T) {
	_, err := ValidateAccessToken("not-a-token", "secret")
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, CheckPassword(hash, "correct horse battery staple"))
	require.False(t, CheckPassword(hash, "wrong password"))
}

func TestVerifyIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":     "google-sub-1",
			"email":   "maya@example.com",
			"name":    "Maya",
			"picture": "https://example.com/p.png",
			"aud":     "client-id-1",
		})
	}))
	defer srv.Close()

	v := NewGoogleVerifier("client-id-1")
	v.TokenInfoEndpoint = srv.URL

	user, err := v.VerifyIDToken(context.Background(), "good-token")
	require.NoError(t, err)
	require.Equal(t, "google-sub-1", user.Sub)
	require.Equal(t, "Maya", user.Name)

	_, err = v.VerifyIDToken(context.Background(), "bad-token")
	require.Error(t, err)
}

func TestVerifyIDTokenAudienceMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sub": "s", "aud": "someone-else"})
	}))
	defer srv.Close()

	v := NewGoogleVerifier("client-id-1")
	v.TokenInfoEndpoint = srv.URL

	_, err := v.VerifyIDToken(context.Background(), "token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "audience mismatch")
}

func TestFetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"sub": "google-sub-2", "email": "lee@example.com"})
	}))
	defer srv.Close()

	v := NewGoogleVerifier("")
	v.UserInfoEndpoint = srv.URL

	user, err := v.FetchUserInfo(context.Background(), "access-token-1")
	require.NoError(t, err)
	require.Equal(t, "lee@example.com", user.Email)

	_, err = v.FetchUserInfo(context.Background(), "wrong-token")
	require.Error(t, err)
}
