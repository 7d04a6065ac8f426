package v1

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedyxlabs/vedyx/auth"
	"github.com/vedyxlabs/vedyx/store"
)

type googleExchangeRequest struct {
	IDToken     string           `json:"idToken"`
	AccessToken string           `json:"accessToken"`
	UserInfo    *auth.GoogleUser `json:"userInfo"`
}

type userResponse struct {
	ID          int32  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// handleGoogleExchange swaps a Google credential for a first-party access
// token. Client-supplied identity claims are never trusted: the ID token is
// verified with Google, and an access token is resolved against Google's
// userinfo endpoint unless the client already supplied the userinfo payload.
func (s *APIV1Service) handleGoogleExchange(c echo.Context) error {
	request := &googleExchangeRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	var googleUser *auth.GoogleUser
	var err error

	switch {
	case request.IDToken != "":
		googleUser, err = s.Verifier.VerifyIDToken(ctx, request.IDToken)
		if err != nil {
			s.recordAuth("google", false)
			slog.Warn("google id token rejected", "error", err)
			return errorJSONDetail(c, http.StatusUnauthorized, "Failed to verify Google ID Token", err.Error())
		}
	case request.AccessToken != "":
		if request.UserInfo != nil && request.UserInfo.Sub != "" {
			googleUser = request.UserInfo
		} else {
			googleUser, err = s.Verifier.FetchUserInfo(ctx, request.AccessToken)
			if err != nil {
				s.recordAuth("google", false)
				slog.Warn("google access token rejected", "error", err)
				return errorJSONDetail(c, http.StatusUnauthorized, "Failed to verify Google Access Token", err.Error())
			}
		}
	default:
		return errorJSON(c, http.StatusBadRequest, "Missing ID Token or Access Token")
	}

	user, err := s.upsertGoogleUser(ctx, googleUser)
	if err != nil {
		s.recordAuth("google", false)
		slog.Error("failed to upsert google user", "sub", googleUser.Sub, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to save user")
	}

	token, err := auth.GenerateAccessToken(user.ID, user.Email, s.Secret)
	if err != nil {
		s.recordAuth("google", false)
		return errorJSON(c, http.StatusInternalServerError, "failed to create token")
	}

	s.recordAuth("google", true)
	return c.JSON(http.StatusOK, tokenResponse{Token: token, User: toUserResponse(user)})
}

// upsertGoogleUser finds the account by Google subject, links by email for
// accounts created through password signup, or creates a fresh account.
func (s *APIV1Service) upsertGoogleUser(ctx context.Context, googleUser *auth.GoogleUser) (*store.User, error) {
	now := time.Now().UnixMilli()

	user, err := s.Store.GetUser(ctx, &store.FindUser{GoogleID: &googleUser.Sub})
	if err != nil {
		return nil, err
	}
	if user == nil && googleUser.Email != "" {
		user, err = s.Store.GetUser(ctx, &store.FindUser{Email: &googleUser.Email})
		if err != nil {
			return nil, err
		}
	}

	if user == nil {
		return s.Store.CreateUser(ctx, &store.User{
			Email:       googleUser.Email,
			DisplayName: googleUser.Name,
			PhotoURL:    googleUser.Picture,
			GoogleID:    googleUser.Sub,
			CreatedTs:   now,
			UpdatedTs:   now,
		})
	}

	update := &store.UpdateUser{ID: user.ID, UpdatedTs: &now}
	if user.GoogleID == "" {
		update.GoogleID = &googleUser.Sub
	}
	if googleUser.Name != "" {
		update.DisplayName = &googleUser.Name
	}
	if googleUser.Picture != "" {
		update.PhotoURL = &googleUser.Picture
	}
	return s.Store.UpdateUser(ctx, update)
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *APIV1Service) handleSignup(c echo.Context) error {
	request := &signupRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid email address")
	}
	if len(request.Password) < 8 {
		return errorJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx := c.Request().Context()
	existing, err := s.Store.GetUser(ctx, &store.FindUser{Email: &email})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to look up user")
	}
	if existing != nil {
		return errorJSON(c, http.StatusConflict, "email already registered")
	}

	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to process password")
	}

	now := time.Now().UnixMilli()
	user, err := s.Store.CreateUser(ctx, &store.User{
		Email:        email,
		DisplayName:  request.DisplayName,
		PasswordHash: hash,
		CreatedTs:    now,
		UpdatedTs:    now,
	})
	if err != nil {
		s.recordAuth("signup", false)
		return errorJSON(c, http.StatusInternalServerError, "failed to create user")
	}

	token, err := auth.GenerateAccessToken(user.ID, user.Email, s.Secret)
	if err != nil {
		s.recordAuth("signup", false)
		return errorJSON(c, http.StatusInternalServerError, "failed to create token")
	}

	s.recordAuth("signup", true)
	return c.JSON(http.StatusOK, tokenResponse{Token: token, User: toUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *APIV1Service) handleLogin(c echo.Context) error {
	request := &loginRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))
	if email == "" || request.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	user, err := s.Store.GetUser(ctx, &store.FindUser{Email: &email})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to look up user")
	}
	if user == nil || user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, request.Password) {
		s.recordAuth("login", false)
		return errorJSON(c, http.StatusUnauthorized, "invalid email or password")
	}

	token, err := auth.GenerateAccessToken(user.ID, user.Email, s.Secret)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to create token")
	}

	s.recordAuth("login", true)
	return c.JSON(http.StatusOK, tokenResponse{Token: token, User: toUserResponse(user)})
}

func (s *APIV1Service) recordAuth(method string, success bool) {
	if s.Metrics != nil {
		s.Metrics.RecordAuthAttempt(method, success)
	}
}

func toUserResponse(user *store.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}
}
