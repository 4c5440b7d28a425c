package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viewtube/apiserver/internal/services"
	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
	"github.com/viewtube/apiserver/types"
)

const (
	refreshTokenCookie = "refreshToken"

	maxMultipartMemory = 32 << 20
	maxImageBytes      = 8 << 20

	formFieldFullName   = "fullName"
	formFieldEmail      = "email"
	formFieldUsername   = "userName"
	formFieldPassword   = "password"
	formFieldAvatar     = "avatar"
	formFieldCoverImage = "coverImage"

	avatarFolder = "avatars"
	coverFolder  = "covers"
)

// AuthHandler provides the account and session endpoints.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	media       *services.MediaService
	issuer      *token.Issuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	authService *services.AuthService,
	userService *services.UserService,
	media *services.MediaService,
	issuer *token.Issuer,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		media:       media,
		issuer:      issuer,
	}
}

// AuthRouter registers the account/session routes on the given router.
func AuthRouter(
	r chi.Router,
	authService *services.AuthService,
	userService *services.UserService,
	media *services.MediaService,
	issuer *token.Issuer,
) {
	handler := NewAuthHandler(authService, userService, media, issuer)
	auth := RequireAuth(issuer)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh", handler.Refresh)
	r.With(auth).Post("/logout", handler.Logout)
	r.With(auth).Post("/change-password", handler.ChangePassword)
	r.With(auth).Get("/me", handler.Me)
}

// Register creates a new account from a multipart form carrying the
// identity fields, a required avatar image, and an optional cover
// image.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue(formFieldFullName))
	email := strings.TrimSpace(r.FormValue(formFieldEmail))
	username := strings.TrimSpace(r.FormValue(formFieldUsername))
	password := r.FormValue(formFieldPassword)
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(password) == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	// A taken identity fails here, before any media is uploaded.
	if err := h.authService.EnsureAvailable(r.Context(), email, username); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	avatar, err := formImage(r.MultipartForm, formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cover, hasCover, err := optionalFormImage(r.MultipartForm, formFieldCoverImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	avatarURL, err := h.media.Upload(r.Context(), avatarFolder, avatar.Filename, avatar.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upload avatar")
		return
	}

	coverURL := ""
	if hasCover {
		coverURL, err = h.media.Upload(r.Context(), coverFolder, cover.Filename, cover.Data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload cover image")
			return
		}
	}

	user, err := h.authService.Register(r.Context(), services.RegisterParams{
		FullName:      fullName,
		Email:         email,
		Username:      username,
		Password:      password,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeData(w, http.StatusCreated, user, "user created successfully")
}

// Login verifies credentials, issues a token pair, and sets the token
// cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" && req.Username == "" {
		writeError(w, http.StatusBadRequest, "email or username is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	user, pair, err := h.authService.Login(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}

	setTokenCookies(w, pair)
	writeData(w, http.StatusOK, SessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "logged in successfully")
}

// Refresh rotates the session from a refresh token presented in the
// cookie or the request body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	if presented == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	user, pair, err := h.authService.Refresh(r.Context(), presented)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	setTokenCookies(w, pair)
	writeData(w, http.StatusOK, SessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "session refreshed")
}

// Logout clears the stored refresh token and both cookies. Logging out
// twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	clearTokenCookies(w)
	writeData(w, http.StatusOK, nil, "logged out successfully")
}

// ChangePassword verifies the old password and replaces it.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "old password is incorrect")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}

	writeData(w, http.StatusOK, nil, "password changed successfully")
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeData(w, http.StatusOK, user, "current user")
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"userName"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// SessionResponse carries the sanitized user and the freshly issued
// token pair.
type SessionResponse struct {
	User         types.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

func setTokenCookies(w http.ResponseWriter, pair token.Pair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	})
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			MaxAge:   -1,
		})
	}
}
