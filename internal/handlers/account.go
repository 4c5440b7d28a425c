package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viewtube/apiserver/internal/services"
	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
	"github.com/viewtube/apiserver/types"
)

// AccountHandler provides profile update endpoints.
type AccountHandler struct {
	userService *services.UserService
	media       *services.MediaService
}

func NewAccountHandler(userService *services.UserService, media *services.MediaService) *AccountHandler {
	return &AccountHandler{
		userService: userService,
		media:       media,
	}
}

// AccountRouter registers the profile update routes; all of them
// require authentication.
func AccountRouter(r chi.Router, userService *services.UserService, media *services.MediaService, issuer *token.Issuer) {
	handler := NewAccountHandler(userService, media)
	auth := RequireAuth(issuer)

	r.With(auth).Patch("/account", handler.UpdateAccount)
	r.With(auth).Patch("/avatar", handler.UpdateAvatar)
	r.With(auth).Patch("/cover-image", handler.UpdateCoverImage)
}

// UpdateAccount applies a partial update to the identity fields.
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	patch := services.AccountPatch{
		FullName: req.FullName,
		Email:    req.Email,
		Username: req.Username,
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "at least one field is required")
		return
	}

	user, err := h.userService.UpdateAccount(r.Context(), userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBlankField):
			writeError(w, http.StatusBadRequest, "fields must not be blank")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "email or username already taken")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	writeData(w, http.StatusOK, user, "account updated successfully")
}

// UpdateAvatar uploads a new avatar image and stores its URL.
func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, formFieldAvatar, avatarFolder, h.userService.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (h *AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, formFieldCoverImage, coverFolder, h.userService.UpdateCoverImage)
}

func (h *AccountHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, folder string,
	update func(ctx context.Context, id int, url string) (types.User, error),
) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	image, err := formImage(r.MultipartForm, field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.media.Upload(r.Context(), folder, image.Filename, image.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upload "+field)
		return
	}

	user, err := update(r.Context(), userID, url)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update "+field)
		return
	}

	writeData(w, http.StatusOK, user, field+" updated successfully")
}

type UpdateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Username *string `json:"userName"`
}
