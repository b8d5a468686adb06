package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

const refreshTokenCookie = "refreshToken"

// UserHandler implements account, authentication, and profile endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Views    Views
	Uploads  Uploader
	Cleanup  Cleaner
	TempDir  string
	NowFunc  func() time.Time
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type registerForm struct {
	Username string `validate:"required,min=3,max=30"`
	Email    string `validate:"required,email"`
	FullName string `validate:"required,max=120"`
	Password string `validate:"required,min=8"`
}

// Register handles POST /api/v1/users/register. The avatar file is required;
// the cover image is optional. Both land in remote storage before the account
// row is written.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid multipart payload", err))
		return
	}

	form := registerForm{
		Username: strings.ToLower(strings.TrimSpace(r.FormValue("username"))),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Password: r.FormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid registration payload", err))
		return
	}

	avatar, err := stageFormFile(r, "avatar", h.TempDir)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer avatar.Remove()
	if avatar.Path == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "avatar file is required"))
		return
	}

	cover, err := stageFormFile(r, "coverImage", h.TempDir)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer cover.Remove()

	avatarURL, err := h.Uploads.Upload(ctx, assetKey("avatars", avatar.Name), avatar.Path)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store avatar", err))
		return
	}

	var coverURL string
	if cover.Path != "" {
		coverURL, err = h.Uploads.Upload(ctx, assetKey("covers", cover.Name), cover.Path)
		if err != nil {
			respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store cover image", err))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to hash password", err))
		return
	}

	now := h.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     form.Username,
		Email:        form.Email,
		FullName:     form.FullName,
		PasswordHash: string(hash),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		respondError(ctx, w, err)
		return
	}

	logger.Info("user registered", "userId", user.ID, "username", user.Username)
	respond(ctx, w, http.StatusCreated, user, "user registered")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/users/login. Accepts username or email.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "username or email is required"))
		return
	}

	user, err := h.Users.FindByLogin(ctx, identifier)
	if err != nil {
		logger.Warn("login lookup failed", "identifier", identifier)
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "invalid credentials"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to create session", err))
		return
	}

	h.setSessionCookies(w, tokens)
	logger.Info("user logged in", "userId", user.ID)
	respond(ctx, w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	}, "logged in")
}

// Logout handles GET /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := requirePrincipal(r); err != nil {
		respondError(ctx, w, err)
		return
	}

	var req refreshRequest
	if token := h.refreshTokenFrom(r, &req); token != "" {
		h.Sessions.Revoke(ctx, token)
	}

	h.clearSessionCookies(w)
	respond(ctx, w, http.StatusOK, nil, "logged out")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles GET /api/v1/users/refresh-token. The token comes from
// the httpOnly cookie or the request body; a rotated or unknown token is
// rejected as Unauthenticated.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	token := h.refreshTokenFrom(r, &req)
	if token == "" {
		respondError(ctx, w, apperr.New(apperr.Unauthenticated, "refresh token is required"))
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, tokens, "session refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "user"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "old password is incorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to hash password", err))
		return
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, nil, "password changed")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "user"))
		return
	}

	respond(ctx, w, http.StatusOK, user, "current user")
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "user"))
		return
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, user, "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/update-avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars", func(u *models.User, url string) string {
		old := u.Avatar
		u.Avatar = url
		return old
	})
}

// UpdateCoverImage handles PATCH /api/v1/users/update-coverImg.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers", func(u *models.User, url string) string {
		old := u.CoverImage
		u.CoverImage = url
		return old
	})
}

// updateImage is the shared replace-and-clean flow behind the avatar and
// cover-image endpoints. The previous asset is removed best-effort after the
// record update commits.
func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field, kind string, swap func(*models.User, string) string) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid multipart payload", err))
		return
	}

	staged, err := stageFormFile(r, field, h.TempDir)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer staged.Remove()
	if staged.Path == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, field+" file is required"))
		return
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "user"))
		return
	}

	url, err := h.Uploads.Upload(ctx, assetKey(kind, staged.Name), staged.Path)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store "+field, err))
		return
	}

	previous := swap(&user, url)
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		respondError(ctx, w, err)
		return
	}

	if h.Cleanup != nil && previous != "" {
		if err := h.Cleanup.Enqueue(ctx, previous); err != nil {
			logging.FromContext(ctx).Warn("failed to queue asset cleanup", "location", previous, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, user, field+" updated")
}

// UserChannel handles GET /api/v1/users/user-channel/{username}.
func (h UserHandler) UserChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "username is required"))
		return
	}

	var viewerID string
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		viewerID = principal.UserID
	}

	profile, err := h.Views.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "channel"))
		return
	}

	respond(ctx, w, http.StatusOK, profile, "channel profile")
}

// WatchHistory handles GET /api/v1/users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	history, err := h.Views.WatchHistory(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, history, "watch history")
}

func (h UserHandler) refreshTokenFrom(r *http.Request, req *refreshRequest) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if req != nil && r.Body != nil {
		_ = decodeJSON(r, req)
		return req.RefreshToken
	}
	return ""
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
