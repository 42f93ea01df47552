package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sujinchoi3/my-todolist/internal/common"
	"github.com/sujinchoi3/my-todolist/internal/server/auth"
	"github.com/sujinchoi3/my-todolist/internal/server/models"
)

const maxBodyBytes = 1 << 20

type userResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// decode reads a JSON body into v. Malformed bodies are validation errors.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return common.ErrValidation.WithDetails([]common.FieldError{{Field: "body", Message: "Malformed JSON body."}})
	}
	return nil
}

func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeError(ctx, w, s.logger, common.ErrValidation.WithDetails(errs))
		return
	}

	user, err := s.auth.Signup(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeError(ctx, w, s.logger, common.ErrValidation.WithDetails(errs))
		return
	}

	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}

	s.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: res.AccessToken, User: toUserResponse(res.User)})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	access, err := s.auth.Refresh(ctx, refreshCookie(r))
	if err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context())
	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		writeError(ctx, w, s.logger, common.ErrUnauthorized)
		return
	}

	user, err := s.auth.Me(ctx, id.UserID)
	if err != nil {
		writeError(ctx, w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, s.logger, common.ErrNotFound)
}
