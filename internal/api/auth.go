package api

import (
	"net/http"

	"github.com/vhamcloud/orchestrator/internal/apierrors"
	"github.com/vhamcloud/orchestrator/internal/auth"
	"github.com/vhamcloud/orchestrator/internal/database"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// handleLogin checks the submitted form credentials against the users
// table and issues a bearer token, per spec.md §6. The form-encoded body
// (rather than JSON) matches the teacher's own OAuth-form conventions in
// internal/api/auth.go and the out-of-scope auth surface's original shape
// in _examples/original_source/auth_api.py's /login endpoint.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apierrors.HandleError(w, apierrors.NewValidation("malformed form body", nil))
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		apierrors.HandleError(w, apierrors.NewValidation("username and password are required", nil))
		return
	}

	user, err := s.db.GetUserByUsername(r.Context(), username)
	if err != nil {
		if database.IsNoRows(err) {
			apierrors.HandleError(w, apierrors.NewAuth("invalid username or password"))
			return
		}
		apierrors.HandleError(w, apierrors.NewInternal(""))
		return
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		apierrors.HandleError(w, apierrors.NewAuth("invalid username or password"))
		return
	}

	token, err := s.auth.IssueToken(user.ID, user.Role)
	if err != nil {
		apierrors.HandleError(w, apierrors.NewInternal("failed to issue token"))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer", Role: user.Role})
}
