package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/lsmsample/lsmsample/pkg/authn"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin exchanges a username/password credential for a JWT, an
// alternative to minting tokens out-of-band with authn.Manager directly.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.users == nil {
		s.respondError(w, http.StatusServiceUnavailable, "password login is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		switch err {
		case authn.ErrUserNotFound, authn.ErrWrongPassword:
			s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.respondJSON(w, http.StatusOK, loginResponse{Token: token})
}
