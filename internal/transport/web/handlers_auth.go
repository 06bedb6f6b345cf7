package web

import (
	"net/http"

	"github.com/avstrong/hotelbooking/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var input auth.RegisterInput

	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)

		return
	}

	u, err := s.auth.Register(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, u)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	out, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	u, err := s.auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, u)
}
