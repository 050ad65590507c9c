package api

import (
	"net/http"

	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.Log.Error("failed to decode sign-up request body", zap.Error(err))
		s.fail(w, r, err)
		return
	}

	if _, err := s.Auth.SignUp(r.Context(), req.Email, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.Log.Error("failed to decode login request body", zap.Error(err))
		s.fail(w, r, err)
		return
	}

	session, err := s.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	session, err := s.Auth.GuestSession()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Log.Info("guest session started")
	respondWithJSON(w, http.StatusOK, session)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := s.Auth.SignOut(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	session, err := s.Auth.Session(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}
