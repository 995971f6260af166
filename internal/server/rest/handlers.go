package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/dmitrijs2005/tzikbal/internal/server/services"
)

// UserService is the account logic the handlers depend on.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.SafeUser, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RegisterOrLinkFederated(ctx context.Context, a models.Assertion) (*models.SafeUser, error)
	IssueSession(user *models.SafeUser) (string, error)
	VerifySession(token string) (*models.Identity, error)
	GetProfile(ctx context.Context, email string) (*models.SafeUser, error)
}

type MediaService interface {
	Upload(ctx context.Context, f models.UploadedFile) (string, error)
}

// IdentityProvider runs the authorization-code flow of an external
// identity provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.Assertion, error)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "success", map[string]string{"message": "API Running!"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "success", map[string]string{"version": s.version})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(w, r, s.validate, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, "User registered successfully", user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, s.validate, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Login successful", LoginResponse{AccessToken: res.AccessToken, User: res.User})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, s.log, common.ErrUnauthorized)
		return
	}

	user, err := s.users.GetProfile(r.Context(), id.Email)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Profile retrieved successfully", user)
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeError(w, r, s.log, common.ErrProviderNotEnabled)
		return
	}

	state, err := newState()
	if err != nil {
		writeError(w, r, s.log, fmt.Errorf("generate oauth state: %w", err))
		return
	}
	if err := s.states.Save(r.Context(), state); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeError(w, r, s.log, common.ErrProviderNotEnabled)
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.log.Warn(r.Context(), "google consent denied", "error", e)
		writeError(w, r, s.log, common.ErrMissingAssertion)
		return
	}
	if err := s.states.Consume(r.Context(), q.Get("state")); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	assertion, err := s.google.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		if !errors.Is(err, common.ErrMissingAssertion) {
			s.log.Error(r.Context(), "google exchange failed", "error", err)
			err = common.ErrMissingAssertion
		}
		writeError(w, r, s.log, err)
		return
	}

	user, err := s.users.RegisterOrLinkFederated(r.Context(), assertion)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	token, err := s.users.IssueSession(user)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Google login successful", LoginResponse{AccessToken: token, User: user})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, s.log, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrInvalidFile))
		return
	}
	defer file.Close()

	url, err := s.media.Upload(r.Context(), models.UploadedFile{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         file,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, "File uploaded successfully", UploadResponse{URL: url})
}
