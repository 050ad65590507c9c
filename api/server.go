// Package api exposes the journal over HTTP.
package api

import (
	"net/http"

	"couple-journal/auth"
	"couple-journal/journal"
	"couple-journal/upload"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Server struct {
	Auth     *auth.Service
	Journal  *journal.Journal
	Uploader *upload.Uploader
	Archiver *upload.Archiver
	// Files serves stored photos under /files/ when they live on local disk.
	Files http.Handler
	Log   *zap.Logger

	validate *validator.Validate
}

func NewServer(authService *auth.Service, j *journal.Journal, uploader *upload.Uploader, archiver *upload.Archiver, log *zap.Logger) *Server {
	return &Server{
		Auth:     authService,
		Journal:  j,
		Uploader: uploader,
		Archiver: archiver,
		Log:      log,
		validate: validator.New(),
	}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(RecoveryMiddleware(s.Log), RequestLoggerMiddleware(s.Log))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signup", s.handleSignUp).Methods(http.MethodPost)
	a.HandleFunc("/signin", s.handleSignIn).Methods(http.MethodPost)
	a.HandleFunc("/guest", s.handleGuest).Methods(http.MethodPost)
	a.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodPost)
	a.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)

	if s.Files != nil {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", s.Files)).Methods(http.MethodGet)
	}

	p := r.NewRoute().Subrouter()
	p.Use(s.authMiddleware)

	p.HandleFunc("/timeline", s.handleListTimeline).Methods(http.MethodGet)
	p.HandleFunc("/timeline", s.handleCreateTimeline).Methods(http.MethodPost)
	p.HandleFunc("/timeline/{id}", s.handleUpdateTimeline).Methods(http.MethodPatch)
	p.HandleFunc("/timeline/{id}", s.handleDeleteTimeline).Methods(http.MethodDelete)

	p.HandleFunc("/discovery", s.handleListDiscovery).Methods(http.MethodGet)
	p.HandleFunc("/discovery", s.handleCreateDiscovery).Methods(http.MethodPost)
	p.HandleFunc("/discovery/publish", s.handlePublish).Methods(http.MethodPost)
	p.HandleFunc("/discovery/{id}", s.handleUpdateDiscovery).Methods(http.MethodPatch)
	p.HandleFunc("/discovery/{id}", s.handleDeleteDiscovery).Methods(http.MethodDelete)

	p.HandleFunc("/anniversaries", s.handleListAnniversaries).Methods(http.MethodGet)
	p.HandleFunc("/anniversaries", s.handleAddAnniversary).Methods(http.MethodPost)
	p.HandleFunc("/anniversaries/primary", s.handlePrimaryAnniversary).Methods(http.MethodGet)

	p.HandleFunc("/provinces", s.handleListProvinces).Methods(http.MethodGet)
	p.HandleFunc("/provinces/stats", s.handleProvinceStats).Methods(http.MethodGet)
	p.HandleFunc("/provinces/{id}/visits", s.handleMarkVisited).Methods(http.MethodPost)
	p.HandleFunc("/provinces/{id}/photos", s.handleDeleteAlbumPhoto).Methods(http.MethodDelete)
	p.HandleFunc("/provinces/{id}/album.zip", s.handleAlbumZip).Methods(http.MethodGet)

	p.HandleFunc("/footprints", s.handleFootprint).Methods(http.MethodPost)
	p.HandleFunc("/photos", s.handleSyncDeletePhoto).Methods(http.MethodDelete)
	p.HandleFunc("/details/{kind}/{id}", s.handleDetail).Methods(http.MethodGet)

	p.HandleFunc("/uploads", s.handleUploadPhotos).Methods(http.MethodPost)
	p.HandleFunc("/uploads", s.handleDeleteUpload).Methods(http.MethodDelete)

	return r
}
