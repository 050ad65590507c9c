package api

import (
	"fmt"
	"net/http"

	"couple-journal/journal"
	"couple-journal/model"

	"github.com/gorilla/mux"
)

// Timeline

type createTimelineRequest struct {
	model.TimelineEvent
	// On, when set, fills the display date fields from a calendar date.
	On string `json:"on"`
}

func (s *Server) handleListTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.Journal.Timeline.List(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateTimeline(w http.ResponseWriter, r *http.Request) {
	var req createTimelineRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	event := req.TimelineEvent
	if req.On != "" {
		t, err := model.ParseDate(req.On)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		event.SetDate(t)
	}

	created, err := s.Journal.Timeline.Create(r.Context(), viewer(r), event)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTimeline(w http.ResponseWriter, r *http.Request) {
	var patch model.TimelineEventPatch
	if err := s.decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	event, err := s.Journal.Timeline.Update(r.Context(), viewer(r), mux.Vars(r)["id"], patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteTimeline(w http.ResponseWriter, r *http.Request) {
	if err := s.Journal.Timeline.Delete(r.Context(), viewer(r), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Discovery

func (s *Server) handleListDiscovery(w http.ResponseWriter, r *http.Request) {
	items, err := s.Journal.Discovery.List(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateDiscovery(w http.ResponseWriter, r *http.Request) {
	var item model.DiscoveryItem
	if err := s.decode(r, &item); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.Journal.Discovery.Create(r.Context(), viewer(r), item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var in journal.PublishInput
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Journal.Publish(r.Context(), viewer(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateDiscovery(w http.ResponseWriter, r *http.Request) {
	var patch model.DiscoveryItemPatch
	if err := s.decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := s.Journal.Discovery.Update(r.Context(), viewer(r), mux.Vars(r)["id"], patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteDiscovery(w http.ResponseWriter, r *http.Request) {
	if err := s.Journal.Discovery.Delete(r.Context(), viewer(r), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Anniversaries

func (s *Server) handleListAnniversaries(w http.ResponseWriter, r *http.Request) {
	anns, err := s.Journal.Anniversaries.List(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, anns)
}

func (s *Server) handleAddAnniversary(w http.ResponseWriter, r *http.Request) {
	var in journal.AnniversaryInput
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Journal.AddAnniversary(r.Context(), viewer(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (s *Server) handlePrimaryAnniversary(w http.ResponseWriter, r *http.Request) {
	ann, err := s.Journal.Anniversaries.Primary(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ann)
}

// Provinces

type markVisitedRequest struct {
	City   string   `json:"city"`
	Date   string   `json:"date"`
	Photos []string `json:"photos"`
}

func (s *Server) handleListProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := s.Journal.Provinces.List(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provinces)
}

func (s *Server) handleProvinceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Journal.Provinces.Stats(r.Context(), viewer(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMarkVisited(w http.ResponseWriter, r *http.Request) {
	var req markVisitedRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	visitDate := ""
	if req.Date != "" {
		t, err := model.ParseDate(req.Date)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		visitDate = t.Format("2006.01.02")
	}

	p, err := s.Journal.Provinces.MarkVisited(r.Context(), viewer(r), mux.Vars(r)["id"], req.City, visitDate, req.Photos)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteAlbumPhoto(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if err := s.Journal.DeleteAlbumPhoto(r.Context(), viewer(r), mux.Vars(r)["id"], url); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFootprint(w http.ResponseWriter, r *http.Request) {
	var in journal.FootprintInput
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Journal.RecordFootprint(r.Context(), viewer(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSyncDeletePhoto(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if err := s.Journal.SyncDeletePhoto(r.Context(), viewer(r), url); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type detailResponse struct {
	Kind   model.DetailKind `json:"kind"`
	Detail model.Detail     `json:"detail"`
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := model.ParseDetailKind(vars["kind"])
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	d, err := s.Journal.Detail(r.Context(), viewer(r), kind, vars["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detailResponse{Kind: d.Kind(), Detail: d})
}
