package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"talespin/internal/util"
	"talespin/pkg/domain"
)

type generateIllustrationRequest struct {
	StoryID string `json:"storyId"`
	Prompt  string `json:"prompt"`
	Type    string `json:"type"`
}

func (s *Server) handleGenerateIllustration(w http.ResponseWriter, r *http.Request, callerID string) {
	var req generateIllustrationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StoryID == "" {
		writeError(w, http.StatusBadRequest, "storyId is required")
		return
	}
	il, err := s.app.GenerateIllustration(r.Context(), callerID, req.StoryID, req.Prompt, domain.IllustrationType(req.Type))
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("illustration generation failed", "err", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, il)
}

func (s *Server) handleGenerateCover(w http.ResponseWriter, r *http.Request, callerID string) {
	il, err := s.app.GenerateCover(r.Context(), callerID, chi.URLParam(r, "storyId"))
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("cover generation failed", "err", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, il)
}

func (s *Server) handleGetIllustration(w http.ResponseWriter, r *http.Request) {
	il, err := s.app.GetIllustration(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, il)
}

func (s *Server) handleListStoryIllustrations(w http.ResponseWriter, r *http.Request) {
	ils, err := s.app.ListStoryIllustrations(chi.URLParam(r, "storyId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ils)
}
