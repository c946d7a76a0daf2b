package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"talespin/internal/app"
	"talespin/internal/util"
	"talespin/pkg/domain"
)

type createStoryRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Author     string `json:"author"`
	AgeRange   string `json:"ageRange"`
	Characters string `json:"characters"`
	Setting    string `json:"setting"`
	UserID     string `json:"userId"`
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request, callerID string) {
	var prompt domain.StoryPrompt
	if err := decodeBody(r, &prompt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	story, err := s.app.GenerateStory(r.Context(), callerID, prompt)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("story generation failed", "err", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request, callerID string) {
	var req createStoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	story, err := s.app.CreateStory(callerID, app.CreateStoryInput{
		Title:      req.Title,
		Content:    req.Content,
		Author:     req.Author,
		AgeRange:   req.AgeRange,
		Characters: req.Characters,
		Setting:    req.Setting,
		UserID:     req.UserID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.app.ListStories()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	story, err := s.app.GetStory(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) handleListUserStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.app.ListUserStories(chi.URLParam(r, "userId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request, callerID string) {
	if err := s.app.DeleteStory(chi.URLParam(r, "id"), callerID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Story deleted successfully"})
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request, callerID string) {
	audio, err := s.app.GenerateStoryAudio(r.Context(), callerID, chi.URLParam(r, "storyId"))
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("audio generation failed", "err", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Audio generated successfully",
		"audio": map[string]string{
			"url":   audio.URL,
			"s3Key": audio.S3Key,
		},
	})
}
