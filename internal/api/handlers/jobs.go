package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subs2srs/backend/internal/job"
)

// Runner drives one job through the pipeline. Abstracted so handler tests
// can substitute an instant fake.
type Runner interface {
	Run(ctx context.Context, j *job.Job)
}

type JobsHandler struct {
	registry *job.Registry
	runner   Runner
}

func NewJobsHandler(registry *job.Registry, runner Runner) *JobsHandler {
	return &JobsHandler{registry: registry, runner: runner}
}

// Create accepts the deck generation parameters, registers the job and kicks
// off the pipeline in the background. The response carries the job id the
// client polls.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params job.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	params.URL = strings.TrimSpace(params.URL)
	if params.URL == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	j, err := h.registry.Create(params)
	if err != nil {
		jsonError(w, "failed to create job", http.StatusInternalServerError)
		return
	}

	// The pipeline outlives the request.
	go h.runner.Run(context.Background(), j)

	jsonResponse(w, j.Status(), http.StatusAccepted)
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.registry.List(), http.StatusOK)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, j.Status(), http.StatusOK)
}

type previewCard struct {
	Sentence string  `json:"sentence"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// Preview returns the sentence list of a completed job so the client can show
// the deck contents before downloading.
func (h *JobsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	j, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	cardList := j.Cards()
	if cardList == nil {
		jsonError(w, "job is not complete", http.StatusConflict)
		return
	}

	preview := make([]previewCard, len(cardList))
	for i, c := range cardList {
		preview[i] = previewCard{Sentence: c.Sentence, Start: c.Start, End: c.End}
	}
	jsonResponse(w, map[string]interface{}{
		"title": j.Title(),
		"cards": preview,
	}, http.StatusOK)
}

// Download serves the finished package as an attachment.
func (h *JobsHandler) Download(w http.ResponseWriter, r *http.Request) {
	j, ok := h.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	path := j.PackagePath()
	if path == "" {
		jsonError(w, "job is not complete", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// Delete removes the job and its working directory. Idempotent.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.registry.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
