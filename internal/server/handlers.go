package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/report"
)

const downloadName = "output.csv"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(filepath.Join(s.StaticDir, "index.html"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<h1>Index file not found</h1>"))
		return
	}
	w.Write(content)
}

type GenerateResponse struct {
	Message   string `json:"message"`
	LootLimit int64  `json:"loot_limit"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	lootLimit := s.DefaultLootLimit
	if raw := r.FormValue("loot_limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "loot_limit must be an integer"})
			return
		}
		lootLimit = n
	}

	utils.Log.Infof("Report generation requested (loot limit %d)", lootLimit)
	s.Gen.Trigger(lootLimit)

	writeJSON(w, http.StatusAccepted, GenerateResponse{
		Message:   "CSV generation started",
		LootLimit: lootLimit,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.Gen.GetLastReport()
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
			return
		}
		utils.Log.Errorf("Could not open report: %v", err)
		http.Error(w, "could not open report", http.StatusInternalServerError)
		return
	}
	defer artifact.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	http.ServeContent(w, r, downloadName, artifact.ModTime, artifact)
}

type RunView struct {
	ID         int64      `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LootLimit  int64      `json:"loot_limit"`
	Status     string     `json:"status"`
	Rows       int        `json:"rows"`
	Pages      int        `json:"pages"`
	StopReason string     `json:"stop_reason,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	views := []RunView{}
	if s.Runs == nil {
		writeJSON(w, http.StatusOK, views)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.Runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for _, run := range runs {
		v := RunView{
			ID:         run.ID,
			StartedAt:  run.StartedAt,
			LootLimit:  run.LootLimit,
			Status:     run.Status,
			Rows:       run.Rows,
			Pages:      run.Pages,
			StopReason: run.StopReason,
			Error:      run.Error,
		}
		if !run.FinishedAt.IsZero() {
			finished := run.FinishedAt
			v.FinishedAt = &finished
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
