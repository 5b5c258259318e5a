// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/digest"
	"github.com/pdiddy/digest-ranker/internal/rank"
	"github.com/pdiddy/digest-ranker/internal/report"
	"github.com/pdiddy/digest-ranker/internal/usage"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// Form fields and query parameters of POST /upload.
const (
	FieldFile    = "eml_file"
	FieldProfile = "user_bio"
	ParamTopN    = "top_n"
)

// AbstractPreviewLen is the abstract length returned in upload responses.
const AbstractPreviewLen = 150

const defaultMaxUploadBytes = 10 << 20

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Status          string                  `json:"status"`
	Recommendations []report.Recommendation `json:"recommendations"`
	Fallback        bool                    `json:"fallback,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleUpload ranks the uploaded digest against the submitted profile. Each
// request gets its own Ranker and Accountant, and its report file is tagged
// with a fresh UUID.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("request_id", chimw.GetReqID(r.Context())))

	if !s.limiter.Allow() {
		s.fail(w, log, http.StatusTooManyRequests, "Too many requests", nil)
		return
	}

	maxBytes := s.cfg.Server.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	topN := s.cfg.Ranking.TopN
	if v := r.URL.Query().Get(ParamTopN); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(w, log, http.StatusBadRequest, "Invalid top_n", err)
			return
		}
		topN = n
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, log, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		s.fail(w, log, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FieldFile)
	if err != nil {
		s.fail(w, log, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".eml") {
		s.fail(w, log, http.StatusBadRequest, "Invalid file type", nil)
		return
	}

	text, err := digest.ReadMessage(file)
	if err != nil {
		s.fail(w, log, http.StatusBadRequest, "Invalid email file", err)
		return
	}

	records, summary := digest.Parse(text)
	if s.metrics != nil {
		s.metrics.ObserveParse(summary.Parsed, summary.Dropped)
	}
	log.Info("digest parsed",
		zap.String("file", header.Filename),
		zap.Int("segments", summary.Segments),
		zap.Int("parsed", summary.Parsed),
		zap.Int("dropped", summary.Dropped),
	)

	svc, err := s.newService()
	if err != nil {
		s.fail(w, log, http.StatusInternalServerError, err.Error(), err)
		return
	}

	rcfg := rank.ConfigFrom(s.cfg.Ranking)
	rcfg.Logger = log
	if s.metrics != nil {
		rcfg.Observer = s.metrics
	}
	ranker := rank.New(svc, usage.NewAccountant(usage.RatesFromConfig(s.cfg.Pricing)), rcfg)

	outcome := ranker.Rank(r.Context(), records, r.FormValue(FieldProfile), topN)

	now := s.now()
	path, err := report.WriteTagged(s.cfg.Output.Dir, types.OutputJSON, report.New(outcome, now), now, uuid.NewString())
	if err != nil {
		s.fail(w, log, http.StatusInternalServerError, err.Error(), err)
		return
	}
	log.Info("report written", zap.String("path", path))

	resp := UploadResponse{
		Status:          "success",
		Recommendations: make([]report.Recommendation, len(outcome.Papers)),
		Fallback:        outcome.Fallback,
	}
	for i, p := range outcome.Papers {
		rec := report.FromRecord(p)
		rec.Abstract = report.Truncate(rec.Abstract, AbstractPreviewLen)
		resp.Recommendations[i] = rec
	}
	s.respond(w, log, http.StatusOK, resp)
}

func (s *Server) respond(w http.ResponseWriter, log *zap.Logger, code int, body any) {
	if s.metrics != nil {
		s.metrics.ObserveUpload(strconv.Itoa(code))
	}
	writeJSON(w, log, code, body)
}

func (s *Server) fail(w http.ResponseWriter, log *zap.Logger, code int, msg string, err error) {
	fields := []zap.Field{zap.Int("status", code), zap.String("reason", msg)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code >= http.StatusInternalServerError {
		log.Error("upload failed", fields...)
	} else {
		log.Warn("upload rejected", fields...)
	}
	s.respond(w, log, code, errorResponse{Error: msg})
}
