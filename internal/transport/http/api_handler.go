package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"medprep-exam-service/internal/app"
	"medprep-exam-service/internal/domain"
)

// APIHandler exposes the full-length-paper flow over REST.
type APIHandler struct {
	exams *app.ExamService
}

func NewAPIHandler(exams *app.ExamService) *APIHandler {
	return &APIHandler{exams: exams}
}

// NewRouter mounts the REST API and the battle websocket on one chi router.
func NewRouter(api *APIHandler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/exams", api.startExam)
		r.Get("/exams/{sessionID}", api.getExam)
		r.Post("/exams/{sessionID}/answers", api.answer)
		r.Post("/exams/{sessionID}/navigate", api.navigate)
		r.Post("/exams/{sessionID}/submit", api.submit)
		r.Get("/results/{resultID}", api.getResult)
	})

	r.Get("/ws/battle", ws.ServeWS)
	return r
}

type startExamRequest struct {
	UserID          string   `json:"userId"`
	TargetCount     int      `json:"targetCount"`
	DurationSeconds int      `json:"durationSeconds"`
	SubjectIDs      []string `json:"subjectIds"`
	ChapterIDs      []string `json:"chapterIds"`
}

type startExamResponse struct {
	SessionID        string                    `json:"sessionId"`
	Questions        []domain.ShuffledQuestion `json:"questions"`
	RemainingSeconds int                       `json:"remainingSeconds"`
}

type examStateResponse struct {
	SessionID        string `json:"sessionId"`
	State            string `json:"state"`
	CurrentIndex     int    `json:"currentIndex"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

type answerRequest struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

type navigateRequest struct {
	Index int `json:"index"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func (h *APIHandler) startExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	session, err := h.exams.StartExam(r.Context(), req.UserID, app.StartOptions{
		TargetCount:     req.TargetCount,
		DurationSeconds: req.DurationSeconds,
		Filter: domain.QuestionFilter{
			SubjectIDs: req.SubjectIDs,
			ChapterIDs: req.ChapterIDs,
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, startExamResponse{
		SessionID:        session.ID(),
		Questions:        session.Questions(),
		RemainingSeconds: session.RemainingSeconds(),
	})
}

func (h *APIHandler) getExam(w http.ResponseWriter, r *http.Request) {
	session, err := h.exams.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, examStateResponse{
		SessionID:        session.ID(),
		State:            session.State().String(),
		CurrentIndex:     session.CurrentIndex(),
		RemainingSeconds: session.RemainingSeconds(),
	})
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.exams.Answer(chi.URLParam(r, "sessionID"), req.QuestionID, req.SelectedOption); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.exams.Navigate(chi.URLParam(r, "sessionID"), req.Index); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.exams.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.exams.GetResult(r.Context(), chi.URLParam(r, "resultID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeServiceError maps engine errors onto HTTP statuses. Insufficient
// inventory carries the available count so clients can offer a smaller paper.
func writeServiceError(w http.ResponseWriter, err error) {
	if ie, ok := domain.IsInsufficientInventory(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     "insufficient question inventory",
			Requested: ie.Requested,
			Available: ie.Available,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrResultNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionEnded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
