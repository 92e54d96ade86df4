package httpapi

import (
	"net/http"
	"strconv"

	"drivendev/dialogue"
	"drivendev/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type initializeRequest struct {
	Name string `json:"name"`
}

type initializeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Week    int    `json:"week"`
}

type nextMessageResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	IsComplete       bool   `json:"is_complete"`
	AwaitingResponse bool   `json:"awaiting_response"`
	QuestionNumber   *int   `json:"question_number"`
	IsPrintMessage   bool   `json:"is_print_message"`
	WeekCompleted    bool   `json:"week_completed"`
}

type processRequest struct {
	Message        string `json:"message"`
	QuestionNumber *int   `json:"question_number"`
}

type processResponse struct {
	Success          bool    `json:"success"`
	Response         string  `json:"response"`
	NeedsFollowup    bool    `json:"needs_followup"`
	FollowupQuestion *string `json:"followup_question"`
	MoveToNext       bool    `json:"move_to_next"`
	Iteration        int     `json:"iteration"`
	WeekCompleted    bool    `json:"week_completed"`
}

type checkUnlockRequest struct {
	WeekNumber *int `json:"week_number"`
}

// weekRouter serves one week's dialogue and the progress views.
func (s *Server) weekRouter(week int) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Post("/api/initialize", s.initialize(week))
		r.Post("/api/get_next_message", s.nextMessage(week))
		r.Post("/api/process_response", s.processResponse(week))
	})

	r.Get("/api/progress/status", s.progressStatus)
	r.Get("/api/progress/week/{n}", s.weekStatus)
	r.Post("/api/progress/check-unlock", s.checkUnlock(week))
	return r
}

func (s *Server) initialize(week int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("httpapi/initialize")
		ctx, span := tracer.Start(r.Context(), "initialize")
		defer span.End()
		span.SetAttributes(attribute.Int("week", week))

		var body initializeRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, errorTypeValidation, "Invalid request body")
			return
		}

		sessionID, _ := session.FromContext(ctx)
		result, err := s.dialogue.Initialize(ctx, week, sessionID, body.Name)
		if err != nil {
			s.fail(w, r.WithContext(ctx), err)
			return
		}
		writeJSON(w, http.StatusOK, initializeResponse{Success: true, Message: result.Message, Week: result.Week})
	}
}

func (s *Server) nextMessage(week int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("httpapi/nextMessage")
		ctx, span := tracer.Start(r.Context(), "nextMessage")
		defer span.End()
		span.SetAttributes(attribute.Int("week", week))

		sessionID, _ := session.FromContext(ctx)
		result, err := s.dialogue.Next(ctx, week, sessionID)
		if err != nil {
			s.fail(w, r.WithContext(ctx), err)
			return
		}

		resp := nextMessageResponse{
			Success:          true,
			Message:          result.Message,
			IsComplete:       result.IsComplete,
			AwaitingResponse: result.AwaitingResponse,
			IsPrintMessage:   result.IsPrintMessage,
			WeekCompleted:    result.WeekCompleted,
		}
		if result.QuestionNumber != 0 {
			q := result.QuestionNumber
			resp.QuestionNumber = &q
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) processResponse(week int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("httpapi/processResponse")
		ctx, span := tracer.Start(r.Context(), "processResponse")
		defer span.End()
		span.SetAttributes(attribute.Int("week", week))

		var body processRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, errorTypeValidation, "Invalid request body")
			return
		}

		sessionID, _ := session.FromContext(ctx)
		result, err := s.dialogue.Submit(ctx, week, sessionID, body.Message, body.QuestionNumber)
		if err != nil {
			s.fail(w, r.WithContext(ctx), err)
			return
		}

		span.SetAttributes(
			attribute.Int("question", result.QuestionNumber),
			attribute.String("scenario", result.Scenario.String()),
		)
		writeJSON(w, http.StatusOK, processResponse{
			Success:       true,
			Response:      result.Response,
			NeedsFollowup: result.NeedsFollowup,
			MoveToNext:    result.MoveToNext,
			Iteration:     result.Iteration,
			WeekCompleted: result.WeekCompleted,
		})
	}
}

// requireSession reads the cookie without issuing one. Progress views of a
// session that never started are an error, not an empty record.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID, err := s.sessions.Lookup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorTypeValidation, "No session found")
		return "", false
	}
	return sessionID, true
}

func (s *Server) progressStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	weeks, err := s.progress.GetAllWeeksStatus(ctx, sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	current, err := s.progress.GetCurrentWeek(ctx, sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"current_week": current,
		"weeks":        weeks,
	})
}

func (s *Server) weekStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.fail(w, r, &dialogue.RequestError{Kind: dialogue.ErrValidation, Message: "Invalid week number"})
		return
	}

	status, err := s.progress.GetWeekStatus(r.Context(), sessionID, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"week":    n,
		"status":  status,
	})
}

func (s *Server) checkUnlock(week int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkUnlockRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, errorTypeValidation, "Invalid request body")
			return
		}
		sessionID, ok := s.requireSession(w, r)
		if !ok {
			return
		}

		target := week
		if body.WeekNumber != nil {
			target = *body.WeekNumber
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"week":     target,
			"unlocked": s.progress.IsWeekUnlocked(r.Context(), sessionID, target),
		})
	}
}
