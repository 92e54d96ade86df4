package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/modelapi"
	"drivendev/progress"
	"drivendev/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Dialogue is the engine surface the week routes drive.
type Dialogue interface {
	Weeks() []int
	Initialize(ctx context.Context, week int, sessionID string, name string) (*dialogue.InitializeResult, error)
	Next(ctx context.Context, week int, sessionID string) (*dialogue.NextResult, error)
	Submit(ctx context.Context, week int, sessionID string, message string, questionNumber *int) (*dialogue.SubmitResult, error)
}

// Progress is the read side of the progress tracker.
type Progress interface {
	GetAllWeeksStatus(ctx context.Context, sessionID string) (map[int]*progress.WeekStatus, error)
	GetWeekStatus(ctx context.Context, sessionID string, week int) (*progress.WeekStatus, error)
	GetCurrentWeek(ctx context.Context, sessionID string) (int, error)
	IsWeekUnlocked(ctx context.Context, sessionID string, week int) bool
}

type ServerConnectProps struct {
	Logger   *logger.LogMiddleware
	Dialogue Dialogue
	Progress Progress
	Sessions *session.Manager
	// Speech and Transcriber are optional; their routes answer 500 when unset.
	Speech      modelapi.Synthesizer
	Transcriber modelapi.Transcriber
}

type Server struct {
	logger      *logger.LogMiddleware
	dialogue    Dialogue
	progress    Progress
	sessions    *session.Manager
	speech      modelapi.Synthesizer
	transcriber modelapi.Transcriber
	router      chi.Router
}

func Connect(ctx context.Context, args ServerConnectProps) *Server {
	tracer := otel.Tracer("httpapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	s := &Server{
		logger:      args.Logger,
		dialogue:    args.Dialogue,
		progress:    args.Progress,
		sessions:    args.Sessions,
		speech:      args.Speech,
		transcriber: args.Transcriber,
	}
	s.router = s.routes()

	args.Logger.Logger(ctx).Info("[HTTP] Routes mounted", zap.Ints("weeks", args.Dialogue.Weeks()))
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLoggerMiddleware(s.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/tts", s.textToSpeech)
	r.Post("/api/stt", s.speechToText)

	for _, week := range s.dialogue.Weeks() {
		r.Mount(fmt.Sprintf("/week%d", week), s.weekRouter(week))
	}
	return r
}

// Handler is the full server handler, traced with otelhttp.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "drivend",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ListenAndServe blocks until ctx is cancelled, then drains requests.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Logger(ctx).Info("[HTTP] Server listening", zap.String("port", port))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Logger(ctx).Info("[HTTP] Server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLoggerMiddleware(logger *logger.LogMiddleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.Logger(ctx).Info("Request Received", zap.String("url", r.URL.Path), zap.String("method", r.Method))
			next.ServeHTTP(ww, r)
			logger.Logger(ctx).Info("Request Completed",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
