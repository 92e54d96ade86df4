package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"drivendev/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Store that has no record for the session.
var ErrNotFound = errors.New("progress record not found")

type Store interface {
	LoadProgress(ctx context.Context, sessionID string) (*Record, error)
	SaveProgress(ctx context.Context, sessionID string, record *Record) error
}

// WeekProgress is one week of a session's progress.
type WeekProgress struct {
	Completed           bool         `json:"completed"`
	QuestionsCompleted  map[int]bool `json:"questions_completed"`
	StartedAt           *time.Time   `json:"started_at"`
	CompletedAt         *time.Time   `json:"completed_at"`
	SelectedProblem     *string      `json:"selected_problem"`
	SelectedCornerPiece *string      `json:"selected_corner_piece"`
}

// Record is the whole progress document for one session.
type Record struct {
	Name        *string               `json:"name"`
	Weeks       map[int]*WeekProgress `json:"weeks"`
	CurrentWeek int                   `json:"current_week"`
	CreatedAt   time.Time             `json:"created_at"`
	LastUpdated time.Time             `json:"last_updated"`
}

// WeekStatus is the view of one week returned to clients.
type WeekStatus struct {
	Unlocked            bool         `json:"unlocked"`
	Completed           bool         `json:"completed"`
	QuestionsCompleted  map[int]bool `json:"questions_completed"`
	StartedAt           *time.Time   `json:"started_at"`
	CompletedAt         *time.Time   `json:"completed_at"`
	SelectedProblem     *string      `json:"selected_problem"`
	SelectedCornerPiece *string      `json:"selected_corner_piece"`
	Config              *WeekConfig  `json:"config,omitempty"`
}

type TrackerConnectProps struct {
	Logger *logger.LogMiddleware
	Store  Store
	// Now defaults to time.Now.
	Now func() time.Time
}

// Tracker records which questions and weeks each session has completed.
// Updates are read-modify-write of the session's record.
type Tracker struct {
	logger *logger.LogMiddleware
	store  Store
	now    func() time.Time

	mu sync.Mutex
}

func Connect(ctx context.Context, args TrackerConnectProps) *Tracker {
	tracer := otel.Tracer("progress/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	now := args.Now
	if now == nil {
		now = time.Now
	}

	args.Logger.Logger(ctx).Info("[Progress] Tracker started")
	return &Tracker{logger: args.Logger, store: args.Store, now: now}
}

func (t *Tracker) timestamp() time.Time {
	return t.now().UTC()
}

func (t *Tracker) newRecord(currentWeek int) *Record {
	now := t.timestamp()
	return &Record{
		Weeks:       map[int]*WeekProgress{},
		CurrentWeek: currentWeek,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func (t *Tracker) newWeek() *WeekProgress {
	now := t.timestamp()
	return &WeekProgress{QuestionsCompleted: map[int]bool{}, StartedAt: &now}
}

// load returns the stored record, or nil when the session has none yet.
func (t *Tracker) load(ctx context.Context, sessionID string) (*Record, error) {
	record, err := t.store.LoadProgress(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load progress: %w", err)
	}
	if record.Weeks == nil {
		record.Weeks = map[int]*WeekProgress{}
	}
	return record, nil
}

// update runs fn over the session's record and saves it. newWeek is the
// current week given to a record created by this call.
func (t *Tracker) update(ctx context.Context, sessionID string, newWeek int, fn func(*Record)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if record == nil {
		record = t.newRecord(newWeek)
	}
	fn(record)
	record.LastUpdated = t.timestamp()

	if err := t.store.SaveProgress(ctx, sessionID, record); err != nil {
		return fmt.Errorf("could not save progress: %w", err)
	}
	return nil
}

func (t *Tracker) week(record *Record, week int) *WeekProgress {
	wp, ok := record.Weeks[week]
	if !ok || wp == nil {
		wp = t.newWeek()
		record.Weeks[week] = wp
	}
	if wp.QuestionsCompleted == nil {
		wp.QuestionsCompleted = map[int]bool{}
	}
	return wp
}

func (t *Tracker) SetName(ctx context.Context, sessionID string, name string) error {
	tracer := otel.Tracer("progress/SetName")
	ctx, span := tracer.Start(ctx, "SetName")
	defer span.End()

	err := t.update(ctx, sessionID, 1, func(r *Record) {
		r.Name = &name
	})
	if err != nil {
		span.RecordError(err)
		t.logger.Logger(ctx).Error("[Progress] Could not set name", zap.Error(err))
	}
	return err
}

// UpdateProgress marks question completed for week. weekCompleted also closes
// the week and moves the session on to the next one.
func (t *Tracker) UpdateProgress(ctx context.Context, sessionID string, week int, question int, completed bool, weekCompleted bool) error {
	tracer := otel.Tracer("progress/UpdateProgress")
	ctx, span := tracer.Start(ctx, "UpdateProgress")
	defer span.End()

	span.SetAttributes(
		attribute.Int("week", week),
		attribute.Int("question", question),
		attribute.Bool("weekCompleted", weekCompleted),
	)

	err := t.update(ctx, sessionID, week, func(r *Record) {
		wp := t.week(r, week)
		if completed {
			wp.QuestionsCompleted[question] = true
		}
		if weekCompleted {
			now := t.timestamp()
			wp.Completed = true
			wp.CompletedAt = &now
			r.CurrentWeek = week + 1
		}
		r.CurrentWeek = max(r.CurrentWeek, week)
	})
	if err != nil {
		span.RecordError(err)
		t.logger.Logger(ctx).Error("[Progress] Could not update progress", zap.Error(err), zap.Int("week", week), zap.Int("question", question))
	}
	return err
}

// IsWeekUnlocked always reports true: weeks are not gated on one another.
func (t *Tracker) IsWeekUnlocked(ctx context.Context, sessionID string, week int) bool {
	return true
}

func (t *Tracker) GetWeekStatus(ctx context.Context, sessionID string, week int) (*WeekStatus, error) {
	tracer := otel.Tracer("progress/GetWeekStatus")
	ctx, span := tracer.Start(ctx, "GetWeekStatus")
	defer span.End()

	record, err := t.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return t.status(ctx, sessionID, record, week), nil
}

func (t *Tracker) status(ctx context.Context, sessionID string, record *Record, week int) *WeekStatus {
	status := &WeekStatus{
		Unlocked:           t.IsWeekUnlocked(ctx, sessionID, week),
		QuestionsCompleted: map[int]bool{},
	}
	if record == nil {
		return status
	}
	wp, ok := record.Weeks[week]
	if !ok || wp == nil {
		return status
	}
	status.Completed = wp.Completed
	for q, done := range wp.QuestionsCompleted {
		status.QuestionsCompleted[q] = done
	}
	status.StartedAt = wp.StartedAt
	status.CompletedAt = wp.CompletedAt
	status.SelectedProblem = wp.SelectedProblem
	status.SelectedCornerPiece = wp.SelectedCornerPiece
	return status
}

// GetAllWeeksStatus returns every configured week, including weeks the
// session has not started.
func (t *Tracker) GetAllWeeksStatus(ctx context.Context, sessionID string) (map[int]*WeekStatus, error) {
	tracer := otel.Tracer("progress/GetAllWeeksStatus")
	ctx, span := tracer.Start(ctx, "GetAllWeeksStatus")
	defer span.End()

	record, err := t.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := make(map[int]*WeekStatus, len(Weeks))
	for _, cfg := range Weeks {
		cfg := cfg
		status := t.status(ctx, sessionID, record, cfg.Number)
		status.Config = &cfg
		result[cfg.Number] = status
	}
	return result, nil
}

// GetUserProgress returns the session's record, or a fresh unsaved one.
func (t *Tracker) GetUserProgress(ctx context.Context, sessionID string) (*Record, error) {
	tracer := otel.Tracer("progress/GetUserProgress")
	ctx, span := tracer.Start(ctx, "GetUserProgress")
	defer span.End()

	record, err := t.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if record == nil {
		record = t.newRecord(1)
	}
	return record, nil
}

func (t *Tracker) GetCurrentWeek(ctx context.Context, sessionID string) (int, error) {
	record, err := t.GetUserProgress(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if record.CurrentWeek == 0 {
		return 1, nil
	}
	return record.CurrentWeek, nil
}

func (t *Tracker) SaveSelectedProblem(ctx context.Context, sessionID string, week int, text string) error {
	tracer := otel.Tracer("progress/SaveSelectedProblem")
	ctx, span := tracer.Start(ctx, "SaveSelectedProblem")
	defer span.End()

	err := t.saveSelection(ctx, sessionID, week, text, func(wp *WeekProgress, v *string) { wp.SelectedProblem = v })
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (t *Tracker) SaveSelectedCornerPiece(ctx context.Context, sessionID string, week int, text string) error {
	tracer := otel.Tracer("progress/SaveSelectedCornerPiece")
	ctx, span := tracer.Start(ctx, "SaveSelectedCornerPiece")
	defer span.End()

	err := t.saveSelection(ctx, sessionID, week, text, func(wp *WeekProgress, v *string) { wp.SelectedCornerPiece = v })
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// saveSelection ignores blank text.
func (t *Tracker) saveSelection(ctx context.Context, sessionID string, week int, text string, set func(*WeekProgress, *string)) error {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	err := t.update(ctx, sessionID, week, func(r *Record) {
		set(t.week(r, week), &cleaned)
	})
	if err != nil {
		t.logger.Logger(ctx).Error("[Progress] Could not save selection", zap.Error(err), zap.Int("week", week))
	}
	return err
}
