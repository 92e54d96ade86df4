package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"drivendev/content"
	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/progress"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type StoreConnectProps struct {
	Logger  *logger.LogMiddleware
	DB      *sql.DB
	Dialect Dialect
}

// Store keeps week content, progress records and conversation state in one
// SQL database. The same queries run on SQLite and Postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *logger.LogMiddleware
}

func Connect(ctx context.Context, args StoreConnectProps) (*Store, error) {
	tracer := otel.Tracer("store/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	span.SetAttributes(attribute.String("dialect", string(args.Dialect)))

	s := &Store{db: args.DB, dialect: args.Dialect, logger: args.Logger}
	if err := s.migrate(ctx); err != nil {
		span.RecordError(err)
		args.Logger.Logger(ctx).Error("[Store] Could not migrate database", zap.Error(err))
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	args.Logger.Logger(ctx).Info("[Store] Store ready", zap.String("dialect", string(args.Dialect)))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) error {
	_, err := q.ExecContext(ctx, s.rebind(query), args...)
	return err
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS weeks (
		week_number     INTEGER PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		title           TEXT NOT NULL DEFAULT '',
		welcome_message TEXT NOT NULL DEFAULT '',
		final_response  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		week_number     INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		question_text   TEXT NOT NULL,
		PRIMARY KEY (week_number, question_number)
	)`,
	`CREATE TABLE IF NOT EXISTS system_prompts (
		week_number     INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		prompt_type     TEXT NOT NULL,
		prompt_text     TEXT NOT NULL,
		PRIMARY KEY (week_number, question_number, prompt_type)
	)`,
	`CREATE TABLE IF NOT EXISTS week_content_blocks (
		week_number  INTEGER NOT NULL,
		block_name   TEXT NOT NULL,
		content_text TEXT NOT NULL,
		PRIMARY KEY (week_number, block_name)
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		session_id   TEXT PRIMARY KEY,
		data         TEXT NOT NULL,
		last_updated TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_states (
		session_id  TEXT NOT NULL,
		week_number INTEGER NOT NULL,
		data        TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (session_id, week_number)
	)`,
}

// migrate applies every statement past the recorded schema version. Each
// migration index is its version number minus one.
func (s *Store) migrate(ctx context.Context) error {
	if err := s.exec(ctx, s.db, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := s.exec(ctx, tx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := s.exec(ctx, tx, `INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetWeekContent(ctx context.Context, week int) (*content.WeekContent, error) {
	tracer := otel.Tracer("store/GetWeekContent")
	ctx, span := tracer.Start(ctx, "GetWeekContent")
	defer span.End()

	span.SetAttributes(attribute.Int("week", week))

	wc := &content.WeekContent{
		Week:          week,
		Questions:     map[int]string{},
		SystemPrompts: map[int]map[string]string{},
		ContentBlocks: map[string]string{},
	}

	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT name, title, welcome_message, final_response FROM weeks WHERE week_number = ?`), week,
	).Scan(&wc.Name, &wc.Title, &wc.WelcomeMessage, &wc.FinalResponse)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("week %d: %w", week, content.ErrWeekNotFound)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read week %d: %w", week, err)
	}

	if err := s.scanRows(ctx, `SELECT question_number, question_text FROM questions WHERE week_number = ?`, week, func(rows *sql.Rows) error {
		var n int
		var text string
		if err := rows.Scan(&n, &text); err != nil {
			return err
		}
		wc.Questions[n] = text
		return nil
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read questions for week %d: %w", week, err)
	}

	if err := s.scanRows(ctx, `SELECT question_number, prompt_type, prompt_text FROM system_prompts WHERE week_number = ?`, week, func(rows *sql.Rows) error {
		var n int
		var key, text string
		if err := rows.Scan(&n, &key, &text); err != nil {
			return err
		}
		if wc.SystemPrompts[n] == nil {
			wc.SystemPrompts[n] = map[string]string{}
		}
		wc.SystemPrompts[n][key] = text
		return nil
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read prompts for week %d: %w", week, err)
	}

	if err := s.scanRows(ctx, `SELECT block_name, content_text FROM week_content_blocks WHERE week_number = ?`, week, func(rows *sql.Rows) error {
		var name, text string
		if err := rows.Scan(&name, &text); err != nil {
			return err
		}
		wc.ContentBlocks[name] = text
		return nil
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read content blocks for week %d: %w", week, err)
	}

	return wc, nil
}

func (s *Store) scanRows(ctx context.Context, query string, week int, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), week)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveWeekContent replaces everything stored for the week in one transaction.
func (s *Store) SaveWeekContent(ctx context.Context, wc *content.WeekContent) error {
	tracer := otel.Tracer("store/SaveWeekContent")
	ctx, span := tracer.Start(ctx, "SaveWeekContent")
	defer span.End()

	span.SetAttributes(attribute.Int("week", wc.Week))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err := s.writeWeek(ctx, tx, wc); err != nil {
		tx.Rollback()
		span.RecordError(err)
		s.logger.Logger(ctx).Error("[Store] Could not save week content", zap.Error(err), zap.Int("week", wc.Week))
		return fmt.Errorf("could not save week %d: %w", wc.Week, err)
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("could not commit week %d: %w", wc.Week, err)
	}

	s.logger.Logger(ctx).Info("[Store] Week content saved",
		zap.Int("week", wc.Week),
		zap.Int("questions", len(wc.Questions)),
		zap.Int("contentBlocks", len(wc.ContentBlocks)),
	)
	return nil
}

func (s *Store) writeWeek(ctx context.Context, tx *sql.Tx, wc *content.WeekContent) error {
	for _, table := range []string{"questions", "system_prompts", "week_content_blocks"} {
		if err := s.exec(ctx, tx, `DELETE FROM `+table+` WHERE week_number = ?`, wc.Week); err != nil {
			return err
		}
	}

	err := s.exec(ctx, tx, `
		INSERT INTO weeks (week_number, name, title, welcome_message, final_response)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (week_number) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			welcome_message = excluded.welcome_message,
			final_response = excluded.final_response`,
		wc.Week, wc.Name, wc.Title, wc.WelcomeMessage, wc.FinalResponse)
	if err != nil {
		return err
	}

	for n, text := range wc.Questions {
		if err := s.exec(ctx, tx, `INSERT INTO questions (week_number, question_number, question_text) VALUES (?, ?, ?)`, wc.Week, n, text); err != nil {
			return err
		}
	}
	for n, prompts := range wc.SystemPrompts {
		for key, text := range prompts {
			if err := s.exec(ctx, tx, `INSERT INTO system_prompts (week_number, question_number, prompt_type, prompt_text) VALUES (?, ?, ?, ?)`, wc.Week, n, key, text); err != nil {
				return err
			}
		}
	}
	for name, text := range wc.ContentBlocks {
		if err := s.exec(ctx, tx, `INSERT INTO week_content_blocks (week_number, block_name, content_text) VALUES (?, ?, ?)`, wc.Week, name, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadProgress(ctx context.Context, sessionID string) (*progress.Record, error) {
	tracer := otel.Tracer("store/LoadProgress")
	ctx, span := tracer.Start(ctx, "LoadProgress")
	defer span.End()

	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT data FROM user_progress WHERE session_id = ?`), sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read progress: %w", err)
	}
	return progress.DecodeRecord([]byte(data))
}

func (s *Store) SaveProgress(ctx context.Context, sessionID string, record *progress.Record) error {
	tracer := otel.Tracer("store/SaveProgress")
	ctx, span := tracer.Start(ctx, "SaveProgress")
	defer span.End()

	data, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("could not encode progress: %w", err)
	}
	err = s.exec(ctx, s.db, `
		INSERT INTO user_progress (session_id, data, last_updated) VALUES (?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET data = excluded.data, last_updated = excluded.last_updated`,
		sessionID, string(data), timestamp(record.LastUpdated))
	if err != nil {
		span.RecordError(err)
		s.logger.Logger(ctx).Error("[Store] Could not save progress", zap.Error(err))
		return fmt.Errorf("could not save progress: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, sessionID string, week int) (*dialogue.ConversationState, error) {
	tracer := otel.Tracer("store/GetConversation")
	ctx, span := tracer.Start(ctx, "GetConversation")
	defer span.End()

	var data string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT data FROM conversation_states WHERE session_id = ? AND week_number = ?`), sessionID, week,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dialogue.ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read conversation: %w", err)
	}
	return dialogue.UnmarshalConversationState([]byte(data))
}

func (s *Store) SaveConversation(ctx context.Context, sessionID string, state *dialogue.ConversationState) error {
	tracer := otel.Tracer("store/SaveConversation")
	ctx, span := tracer.Start(ctx, "SaveConversation")
	defer span.End()

	data, err := state.Marshal()
	if err != nil {
		span.RecordError(err)
		return err
	}
	err = s.exec(ctx, s.db, `
		INSERT INTO conversation_states (session_id, week_number, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, week_number) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, state.Week, string(data), timestamp(state.UpdatedAt))
	if err != nil {
		span.RecordError(err)
		s.logger.Logger(ctx).Error("[Store] Could not save conversation", zap.Error(err), zap.Int("week", state.Week))
		return fmt.Errorf("could not save conversation: %w", err)
	}
	return nil
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
