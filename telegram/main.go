package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/modelapi"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultWeek = 1
	// maxNextMessages bounds the print-message loop after each answer.
	maxNextMessages = 20
	maxVoiceBytes   = 20 << 20
)

const errorReply = "Sorry, something went wrong on my side. Please try again."

// Engine is the dialogue surface the bot drives.
type Engine interface {
	Weeks() []int
	Initialize(ctx context.Context, week int, sessionID string, name string) (*dialogue.InitializeResult, error)
	Next(ctx context.Context, week int, sessionID string) (*dialogue.NextResult, error)
	Submit(ctx context.Context, week int, sessionID string, message string, questionNumber *int) (*dialogue.SubmitResult, error)
}

// Messenger is the part of the Bot API the bot uses. *tgbotapi.BotAPI
// satisfies it.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type WeekReader interface {
	GetCurrentWeek(ctx context.Context, sessionID string) (int, error)
}

type TelegramConnectProps struct {
	Logger   *logger.LogMiddleware
	Engine   Engine
	Progress WeekReader
	// Transcriber is optional; voice notes are refused without it.
	Transcriber modelapi.Transcriber
	// Speech is optional; when set every reply is also sent as a voice note.
	Speech modelapi.Synthesizer
	// Messenger overrides the Bot API client built from TELEGRAM_BOT_TOKEN.
	Messenger Messenger
}

type Telegram struct {
	logger      *logger.LogMiddleware
	bot         Messenger
	engine      Engine
	progress    WeekReader
	transcriber modelapi.Transcriber
	speech      modelapi.Synthesizer
	http        *http.Client

	mu    sync.Mutex
	weeks map[int64]int
}

func Connect(ctx context.Context, args TelegramConnectProps) *Telegram {
	tracer := otel.Tracer("telegram/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	bot := args.Messenger
	if bot == nil {
		botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
		if botToken == "" {
			args.Logger.Logger(ctx).Fatal("[Telegram] TELEGRAM_BOT_TOKEN environment variable not set")
		}

		api, err := tgbotapi.NewBotAPI(botToken)
		if err != nil {
			args.Logger.Logger(ctx).Fatal("[Telegram] Failed to create bot", zap.Error(err))
		}

		debug := os.Getenv("TELEGRAM_DEBUG") == "true"
		api.Debug = debug

		span.SetAttributes(
			attribute.String("bot.username", api.Self.UserName),
			attribute.Bool("bot.debug", debug),
		)
		args.Logger.Logger(ctx).Info("[Telegram] Bot connected",
			zap.String("username", api.Self.UserName),
			zap.Bool("debug", debug),
		)
		bot = api
	}

	return &Telegram{
		logger:      args.Logger,
		bot:         bot,
		engine:      args.Engine,
		progress:    args.Progress,
		transcriber: args.Transcriber,
		speech:      args.Speech,
		http:        &http.Client{Timeout: 60 * time.Second},
		weeks:       map[int64]int{},
	}
}

// Listen long-polls for updates until ctx is cancelled.
func (t *Telegram) Listen(ctx context.Context, api *tgbotapi.BotAPI) {
	tracer := otel.Tracer("telegram/Listen")
	ctx, span := tracer.Start(ctx, "Listen")
	defer span.End()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := api.GetUpdatesChan(u)
	t.logger.Logger(ctx).Info("[Telegram] Starting message listener")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			t.logger.Logger(ctx).Info("[Telegram] Shutting down listener")
			return
		case update := <-updates:
			t.HandleUpdate(ctx, update)
		}
	}
}

// Bot returns the underlying Bot API client, if there is one.
func (t *Telegram) Bot() (*tgbotapi.BotAPI, bool) {
	api, ok := t.bot.(*tgbotapi.BotAPI)
	return api, ok
}

func (t *Telegram) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	tracer := otel.Tracer("telegram/HandleUpdate")
	ctx, span := tracer.Start(ctx, "HandleUpdate")
	defer span.End()

	switch {
	case update.Message != nil:
		t.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		t.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func sessionID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func (t *Telegram) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	tracer := otel.Tracer("telegram/handleMessage")
	ctx, span := tracer.Start(ctx, "handleMessage")
	defer span.End()

	if message.From == nil || message.Chat == nil {
		return
	}

	chatID := message.Chat.ID
	sid := sessionID(chatID)
	ctx = logger.WithSession(ctx, sid)

	span.SetAttributes(
		attribute.Int64("user.id", message.From.ID),
		attribute.Int64("chat.id", chatID),
		attribute.Bool("message.voice", message.Voice != nil),
	)
	t.logger.Logger(ctx).Info("[Telegram] Received message",
		zap.Int64("user_id", message.From.ID),
		zap.String("username", message.From.UserName),
	)

	switch {
	case message.IsCommand() && message.Command() == "start":
		t.start(ctx, chatID, message.From.FirstName, message.CommandArguments())
	case message.Voice != nil:
		text, err := t.transcribe(ctx, message.Voice)
		if err != nil {
			span.RecordError(err)
			t.logger.Logger(ctx).Error("[Telegram] Could not transcribe voice note", zap.Error(err))
			t.reply(ctx, chatID, "Sorry, I couldn't understand that voice note. Could you type your answer instead?")
			return
		}
		t.submit(ctx, chatID, text)
	case strings.TrimSpace(message.Text) != "":
		t.submit(ctx, chatID, message.Text)
	}
}

func (t *Telegram) start(ctx context.Context, chatID int64, firstName string, args string) {
	week := defaultWeek
	if arg := strings.TrimSpace(args); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || !t.hasWeek(n) {
			t.reply(ctx, chatID, fmt.Sprintf("There is no week %q. Try /start 1.", arg))
			return
		}
		week = n
	}

	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}

	result, err := t.engine.Initialize(ctx, week, sessionID(chatID), name)
	if err != nil {
		t.logger.Logger(ctx).Error("[Telegram] Could not initialize week", zap.Error(err), zap.Int("week", week))
		t.reply(ctx, chatID, errorReply)
		return
	}
	t.setWeek(chatID, week)

	t.reply(ctx, chatID, result.Message)
	t.drain(ctx, chatID, week)
}

func (t *Telegram) submit(ctx context.Context, chatID int64, text string) {
	week := t.currentWeek(ctx, chatID)

	result, err := t.engine.Submit(ctx, week, sessionID(chatID), text, nil)
	if err != nil {
		if dialogue.IsStateError(err) {
			t.reply(ctx, chatID, "There's no open question right now. Send /start to begin a week.")
			return
		}
		t.logger.Logger(ctx).Error("[Telegram] Could not process answer", zap.Error(err), zap.Int("week", week))
		t.reply(ctx, chatID, errorReply)
		return
	}

	t.reply(ctx, chatID, result.Response)
	if result.MoveToNext {
		t.drain(ctx, chatID, week)
	}
}

// drain sends Next messages until one waits for an answer or the week ends.
func (t *Telegram) drain(ctx context.Context, chatID int64, week int) {
	for range maxNextMessages {
		next, err := t.engine.Next(ctx, week, sessionID(chatID))
		if err != nil {
			t.logger.Logger(ctx).Error("[Telegram] Could not fetch next message", zap.Error(err), zap.Int("week", week))
			t.reply(ctx, chatID, errorReply)
			return
		}
		t.reply(ctx, chatID, next.Message)
		if next.AwaitingResponse || next.IsComplete {
			return
		}
	}
	t.logger.Logger(ctx).Warn("[Telegram] Stopped after too many consecutive messages", zap.Int("week", week))
}

func (t *Telegram) transcribe(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	if t.transcriber == nil {
		return "", fmt.Errorf("no transcriber configured")
	}
	if voice.FileSize > maxVoiceBytes {
		return "", fmt.Errorf("voice note too large: %d bytes", voice.FileSize)
	}

	url, err := t.bot.GetFileDirectURL(voice.FileID)
	if err != nil {
		return "", fmt.Errorf("could not resolve voice file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	res, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not download voice file: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voice download returned status %d", res.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(res.Body, maxVoiceBytes))
	if err != nil {
		return "", fmt.Errorf("could not read voice file: %w", err)
	}
	return t.transcriber.Transcribe(ctx, audio)
}

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.logger.Logger(ctx).Error("[Telegram] Failed to send message", zap.Error(err))
		return
	}
	if t.speech == nil {
		return
	}

	audio, err := t.speech.GenerateSpeech(ctx, text)
	if err != nil {
		t.logger.Logger(ctx).Warn("[Telegram] Could not synthesize voice reply", zap.Error(err))
		return
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "nova.mp3", Bytes: audio})
	if _, err := t.bot.Send(voice); err != nil {
		t.logger.Logger(ctx).Error("[Telegram] Failed to send voice reply", zap.Error(err))
	}
}

func (t *Telegram) hasWeek(week int) bool {
	for _, n := range t.engine.Weeks() {
		if n == week {
			return true
		}
	}
	return false
}

func (t *Telegram) setWeek(chatID int64, week int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.weeks[chatID] = week
}

// currentWeek prefers the week last started in this process and falls back
// to the tracker, so a restart resumes where the chat left off.
func (t *Telegram) currentWeek(ctx context.Context, chatID int64) int {
	t.mu.Lock()
	week, ok := t.weeks[chatID]
	t.mu.Unlock()
	if ok {
		return week
	}

	if t.progress != nil {
		if n, err := t.progress.GetCurrentWeek(ctx, sessionID(chatID)); err == nil && t.hasWeek(n) {
			return n
		}
	}
	return defaultWeek
}

func (t *Telegram) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	tracer := otel.Tracer("telegram/handleCallbackQuery")
	ctx, span := tracer.Start(ctx, "handleCallbackQuery")
	defer span.End()

	if query.From == nil {
		return
	}

	span.SetAttributes(
		attribute.Int64("user.id", query.From.ID),
		attribute.String("callback.data", query.Data),
	)

	// Callback buttons are not used; acknowledge so the client stops spinning.
	if _, err := t.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		t.logger.Logger(ctx).Warn("[Telegram] Failed to acknowledge callback", zap.Error(err))
	}
}
