package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"drivendev/content"
	"drivendev/logger"
	"drivendev/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultName        = "Friend"
	skippedAnswer      = "User indicated no specific topic for the next session."
	substantiveMinimum = 10
)

// ProgressRecorder is the slice of the progress tracker the engine writes to.
type ProgressRecorder interface {
	SetName(ctx context.Context, sessionID string, name string) error
	UpdateProgress(ctx context.Context, sessionID string, week int, question int, completed bool, weekCompleted bool) error
	SaveSelectedProblem(ctx context.Context, sessionID string, week int, text string) error
	SaveSelectedCornerPiece(ctx context.Context, sessionID string, week int, text string) error
}

type EngineProps struct {
	Logger   *logger.LogMiddleware
	Content  content.Source
	Sessions SessionStore
	Progress ProgressRecorder
	Oracle   modelapi.Completer
	// Weeks defaults to the built-in program when nil.
	Weeks map[int]*Week
}

// Engine drives the question state machine for every configured week.
type Engine struct {
	logger   *logger.LogMiddleware
	content  content.Source
	sessions SessionStore
	progress ProgressRecorder
	oracle   *Oracle
	weeks    map[int]*Week
}

type InitializeResult struct {
	Message string
	Week    int
}

type NextResult struct {
	Message          string
	IsComplete       bool
	AwaitingResponse bool
	// QuestionNumber is zero once the week has run out of questions.
	QuestionNumber int
	IsPrintMessage bool
	WeekCompleted  bool
}

type SubmitResult struct {
	Response       string
	NeedsFollowup  bool
	MoveToNext     bool
	Iteration      int
	WeekCompleted  bool
	QuestionNumber int
	Scenario       Scenario
}

func NewEngine(args EngineProps) *Engine {
	weeks := args.Weeks
	if weeks == nil {
		weeks = Program()
	}
	return &Engine{
		logger:   args.Logger,
		content:  args.Content,
		sessions: args.Sessions,
		progress: args.Progress,
		oracle:   NewOracle(args.Logger, args.Oracle),
		weeks:    weeks,
	}
}

// Weeks lists the configured week numbers in order.
func (e *Engine) Weeks() []int {
	numbers := make([]int, 0, len(e.weeks))
	for n := range e.weeks {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func (e *Engine) load(ctx context.Context, week int) (*Week, *content.WeekContent, error) {
	table, ok := e.weeks[week]
	if !ok {
		return nil, nil, fmt.Errorf("week %d: %w", week, ErrWeekNotConfigured)
	}
	wc, err := e.content.GetWeekContent(ctx, week)
	if err != nil {
		if errors.Is(err, content.ErrWeekNotFound) {
			return nil, nil, fmt.Errorf("week %d: %w", week, ErrContentNotFound)
		}
		return nil, nil, fmt.Errorf("could not load week %d: %w", week, err)
	}
	if len(wc.Questions) == 0 {
		return nil, nil, fmt.Errorf("week %d has no questions: %w", week, ErrContentNotFound)
	}
	return table, wc, nil
}

func (e *Engine) loadState(ctx context.Context, sessionID string, wc *content.WeekContent) (*ConversationState, error) {
	state, err := e.sessions.GetConversation(ctx, sessionID, wc.Week)
	if errors.Is(err, ErrSessionNotFound) {
		state = NewConversationState(wc.Week, defaultName)
		state.CurrentQuestion = wc.FirstQuestion()
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load conversation: %w", err)
	}
	if state.CurrentQuestion == 0 {
		state.CurrentQuestion = wc.FirstQuestion()
	}
	return state, nil
}

func (e *Engine) save(ctx context.Context, sessionID string, state *ConversationState) error {
	state.UpdatedAt = time.Now().UTC()
	if err := e.sessions.SaveConversation(ctx, sessionID, state); err != nil {
		return fmt.Errorf("could not save conversation: %w", err)
	}
	return nil
}

// Initialize starts the week over for sessionID and returns the welcome message.
func (e *Engine) Initialize(ctx context.Context, week int, sessionID string, name string) (*InitializeResult, error) {
	tracer := otel.Tracer("dialogue/Initialize")
	ctx, span := tracer.Start(ctx, "Initialize")
	defer span.End()

	span.SetAttributes(attribute.Int("week", week))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, requestError(ErrValidation, "Name is required")
	}

	table, wc, err := e.load(ctx, week)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := e.progress.SetName(ctx, sessionID, name); err != nil {
		span.RecordError(err)
		e.logger.Logger(ctx).Error("[Dialogue] Could not record name", zap.Error(err))
		return nil, fmt.Errorf("could not record name: %w", err)
	}

	state := NewConversationState(week, name)
	state.CurrentQuestion = wc.FirstQuestion()
	if err := e.save(ctx, sessionID, state); err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.logger.Logger(ctx).Info("[Dialogue] Conversation initialized", zap.Int("week", week))
	return &InitializeResult{
		Message: Substitute(wc.WelcomeMessage, state, wc, table),
		Week:    week,
	}, nil
}

// Next returns the next thing NOVA says without consuming an answer: a
// print message, the current question, a final message or the closing text.
func (e *Engine) Next(ctx context.Context, week int, sessionID string) (*NextResult, error) {
	tracer := otel.Tracer("dialogue/Next")
	ctx, span := tracer.Start(ctx, "Next")
	defer span.End()

	span.SetAttributes(attribute.Int("week", week))

	table, wc, err := e.load(ctx, week)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	state, err := e.loadState(ctx, sessionID, wc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := e.applySkips(ctx, sessionID, state, wc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	q := state.CurrentQuestion
	if _, ok := wc.Questions[q]; !ok && q <= wc.LastQuestion() {
		q = wc.NextQuestion(q)
		state.CurrentQuestion = q
	}

	var result *NextResult
	if q > wc.LastQuestion() {
		result, err = e.closing(ctx, sessionID, table, wc, state)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else if prints := wc.PrintMessages(q); state.PrintIndex[q] < len(prints) {
		idx := state.PrintIndex[q]
		state.PrintIndex[q] = idx + 1
		result = &NextResult{
			Message:        Substitute(prints[idx], state, wc, table),
			QuestionNumber: q,
			IsPrintMessage: true,
		}
	} else {
		text := Substitute(wc.Questions[q], state, wc, table)
		if qp := table.questionPolicy(q, wc); qp.Intro != nil {
			text = qp.Intro(state, wc) + text
		}
		result = &NextResult{Message: text, AwaitingResponse: true, QuestionNumber: q}
	}

	if err := e.save(ctx, sessionID, state); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("question", result.QuestionNumber), attribute.Bool("isComplete", result.IsComplete))
	return result, nil
}

// closing walks the final messages one per call, then emits the closing text.
func (e *Engine) closing(ctx context.Context, sessionID string, table *Week, wc *content.WeekContent, state *ConversationState) (*NextResult, error) {
	finals := wc.FinalMessages()
	if state.FinalMessageIndex < len(finals) {
		msg := Substitute(finals[state.FinalMessageIndex], state, wc, table)
		state.ShowFinalMessages = true
		state.FinalMessageIndex++
		return &NextResult{Message: msg, IsPrintMessage: true}, nil
	}

	text := table.ClosingMessage
	if text == "" {
		text = wc.Final()
	}
	// Completion is recorded once; later calls only repeat the closing text.
	if !state.WeekCompleted {
		state.WeekCompleted = true
		if err := e.progress.UpdateProgress(ctx, sessionID, wc.Week, wc.LastQuestion(), true, true); err != nil {
			return nil, fmt.Errorf("could not record week completion: %w", err)
		}
	}
	return &NextResult{
		Message:       Substitute(text, state, wc, table),
		IsComplete:    true,
		WeekCompleted: true,
	}, nil
}

// Submit processes one answer. questionNumber overrides the current question
// when set.
func (e *Engine) Submit(ctx context.Context, week int, sessionID string, message string, questionNumber *int) (*SubmitResult, error) {
	tracer := otel.Tracer("dialogue/Submit")
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()

	span.SetAttributes(attribute.Int("week", week))

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, requestError(ErrValidation, "Message is required")
	}

	table, wc, err := e.load(ctx, week)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	state, err := e.loadState(ctx, sessionID, wc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	q := state.CurrentQuestion
	if questionNumber != nil {
		q = *questionNumber
		if _, ok := wc.Questions[q]; !ok {
			return nil, requestError(ErrInvalidQuestion, fmt.Sprintf("Invalid question number: %d", q))
		}
	} else if _, ok := wc.Questions[q]; !ok {
		return nil, requestError(ErrNoActiveQuestion, "No active question")
	}
	span.SetAttributes(attribute.Int("question", q))

	qp := table.questionPolicy(q, wc)
	maxIterations := table.maxIterations(qp)

	state.Answers[q] = append(state.Answers[q], message)
	iteration := state.IterationCount[q]

	scenario, sp := qp.scenarioPolicy(e.classify(ctx, table, wc, state, qp, q, message))
	state.Scenario[q] = scenario
	if sp.MaxIterations > 0 {
		maxIterations = sp.MaxIterations
	}

	var response string
	switch {
	case sp.Canned != "":
		response = Substitute(wc.ContentBlocks[sp.Canned], state, wc, table)
	case sp.Completion == Inventory:
		updateSkillInventory(state, message, iteration == 0)
		if len(state.SkillsMissing) > 0 {
			promptAll := len(state.SkillsIdentified) == 0 || scenario == Scenario3
			response = missingSkillsMessage(state.Name, state.SkillsIdentified, state.SkillsMissing, promptAll)
			break
		}
		scenario, sp = qp.scenarioPolicy(Scenario1)
		state.Scenario[q] = scenario
		response, err = e.generate(ctx, table, wc, state, sp, q, scenario, iteration, message)
	default:
		response, err = e.generate(ctx, table, wc, state, sp, q, scenario, iteration, message)
	}
	if err != nil {
		span.RecordError(err)
		e.logger.Logger(ctx).Error("[Dialogue] Could not build response", zap.Error(err), zap.Int("question", q))
		return nil, err
	}

	count := iteration + 1
	state.IterationCount[q] = count

	complete, missing := true, missingNone
	var advance bool
	switch sp.Completion {
	case Immediate:
		advance = true
	case IterateUntilComplete:
		complete, missing = e.CheckCompleteness(ctx, table, wc, q, response, state.Answers[q], scenario)
		advance = complete || count >= maxIterations
	case ReclassifyEachTurn, Inventory:
		advance = false
	case BoundedRetry:
		limit := sp.RetryCap
		if limit <= 0 {
			limit = maxIterations
		}
		advance = count >= limit
	case FollowupOnQuestion:
		if strings.Contains(response, "?") && count < maxIterations {
			advance = false
			break
		}
		complete, missing = e.CheckCompleteness(ctx, table, wc, q, response, state.Answers[q], scenario)
		advance = complete || count >= maxIterations
	}

	if !advance && !complete && missing != missingNone && missing != missingUnknown {
		response += fmt.Sprintf("\n\n[Note: I still need: %s]", missing)
	}
	state.NovaResponses[q] = append(state.NovaResponses[q], response)

	weekCompleted := false
	if advance {
		if weekCompleted, err = e.advance(ctx, sessionID, state, wc, qp, sp, q, message); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := e.save(ctx, sessionID, state); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("scenario", scenario.String()),
		attribute.String("completion", sp.Completion.String()),
		attribute.Int("iteration", iteration),
		attribute.Bool("moveToNext", advance),
	)
	e.logger.Logger(ctx).Info("[Dialogue] Response processed",
		zap.Int("week", week),
		zap.Int("question", q),
		zap.String("scenario", scenario.String()),
		zap.Int("iteration", iteration),
		zap.Bool("moveToNext", advance),
	)

	return &SubmitResult{
		Response:       response,
		NeedsFollowup:  !advance,
		MoveToNext:     advance,
		Iteration:      iteration,
		WeekCompleted:  weekCompleted,
		QuestionNumber: q,
		Scenario:       scenario,
	}, nil
}

// classify returns the stored label while it is sticky and asks the oracle
// otherwise. Questions without a classifier prompt use ScenarioDefault.
func (e *Engine) classify(ctx context.Context, table *Week, wc *content.WeekContent, state *ConversationState, qp QuestionPolicy, q int, message string) Scenario {
	classifier := wc.SystemPrompts[q]["classifier"]
	if strings.TrimSpace(classifier) == "" {
		return ScenarioDefault
	}

	if current := state.Scenario[q]; current != ScenarioUnset {
		if _, sp := qp.scenarioPolicy(current); !sp.Volatile && sp.Completion != ReclassifyEachTurn {
			return current
		}
	}

	classifier = Substitute(classifier, state, wc, table)
	scenario, ok := e.oracle.Classify(ctx, classifier, message, table.ClassifyTemperature, qp.scenarioList())
	if !ok {
		return qp.Default
	}
	return scenario
}

func (e *Engine) generate(ctx context.Context, table *Week, wc *content.WeekContent, state *ConversationState, sp ScenarioPolicy, q int, scenario Scenario, iteration int, message string) (string, error) {
	prompts := wc.SystemPrompts[q]

	var template string
	if iteration > 0 && sp.FollowupTemplate != nil {
		latest, _ := state.LatestAnswer(q)
		template = sp.FollowupTemplate(latest)
	} else {
		key := sp.PromptKey
		if iteration > 0 && sp.FollowupPromptKey != "" {
			key = sp.FollowupPromptKey
		}
		if key == "" {
			key = scenario.PromptKey("respond")
		}
		template = prompts[key]
		if strings.TrimSpace(template) == "" {
			template = firstRespondPrompt(prompts)
		}
		if strings.TrimSpace(template) == "" {
			return "", fmt.Errorf("question %d %s: %w", q, scenario, ErrPromptNotFound)
		}
	}

	system := Substitute(template, state, wc, table)
	if sp.NoFollowups {
		system += "\n\n" + modelapi.NO_FOLLOWUPS_INSTRUCTION
	}

	reply := e.oracle.Respond(ctx, system, message)
	if sp.AppendQuestion {
		if text := wc.Questions[q]; text != "" {
			reply += "\n\n" + Substitute(text, state, wc, table)
		}
	}
	return reply, nil
}

func firstRespondPrompt(prompts map[string]string) string {
	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		if strings.HasPrefix(key, "scenario_") && strings.HasSuffix(key, "_respond") {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return prompts[keys[0]]
}

// advance completes q, moves the pointer forward and reports whether the
// whole week is now complete.
func (e *Engine) advance(ctx context.Context, sessionID string, state *ConversationState, wc *content.WeekContent, qp QuestionPolicy, sp ScenarioPolicy, q int, message string) (bool, error) {
	state.QuestionCompleted[q] = true

	if err := e.capture(ctx, sessionID, state, sp.Capture, q); err != nil {
		return false, err
	}

	if next := wc.NextQuestion(q); next > state.CurrentQuestion {
		state.CurrentQuestion = next
	}
	if err := e.progress.UpdateProgress(ctx, sessionID, wc.Week, q, true, false); err != nil {
		return false, fmt.Errorf("could not record progress: %w", err)
	}

	if qp.SkipOnNo != 0 && normalizeYesNo(message) == answerNo {
		state.SkipNext[qp.SkipOnNo] = true
	}
	if err := e.applySkips(ctx, sessionID, state, wc); err != nil {
		return false, err
	}

	for n := range wc.Questions {
		if !state.QuestionCompleted[n] {
			return false, nil
		}
	}
	state.WeekCompleted = true
	if err := e.progress.UpdateProgress(ctx, sessionID, wc.Week, wc.LastQuestion(), true, true); err != nil {
		return false, fmt.Errorf("could not record week completion: %w", err)
	}
	return true, nil
}

func (e *Engine) capture(ctx context.Context, sessionID string, state *ConversationState, capture Capture, q int) error {
	if capture == CaptureNone {
		return nil
	}
	text := substantiveAnswer(state.Answers[q])
	if text == "" {
		return nil
	}

	var err error
	switch capture {
	case CaptureSelectedProblem:
		state.SelectedProblem = text
		err = e.progress.SaveSelectedProblem(ctx, sessionID, state.Week, text)
	case CaptureCornerPiece:
		state.SelectedCornerPiece = text
		err = e.progress.SaveSelectedCornerPiece(ctx, sessionID, state.Week, text)
	}
	if err != nil {
		return fmt.Errorf("could not save captured answer: %w", err)
	}
	return nil
}

// substantiveAnswer prefers the latest answer long enough to mean something
// over a trailing "yes" or "ok".
func substantiveAnswer(answers []string) string {
	for i := len(answers) - 1; i >= 0; i-- {
		if a := strings.TrimSpace(answers[i]); len(a) >= substantiveMinimum {
			return a
		}
	}
	if len(answers) == 0 {
		return ""
	}
	return strings.TrimSpace(answers[len(answers)-1])
}

// applySkips auto-completes questions the user already declined.
func (e *Engine) applySkips(ctx context.Context, sessionID string, state *ConversationState, wc *content.WeekContent) error {
	for state.SkipNext[state.CurrentQuestion] {
		q := state.CurrentQuestion
		if !state.QuestionCompleted[q] {
			state.QuestionCompleted[q] = true
			state.Answers[q] = append(state.Answers[q], skippedAnswer)
			if err := e.progress.UpdateProgress(ctx, sessionID, wc.Week, q, true, false); err != nil {
				return fmt.Errorf("could not record skipped question: %w", err)
			}
		}
		delete(state.SkipNext, q)
		state.CurrentQuestion = wc.NextQuestion(q)
	}
	return nil
}

type yesNo int

const (
	answerUnclear yesNo = iota
	answerYes
	answerNo
)

func normalizeYesNo(message string) yesNo {
	cleaned := strings.Trim(strings.ToLower(strings.TrimSpace(message)), ".!")
	switch cleaned {
	case "yes", "y", "yeah", "yep", "sure", "absolutely":
		return answerYes
	case "no", "n", "nope", "nah", "not really":
		return answerNo
	}
	return answerUnclear
}
