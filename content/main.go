package content

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
)

var ErrWeekNotFound = errors.New("week content not found")

const (
	// FinalResponseBlock doubles as the final response when the week row has none.
	FinalResponseBlock = "FINAL_RESPONSE"
	FinalMessagesBlock = "FINAL_MESSAGES"
	printBlockPrefix   = "PRINT_Q"
	messageSeparator   = "---"
)

// WeekContent is everything the dialogue engine reads for one week.
type WeekContent struct {
	Week           int
	Name           string
	Title          string
	Questions      map[int]string
	SystemPrompts  map[int]map[string]string
	WelcomeMessage string
	FinalResponse  string
	ContentBlocks  map[string]string
}

type Source interface {
	GetWeekContent(ctx context.Context, week int) (*WeekContent, error)
}

type Writer interface {
	SaveWeekContent(ctx context.Context, week *WeekContent) error
}

// QuestionNumbers returns the week's question numbers in ascending order.
func (w *WeekContent) QuestionNumbers() []int {
	numbers := make([]int, 0, len(w.Questions))
	for n := range w.Questions {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func (w *WeekContent) FirstQuestion() int {
	numbers := w.QuestionNumbers()
	if len(numbers) == 0 {
		return 0
	}
	return numbers[0]
}

func (w *WeekContent) LastQuestion() int {
	numbers := w.QuestionNumbers()
	if len(numbers) == 0 {
		return 0
	}
	return numbers[len(numbers)-1]
}

// NextQuestion returns the number after q, or LastQuestion()+1 once q is
// the last question.
func (w *WeekContent) NextQuestion(q int) int {
	for _, n := range w.QuestionNumbers() {
		if n > q {
			return n
		}
	}
	return w.LastQuestion() + 1
}

func (w *WeekContent) Final() string {
	if w.FinalResponse != "" {
		return w.FinalResponse
	}
	return w.ContentBlocks[FinalResponseBlock]
}

// PrintMessages are shown, one per request, before question q.
func (w *WeekContent) PrintMessages(q int) []string {
	return splitMessages(w.ContentBlocks[printBlockPrefix+strconv.Itoa(q)])
}

// FinalMessages are shown, one per request, after the last question.
func (w *WeekContent) FinalMessages() []string {
	return splitMessages(w.ContentBlocks[FinalMessagesBlock])
}

func splitMessages(block string) []string {
	if strings.TrimSpace(block) == "" {
		return nil
	}
	var messages []string
	var current []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			messages = append(messages, text)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == messageSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return messages
}
