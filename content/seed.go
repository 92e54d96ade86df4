package content

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFiles embed.FS

type seedQuestion struct {
	Number  int               `yaml:"number"`
	Text    string            `yaml:"text"`
	Prompts map[string]string `yaml:"prompts"`
}

type seedWeek struct {
	Week           int               `yaml:"week"`
	Name           string            `yaml:"name"`
	Title          string            `yaml:"title"`
	WelcomeMessage string            `yaml:"welcome_message"`
	FinalResponse  string            `yaml:"final_response"`
	ContentBlocks  map[string]string `yaml:"content_blocks"`
	Questions      []seedQuestion    `yaml:"questions"`
}

// ParseSeed decodes one week document.
func ParseSeed(data []byte) (*WeekContent, error) {
	var doc seedWeek
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not parse seed: %w", err)
	}
	if doc.Week <= 0 {
		return nil, fmt.Errorf("seed is missing a week number")
	}

	week := &WeekContent{
		Week:           doc.Week,
		Name:           doc.Name,
		Title:          doc.Title,
		WelcomeMessage: doc.WelcomeMessage,
		FinalResponse:  doc.FinalResponse,
		Questions:      make(map[int]string, len(doc.Questions)),
		SystemPrompts:  make(map[int]map[string]string, len(doc.Questions)),
		ContentBlocks:  map[string]string{},
	}
	if week.Name == "" {
		week.Name = fmt.Sprintf("Week %d", doc.Week)
	}
	for name, text := range doc.ContentBlocks {
		week.ContentBlocks[name] = text
	}
	for _, q := range doc.Questions {
		if _, dup := week.Questions[q.Number]; dup {
			return nil, fmt.Errorf("week %d: duplicate question %d", doc.Week, q.Number)
		}
		week.Questions[q.Number] = q.Text
		prompts := make(map[string]string, len(q.Prompts))
		for key, text := range q.Prompts {
			prompts[key] = text
		}
		week.SystemPrompts[q.Number] = prompts
	}
	return week, nil
}

// LoadSeeds returns the bundled content for every week, ordered by week.
func LoadSeeds(ctx context.Context) ([]*WeekContent, error) {
	tracer := otel.Tracer("content/LoadSeeds")
	_, span := tracer.Start(ctx, "LoadSeeds")
	defer span.End()

	entries, err := fs.ReadDir(seedFiles, "seed")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not list seeds: %w", err)
	}

	weeks := make([]*WeekContent, 0, len(entries))
	for _, entry := range entries {
		data, err := seedFiles.ReadFile(path.Join("seed", entry.Name()))
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not read seed %s: %w", entry.Name(), err)
		}
		week, err := ParseSeed(data)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Week < weeks[j].Week })

	span.SetAttributes(attribute.Int("weeks", len(weeks)))
	return weeks, nil
}

// SeedStore writes every bundled week through w.
func SeedStore(ctx context.Context, w Writer) (int, error) {
	tracer := otel.Tracer("content/SeedStore")
	ctx, span := tracer.Start(ctx, "SeedStore")
	defer span.End()

	weeks, err := LoadSeeds(ctx)
	if err != nil {
		return 0, err
	}
	for _, week := range weeks {
		if err := w.SaveWeekContent(ctx, week); err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("could not seed week %d: %w", week.Week, err)
		}
	}
	return len(weeks), nil
}

// Static serves seeded content straight from memory. Used when no
// database is configured and in tests.
type Static struct {
	weeks map[int]*WeekContent
}

func NewStatic(weeks ...*WeekContent) *Static {
	s := &Static{weeks: make(map[int]*WeekContent, len(weeks))}
	for _, w := range weeks {
		s.weeks[w.Week] = w
	}
	return s
}

func (s *Static) GetWeekContent(ctx context.Context, week int) (*WeekContent, error) {
	w, ok := s.weeks[week]
	if !ok {
		return nil, fmt.Errorf("week %d: %w", week, ErrWeekNotFound)
	}
	return w, nil
}

func (s *Static) SaveWeekContent(ctx context.Context, week *WeekContent) error {
	s.weeks[week.Week] = week
	return nil
}
