package progress

type WeekConfig struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Title  string `json:"title"`
}

// Weeks is the program outline. Week 6 has no dialogue.
var Weeks = []WeekConfig{
	{Number: 1, Name: "Week 1", Title: "Thinking Flexibly and Goal Setting"},
	{Number: 2, Name: "Week 2", Title: "Building Resilience"},
	{Number: 3, Name: "Week 3", Title: "Career Exploration"},
	{Number: 4, Name: "Week 4", Title: "Interview Immersion"},
	{Number: 5, Name: "Week 5", Title: "Storytelling for Impact"},
	{Number: 6, Name: "Week 6", Title: "Launch & Celebrate"},
}

func Config(week int) (WeekConfig, bool) {
	for _, cfg := range Weeks {
		if cfg.Number == week {
			return cfg, true
		}
	}
	return WeekConfig{}, false
}
