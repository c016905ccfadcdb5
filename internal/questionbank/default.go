package questionbank

var defaultEntries = []Entry{
	{
		Prompt:   "Tell me about yourself and your background in software development.",
		Keywords: []string{"experience", "skills", "background", "projects", "education"},
	},
	{
		Prompt:   "What is your greatest professional achievement?",
		Keywords: []string{"success", "project", "team", "impact", "result"},
	},
	{
		Prompt:   "How do you handle difficult situations in a team?",
		Keywords: []string{"communication", "collaboration", "resolution", "approach", "solution"},
	},
	{
		Prompt:   "Where do you see yourself in 5 years?",
		Keywords: []string{"goals", "growth", "career", "development", "progress"},
	},
	{
		Prompt:   "What are your strengths and weaknesses?",
		Keywords: []string{"improvement", "learning", "positive", "overcome", "develop"},
	},
	{
		Prompt:   "Why are you interested in this position?",
		Keywords: []string{"interest", "motivation", "contribution", "value", "passion"},
	},
	{
		Prompt:   "How do you stay updated with the latest technology trends?",
		Keywords: []string{"learning", "courses", "reading", "practice", "community"},
	},
	{
		Prompt:   "Describe a challenging project you worked on.",
		Keywords: []string{"problem", "solution", "implementation", "outcome", "learning"},
	},
	{
		Prompt:   "How do you handle pressure and deadlines?",
		Keywords: []string{"organization", "prioritization", "management", "strategy", "focus"},
	},
	{
		Prompt:   "What questions do you have for us?",
		Keywords: []string{"culture", "growth", "opportunity", "team", "future"},
	},
}

// Default returns the built-in ten-question bank.
func Default() *Bank {
	b, err := New("software-engineering", defaultEntries)
	if err != nil {
		panic("questionbank: invalid built-in bank: " + err.Error())
	}
	return b
}

// LoadOrDefault loads path when set and falls back to the built-in bank otherwise.
func LoadOrDefault(path string) (*Bank, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
