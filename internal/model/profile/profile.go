package profile

// Profile captures the portfolio owner's hero copy and chat widget content.
type Profile struct {
	Name               string   `json:"name"`
	Prefix             string   `json:"prefix"`
	Roles              []string `json:"roles"`
	Tagline            string   `json:"tagline"`
	AssistantName      string   `json:"assistantName"`
	Greeting           string   `json:"greeting"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
}

// Seed provides the default profile rendered by the hero section and chat widget.
func Seed() Profile {
	return Profile{
		Name:   "Mari Franz Espelita",
		Prefix: "I'm a",
		Roles: []string{
			"Video Editor",
			"Cinematographer",
			"web dev",
			"fullstack web developer",
		},
		Tagline:       "Available for global opportunities, committed to crafting tailored full-stack web solutions that are both technically sound and user-focused.",
		AssistantName: "Marie",
		Greeting:      "Hi! I'm Marie, Franz's AI assistant. Ask me anything about his projects, skills, or experience!",
		SuggestedQuestions: []string{
			"What are Franz's main skills?",
			"Tell me about Franz's projects",
			"What's Franz's work experience?",
			"How can I contact Franz?",
		},
	}
}

// Clone returns a deep copy so callers can't mutate the seed slices.
func (p Profile) Clone() Profile {
	p.Roles = append([]string(nil), p.Roles...)
	p.SuggestedQuestions = append([]string(nil), p.SuggestedQuestions...)
	return p
}
