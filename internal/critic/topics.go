package critic

import "strings"

// DefaultQuestionTemplates maps a topic label to follow-up question templates.
// {title} is replaced with the document title.
var DefaultQuestionTemplates = map[string][]string{
	"technology": {
		"What are the long-term societal implications of {title}?",
		"How might the technology described in {title} be misused, and what safeguards exist?",
		"Who benefits most from the developments in {title}, and who could be left behind?",
	},
	"politics": {
		"Which stakeholders are missing from the discussion in {title}?",
		"How would the positions in {title} hold up under a different political majority?",
		"What historical precedents inform the arguments in {title}?",
	},
	"science": {
		"Has the research discussed in {title} been independently replicated?",
		"What are the limitations of the methodology behind {title}?",
		"What open questions remain after {title}?",
	},
	"health": {
		"What does the clinical evidence say about the claims in {title}?",
		"Who funded the research referenced in {title}?",
		"How do the findings in {title} apply to different populations?",
	},
	"business": {
		"What are the risks and trade-offs of the strategy described in {title}?",
		"How might competitors respond to the developments in {title}?",
	},
	"economics": {
		"What assumptions underlie the economic arguments in {title}?",
		"Who bears the costs of the outcomes described in {title}?",
	},
	"environment": {
		"What are the trade-offs between growth and environmental protection in {title}?",
		"What data supports the environmental claims in {title}?",
	},
	"education": {
		"How would the ideas in {title} affect students from different backgrounds?",
		"What evidence shows the approach in {title} improves learning outcomes?",
	},
	"arts": {
		"What cultural context shapes the work discussed in {title}?",
		"How might different audiences interpret {title}?",
	},
	"sports": {
		"What role do money and sponsorship play in {title}?",
		"How do the events in {title} compare with historical performance?",
	},
	"social issues": {
		"Whose perspectives are underrepresented in {title}?",
		"What systemic factors contribute to the issues raised in {title}?",
	},
	"history": {
		"What sources does {title} rely on, and how reliable are they?",
		"How might the events in {title} be interpreted from another perspective?",
	},
	"philosophy": {
		"What counterarguments could be raised against the position in {title}?",
		"What assumptions does the reasoning in {title} depend on?",
	},
	"psychology": {
		"How large and representative were the samples behind {title}?",
		"Could the findings in {title} be explained by other factors?",
	},
}

// DefaultGenericQuestions are used when no detected topic has templates.
var DefaultGenericQuestions = []string{
	"What are the main arguments presented in {title}, and how well are they supported?",
	"What perspectives or counterarguments might be missing from {title}?",
	"How could the claims in {title} be independently verified?",
}

// DefaultRelatedTopics is the static adjacency between topic labels.
var DefaultRelatedTopics = map[string][]string{
	"technology":    {"science", "business", "economics"},
	"politics":      {"economics", "social issues", "history"},
	"science":       {"technology", "health", "environment"},
	"health":        {"science", "psychology", "social issues"},
	"business":      {"economics", "technology", "politics"},
	"economics":     {"business", "politics", "social issues"},
	"environment":   {"science", "politics", "economics"},
	"education":     {"psychology", "social issues", "technology"},
	"arts":          {"history", "philosophy", "psychology"},
	"sports":        {"health", "business", "psychology"},
	"social issues": {"politics", "education", "economics"},
	"history":       {"politics", "philosophy", "arts"},
	"philosophy":    {"psychology", "history", "science"},
	"psychology":    {"health", "philosophy", "education"},
}

// DefaultFallbackRelated is returned for a primary topic with no adjacency entry.
var DefaultFallbackRelated = []string{"science", "technology", "history"}

const untitled = "this document"

func topicKey(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

func fillTitle(template, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitled
	}
	return strings.ReplaceAll(template, "{title}", title)
}

// followUpQuestions builds questions in this order: evidence for the first
// unsupported claim, every template of the primary topic, the first template
// of each secondary topic. Generic templates stand in when no topic has any.
// The result is deduplicated, capped and never empty.
func (c *Critic) followUpQuestions(title string, topics, claims []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		if len(out) >= c.cfg.MaxQuestions || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	if len(claims) > 0 {
		add(`What evidence supports the claim "` + shorten(claims[0], 120) + `"?`)
	}

	matched := false
	for i, topic := range topics {
		templates := c.cfg.QuestionTemplates[topicKey(topic)]
		if len(templates) == 0 {
			continue
		}
		matched = true
		if i > 0 {
			templates = templates[:1]
		}
		for _, t := range templates {
			add(fillTitle(t, title))
		}
	}

	if !matched || len(out) == 0 {
		for _, t := range c.cfg.GenericQuestions {
			add(fillTitle(t, title))
		}
	}
	return out
}

// relatedTopics looks up the primary topic case-insensitively.
func (c *Critic) relatedTopics(topics []string) []string {
	if len(topics) > 0 {
		if related, ok := c.cfg.RelatedTopics[topicKey(topics[0])]; ok && len(related) > 0 {
			return append([]string(nil), related...)
		}
	}
	return append([]string(nil), c.cfg.FallbackRelated...)
}
