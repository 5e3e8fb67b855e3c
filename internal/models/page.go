package models

import "fmt"

// QuestionTypeDescription is the presentational type blocked questions are
// rendered with.
const QuestionTypeDescription = "description"

type Question struct {
	Slot                 int      `json:"slot"`
	Type                 string   `json:"type"`
	Number               string   `json:"number,omitempty"`
	Blocked              bool     `json:"blocked"`
	Fields               []string `json:"fields,omitempty"`
	PreventSubmitMessage string   `json:"prevent_submit_message,omitempty"`
}

type PageContent struct {
	Number    int        `json:"number"`
	Questions []Question `json:"questions"`
}

// PageData is what the server returns for a page fetch.
type PageData struct {
	Attempt  Attempt     `json:"attempt"`
	Page     PageContent `json:"page"`
	NextPage int         `json:"next_page"`
	PrevPage int         `json:"prev_page"`
}

// MarkBlocked converts blocked questions to the description type so no
// answer can be entered for them.
func (p *PageContent) MarkBlocked() {
	for i := range p.Questions {
		if p.Questions[i].Blocked {
			p.Questions[i].Type = QuestionTypeDescription
		}
	}
}

// Problems lists the reasons the page cannot be interpreted. An empty result
// means the page is usable.
func (p *PageContent) Problems() []string {
	return questionProblems(p.Questions)
}

func questionProblems(questions []Question) []string {
	var problems []string
	seen := make(map[int]bool, len(questions))
	for i, q := range questions {
		if q.Slot <= 0 {
			problems = append(problems, fmt.Sprintf("question %d has no slot", i))
			continue
		}
		if seen[q.Slot] {
			problems = append(problems, fmt.Sprintf("slot %d appears twice", q.Slot))
		}
		seen[q.Slot] = true
		if q.Type == "" {
			problems = append(problems, fmt.Sprintf("slot %d has no type", q.Slot))
		}
	}
	return problems
}

// SummaryProblems is the summary counterpart of PageContent.Problems.
func SummaryProblems(questions []Question) []string {
	return questionProblems(questions)
}

// PreventSubmitMessages returns one message per question that blocks
// submission: unsupported types and questions carrying their own message.
func PreventSubmitMessages(questions []Question, supported func(questionType string) bool) []string {
	var messages []string
	for _, q := range questions {
		if q.Type != "random" && supported != nil && !supported(q.Type) {
			messages = append(messages, fmt.Sprintf("question %d: type %q is not supported", q.Slot, q.Type))
			continue
		}
		if q.PreventSubmitMessage != "" {
			messages = append(messages, fmt.Sprintf("question %d: %s", q.Slot, q.PreventSubmitMessage))
		}
	}
	return messages
}
