package assessment

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed questionnaire.yaml
var questionnaireYAML []byte

const (
	SectionTransportation = "transportation"
	SectionFood           = "food"
	SectionElectricity    = "electricity"
)

type QuestionType string

const (
	TypeChoice QuestionType = "choice"
	TypeRange  QuestionType = "range"
)

type Option struct {
	Value  string  `yaml:"value"`
	Label  string  `yaml:"label"`
	Factor float64 `yaml:"factor"`
}

type Question struct {
	ID      string       `yaml:"id"`
	Text    string       `yaml:"text"`
	Type    QuestionType `yaml:"type"`
	Options []Option     `yaml:"options"`
	Min     float64      `yaml:"min"`
	Max     float64      `yaml:"max"`
	Unit    string       `yaml:"unit"`
	Default string       `yaml:"default"`
}

func (q Question) option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

type Section struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

// Questionnaire is the ordered list of sections a user walks through.
type Questionnaire struct {
	Sections []Section `yaml:"sections"`

	questions map[string]Question
}

// LoadQuestionnaire parses the built-in questionnaire.
func LoadQuestionnaire() (*Questionnaire, error) {
	return ParseQuestionnaire(questionnaireYAML)
}

func ParseQuestionnaire(data []byte) (*Questionnaire, error) {
	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire: %w", err)
	}

	if len(q.Sections) == 0 {
		return nil, fmt.Errorf("questionnaire has no sections")
	}

	q.questions = make(map[string]Question)
	for _, s := range q.Sections {
		if len(s.Questions) == 0 {
			return nil, fmt.Errorf("section %q has no questions", s.ID)
		}
		for _, question := range s.Questions {
			if _, dup := q.questions[question.ID]; dup {
				return nil, fmt.Errorf("duplicate question id %q", question.ID)
			}
			switch question.Type {
			case TypeChoice:
				if len(question.Options) == 0 {
					return nil, fmt.Errorf("choice question %q has no options", question.ID)
				}
			case TypeRange:
				if question.Max <= question.Min {
					return nil, fmt.Errorf("range question %q has max <= min", question.ID)
				}
			default:
				return nil, fmt.Errorf("question %q has unknown type %q", question.ID, question.Type)
			}
			q.questions[question.ID] = question
		}
	}

	return &q, nil
}

func (q *Questionnaire) Section(id string) (Section, bool) {
	for _, s := range q.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Previous returns the section that must be completed before id, or "" for
// the first section.
func (q *Questionnaire) Previous(id string) string {
	for i, s := range q.Sections {
		if s.ID == id && i > 0 {
			return q.Sections[i-1].ID
		}
	}
	return ""
}

// Completed reports whether every question of the section has an answer.
func (q *Questionnaire) Completed(answers Answers, sectionID string) bool {
	s, ok := q.Section(sectionID)
	if !ok {
		return false
	}
	for _, question := range s.Questions {
		if _, ok := answers[question.ID]; !ok {
			return false
		}
	}
	return true
}

// Complete reports whether every section has been answered.
func (q *Questionnaire) Complete(answers Answers) bool {
	for _, s := range q.Sections {
		if !q.Completed(answers, s.ID) {
			return false
		}
	}
	return true
}
