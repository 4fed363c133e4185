package assessment

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Answers maps question ids to the submitted value.
type Answers map[string]string

// Merge copies other into a and returns a.
func (a Answers) Merge(other Answers) Answers {
	if a == nil {
		a = Answers{}
	}
	for k, v := range other {
		a[k] = v
	}
	return a
}

func (a Answers) Encode() string {
	data, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecodeAnswers reads answers held in the session. Anything unreadable is
// treated as no answers.
func DecodeAnswers(raw string) Answers {
	answers := Answers{}
	if raw == "" {
		return answers
	}
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return Answers{}
	}
	return answers
}

// ValidationError carries one message per offending question.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid answers: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// ValidateSection checks the form values for one section. Every question
// is required; choices must name a known option and ranges must be numbers
// within bounds.
func (q *Questionnaire) ValidateSection(sectionID string, form url.Values) (Answers, error) {
	s, ok := q.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", sectionID)
	}

	answers := Answers{}
	fields := map[string]string{}

	for _, question := range s.Questions {
		value := strings.TrimSpace(form.Get(question.ID))
		if err := validate.Var(value, "required"); err != nil {
			fields[question.ID] = "This question is required."
			continue
		}

		switch question.Type {
		case TypeChoice:
			values := make([]string, len(question.Options))
			for i, o := range question.Options {
				values[i] = o.Value
			}
			if err := validate.Var(value, "oneof="+strings.Join(values, " ")); err != nil {
				fields[question.ID] = "Please choose one of the listed options."
				continue
			}
		case TypeRange:
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				fields[question.ID] = "Please enter a number."
				continue
			}
			rule := fmt.Sprintf("gte=%s,lte=%s", formatNumber(question.Min), formatNumber(question.Max))
			if err := validate.Var(n, rule); err != nil {
				fields[question.ID] = fmt.Sprintf("Please enter a value between %s and %s %s.",
					formatNumber(question.Min), formatNumber(question.Max), question.Unit)
				continue
			}
		}

		answers[question.ID] = value
	}

	if len(fields) > 0 {
		return answers, &ValidationError{Fields: fields}
	}
	return answers, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
