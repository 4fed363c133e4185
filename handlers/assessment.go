package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/assessment"
	"github.com/tech-arch1tect/ecostep/session"
	"go.uber.org/zap"
)

const answersKey = "assessment_answers"

// step is one page of the pre-assessment.
type step struct {
	Section string
	Path    string
}

var steps = []step{
	{Section: assessment.SectionTransportation, Path: "/pre_transpo/"},
	{Section: assessment.SectionFood, Path: "/pre_food/"},
	{Section: assessment.SectionElectricity, Path: "/pre_elec/"},
}

const (
	introPath  = "/pre_intro/"
	submitPath = "/pre_submit/"
)

type introView struct {
	Sections []assessment.Section
	Start    string
}

type stepView struct {
	Section assessment.Section
	Step    int
	Steps   int
	Action  string
	Back    string
}

type reviewView struct {
	Sections []assessment.Section
	Answers  assessment.Answers
}

func (h *Handler) answers(c echo.Context) assessment.Answers {
	return assessment.DecodeAnswers(h.sessions.Get(c, answersKey))
}

// firstIncomplete returns the path of the earliest unanswered step, or ""
// when every step is complete.
func (h *Handler) firstIncomplete(answers assessment.Answers) string {
	q := h.assessment.Questionnaire()
	for _, s := range steps {
		if !q.Completed(answers, s.Section) {
			return s.Path
		}
	}
	return ""
}

func (h *Handler) PreIntro(c echo.Context) error {
	p := h.page(c, "Pre-assessment")
	p.Data = introView{
		Sections: h.assessment.Questionnaire().Sections,
		Start:    steps[0].Path,
	}
	return h.render(c, http.StatusOK, "pre_intro", p)
}

// PreStep serves the GET and POST of step i. A step is only reachable once
// the previous one has been answered.
func (h *Handler) PreStep(i int) echo.HandlerFunc {
	current := steps[i]
	back := introPath
	if i > 0 {
		back = steps[i-1].Path
	}
	next := submitPath
	if i+1 < len(steps) {
		next = steps[i+1].Path
	}

	return func(c echo.Context) error {
		q := h.assessment.Questionnaire()
		section, ok := q.Section(current.Section)
		if !ok {
			return echo.ErrNotFound
		}

		answers := h.answers(c)
		if prev := q.Previous(current.Section); prev != "" && !q.Completed(answers, prev) {
			return h.redirect(c, back)
		}

		view := stepView{
			Section: section,
			Step:    i + 1,
			Steps:   len(steps),
			Action:  current.Path,
			Back:    back,
		}

		if c.Request().Method != http.MethodPost {
			p := h.page(c, section.Title)
			p.Form = answers
			p.Data = view
			return h.render(c, http.StatusOK, "pre_step", p)
		}

		form, err := c.FormParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid form").SetInternal(err)
		}

		sectionAnswers, err := q.ValidateSection(current.Section, form)
		if err != nil {
			var ve *assessment.ValidationError
			if !errors.As(err, &ve) {
				return err
			}
			p := h.page(c, section.Title)
			p.Form = formValues(form)
			p.FieldErrors = ve.Fields
			p.Data = view
			return h.render(c, http.StatusUnprocessableEntity, "pre_step", p)
		}

		h.sessions.Put(c, answersKey, answers.Merge(sectionAnswers).Encode())
		return h.redirect(c, next)
	}
}

func (h *Handler) PreSubmitForm(c echo.Context) error {
	answers := h.answers(c)
	if path := h.firstIncomplete(answers); path != "" {
		return h.redirect(c, path)
	}

	p := h.page(c, "Review")
	p.Data = reviewView{
		Sections: h.assessment.Questionnaire().Sections,
		Answers:  answers,
	}
	return h.render(c, http.StatusOK, "pre_submit", p)
}

// PreSubmit stores the result and clears the answers from the session.
func (h *Handler) PreSubmit(c echo.Context) error {
	answers := h.answers(c)
	if path := h.firstIncomplete(answers); path != "" {
		h.sessions.SetFlash(c, session.FlashWarning, "Please answer every question before submitting.")
		return h.redirect(c, path)
	}

	result, err := h.assessment.Submit(c.Request().Context(), h.sessions.UserID(c), answers)
	if err != nil {
		if errors.Is(err, assessment.ErrIncomplete) {
			return h.redirect(c, steps[0].Path)
		}
		return err
	}

	h.metrics.RecordAssessment()
	h.sessions.Remove(c, answersKey)
	h.logger.Info("assessment submitted", zap.Uint("account_id", result.AccountID), zap.Float64("total", result.Total))

	p := h.page(c, "Your footprint")
	p.Data = result.Breakdown()
	return h.render(c, http.StatusOK, "pre_result", p)
}
