package assessment

import (
	"math"
	"strconv"
)

// Breakdown is a monthly footprint in tonnes of CO2.
type Breakdown struct {
	Transport float64 `json:"transport"`
	Energy    float64 `json:"energy"`
	Food      float64 `json:"food"`
	Total     float64 `json:"total"`
}

const (
	commuteDaysPerMonth = 22
	tonnesPerFlight     = 0.5
	tonnesPerBillUnit   = 0.005
)

// Footprint estimates the monthly footprint. Unanswered questions fall back
// to their configured default so partial answers still yield a figure.
func (q *Questionnaire) Footprint(answers Answers) Breakdown {
	distance := q.number(answers, "commute_distance")
	flights := q.number(answers, "flights_year")
	transport := q.factor(answers, "commute_method")*distance*commuteDaysPerMonth/1000 + flights*tonnesPerFlight

	bill := q.number(answers, "electricity_bill")
	energy := bill * tonnesPerBillUnit * q.factor(answers, "home_type") * q.factor(answers, "renewable_energy")

	waste := q.number(answers, "food_waste")
	food := q.factor(answers, "diet_type") * q.factor(answers, "local_food") * (1 + waste/100)

	return Breakdown{
		Transport: round2(transport),
		Energy:    round2(energy),
		Food:      round2(food),
		Total:     round2(transport + energy + food),
	}
}

func (q *Questionnaire) value(answers Answers, id string) string {
	if v, ok := answers[id]; ok && v != "" {
		return v
	}
	return q.questions[id].Default
}

func (q *Questionnaire) factor(answers Answers, id string) float64 {
	question := q.questions[id]
	if o, ok := question.option(q.value(answers, id)); ok {
		return o.Factor
	}
	if o, ok := question.option(question.Default); ok {
		return o.Factor
	}
	return 0
}

func (q *Questionnaire) number(answers Answers, id string) float64 {
	n, err := strconv.ParseFloat(q.value(answers, id), 64)
	if err != nil {
		n, _ = strconv.ParseFloat(q.questions[id].Default, 64)
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
