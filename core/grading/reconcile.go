package grading

import (
	"math"

	"github.com/trezcool/masomo-portal/core/assignment"
)

// OverrideTolerance is the largest difference between an entered and an auto grade that still counts as "auto".
const OverrideTolerance = 0.01

// Reconciliation is the outcome of reconciling teacher-entered grades with the auto grades.
type Reconciliation struct {
	// Payload holds the grades to send to the LMS. Auto-graded questions that were not overridden are left out
	// so that the LMS recomputes them.
	Payload assignment.Grades
	// Display holds one grade per question, for editing.
	Display assignment.Grades
	// Overridden lists the auto-graded questions whose entered grade is a manual override.
	Overridden []int
}

// Reconcile decides, for each question, which grade to display and which grade (if any) to transmit.
// entered & auto may be partial or nil.
func Reconcile(questions []assignment.Question, entered, auto assignment.Grades) Reconciliation {
	rec := Reconciliation{
		Payload: make(assignment.Grades),
		Display: make(assignment.Grades, len(questions)),
	}

	for i, q := range questions {
		e, hasEntered := entered.Get(i)
		a, hasAuto := auto.Get(i)

		if !q.Type.IsAutoGraded() {
			var pts float64
			switch {
			case hasEntered:
				pts = e
			case hasAuto:
				pts = a
			}
			rec.Payload[i] = pts
			rec.Display[i] = pts
			continue
		}

		if hasEntered && hasAuto && IsManualOverride(e, a) {
			rec.Payload[i] = e
			rec.Display[i] = e
			rec.Overridden = append(rec.Overridden, i)
			continue
		}

		switch {
		case hasAuto:
			rec.Display[i] = a
		case hasEntered:
			rec.Display[i] = e
		default:
			rec.Display[i] = 0
		}
	}
	return rec
}

// IsManualOverride reports whether an entered grade overrides the auto grade of an auto-graded question.
//
// An entered 0 against a positive auto grade is never an override: it is treated as a stale or cleared input.
// This rule works around bad data rather than encoding a product decision; keep it until the LMS stops sending
// zeroed questionGrades for correct answers.
func IsManualOverride(entered, auto float64) bool {
	if math.Abs(entered-auto) <= OverrideTolerance {
		return false
	}
	return !(entered == 0 && auto > 0)
}

// Total returns the final grade: the sum of the displayed grades.
func Total(rec Reconciliation) float64 {
	return rec.Display.Sum()
}
