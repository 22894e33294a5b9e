package grading

import (
	"github.com/trezcool/masomo-portal/core/assignment"
)

// AutoGrade computes the grades of the auto-graded questions from the answers:
// full points for the correct option of a multiple-choice question,
// points times the fraction of correct pairs for a matching question.
// Text questions are left out.
func AutoGrade(questions []assignment.Question, answers assignment.Answers) assignment.Grades {
	answers = answers.Normalize(questions)
	grades := make(assignment.Grades)
	for i, q := range questions {
		switch q.Type {
		case assignment.QuestionMultipleChoice:
			var pts float64
			correct, ok := q.CorrectOption()
			if ans := answers[i]; ok && ans.Kind == assignment.AnswerChoice && ans.Text == correct {
				pts = q.Points
			}
			grades[i] = pts
		case assignment.QuestionMatching:
			pairs, total := matchPairs(q, answers[i])
			var nCorrect int
			for _, p := range pairs {
				if p.Correct {
					nCorrect++
				}
			}
			var pts float64
			if total > 0 {
				pts = q.Points * float64(nCorrect) / float64(total)
			}
			grades[i] = pts
		}
	}
	return grades
}
