package grading

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/trezcool/masomo-portal/core/assignment"
)

// FeedbackMode is what a student may see of a graded submission.
type FeedbackMode int

// Feedback modes
const (
	// FeedbackNone shows the grade & feedback text only.
	FeedbackNone FeedbackMode = iota
	// FeedbackCorrectnessOnly shows the student's answers & whether they are correct, but not the correct answers.
	FeedbackCorrectnessOnly
	// FeedbackFull shows the student's answers, their correctness & the correct answers for misses.
	FeedbackFull
)

func (m FeedbackMode) String() string {
	switch m {
	case FeedbackFull:
		return "full"
	case FeedbackCorrectnessOnly:
		return "correctness-only"
	default:
		return "none"
	}
}

func (m FeedbackMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Result is the correctness of an answer.
type Result int

// Results
const (
	ResultUngraded Result = iota // text questions are graded by hand
	ResultIncorrect
	ResultPartial
	ResultCorrect
)

func (r Result) String() string {
	switch r {
	case ResultIncorrect:
		return "incorrect"
	case ResultPartial:
		return "partial"
	case ResultCorrect:
		return "correct"
	default:
		return "ungraded"
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

type (
	// Report is the feedback a student gets on a submission.
	Report struct {
		Mode      FeedbackMode       `json:"mode"`
		Grade     *float64           `json:"grade"`
		Feedback  string             `json:"feedback,omitempty"`
		Questions []QuestionFeedback `json:"questions,omitempty"` // empty under FeedbackNone
	}

	QuestionFeedback struct {
		Index             int                     `json:"index"`
		Type              assignment.QuestionType `json:"type"`
		Points            float64                 `json:"points"`
		Grade             float64                 `json:"grade"`
		Answer            assignment.Answer       `json:"answer"`
		ShowCorrectness   bool                    `json:"showCorrectness"`
		Result            Result                  `json:"result"`
		PercentageCorrect float64                 `json:"percentageCorrect"`
		// CorrectAnswer is only set under FeedbackFull, for answers that are not fully correct.
		CorrectAnswer *assignment.Answer `json:"correctAnswer,omitempty"`
		Pairs         []PairFeedback     `json:"pairs,omitempty"` // matching questions
	}

	PairFeedback struct {
		Left    string `json:"left"`
		Answer  string `json:"answer"`
		Correct bool   `json:"correct"`
		Right   string `json:"right,omitempty"` // FeedbackFull only
	}
)

// ModeFor derives the feedback mode from the current flags. The result must not be cached:
// teachers may toggle the flags at any time.
// A per-submission flag set to true wins over the assignment's; so does the assignment's over a false one.
func ModeFor(a assignment.Assignment, s *assignment.Submission) FeedbackMode {
	if !s.IsSubmitted() {
		return FeedbackNone
	}
	switch {
	case isSet(s.ShowCorrectAnswers) || a.ShowCorrectAnswers || s.AutoGraded:
		return FeedbackFull
	case isSet(s.ShowStudentAnswers) || a.ShowStudentAnswers:
		return FeedbackCorrectnessOnly
	default:
		return FeedbackNone
	}
}

func isSet(flag *bool) bool {
	return flag != nil && *flag
}

// Feedback builds the report of a submission as its student may see it.
func Feedback(a assignment.Assignment, s *assignment.Submission) Report {
	mode := ModeFor(a, s)
	rep := Report{Mode: mode}
	if s == nil {
		return rep
	}
	rep.Grade = s.FinalGrade
	if rep.Grade == nil {
		rep.Grade = s.Grade
	}
	rep.Feedback = s.Feedback
	if mode == FeedbackNone {
		return rep
	}

	grades := Reconcile(a.Questions, s.QuestionGrades, s.AutoQuestionGrades).Display
	answers := s.Answers.Normalize(a.Questions)
	for i, q := range a.Questions {
		qf := QuestionFeedback{
			Index:  i,
			Type:   q.Type,
			Points: q.Points,
			Grade:  grades[i],
			Answer: answers[i],
		}
		switch q.Type {
		case assignment.QuestionMultipleChoice:
			choiceFeedback(&qf, q, mode)
		case assignment.QuestionMatching:
			matchingFeedback(&qf, q, mode)
		}
		rep.Questions = append(rep.Questions, qf)
	}
	return rep
}

func choiceFeedback(qf *QuestionFeedback, q assignment.Question, mode FeedbackMode) {
	qf.ShowCorrectness = true
	correct, ok := q.CorrectOption()
	if ok && qf.Answer.Kind == assignment.AnswerChoice && qf.Answer.Text == correct {
		qf.Result = ResultCorrect
		qf.PercentageCorrect = 1
		return
	}
	qf.Result = ResultIncorrect
	if mode == FeedbackFull && ok {
		ca := assignment.ChoiceAnswer(correct)
		qf.CorrectAnswer = &ca
	}
}

func matchingFeedback(qf *QuestionFeedback, q assignment.Question, mode FeedbackMode) {
	qf.ShowCorrectness = true
	matched, total := matchPairs(q, qf.Answer)

	correctMatches := make(map[int]string, len(q.LeftItems))
	for li, pair := range matched {
		correctMatches[li] = pair.Right
		if mode != FeedbackFull {
			pair.Right = ""
		}
		qf.Pairs = append(qf.Pairs, pair)
	}

	nCorrect := lo.CountBy(qf.Pairs, func(p PairFeedback) bool { return p.Correct })
	if total > 0 {
		qf.PercentageCorrect = float64(nCorrect) / float64(total)
	}
	switch {
	case total > 0 && nCorrect == total:
		qf.Result = ResultCorrect
	case nCorrect > 0 && mode == FeedbackFull:
		qf.Result = ResultPartial
	default:
		qf.Result = ResultIncorrect
	}

	if mode == FeedbackFull && qf.Result != ResultCorrect {
		ca := assignment.MatchAnswer(correctMatches)
		qf.CorrectAnswer = &ca
	}
}

// matchPairs pairs each left item with the right item sharing its id, and the text the student picked for it.
func matchPairs(q assignment.Question, ans assignment.Answer) ([]PairFeedback, int) {
	pairs := make([]PairFeedback, len(q.LeftItems))
	for li, left := range q.LeftItems {
		pair := PairFeedback{Left: left.Text}
		if right, ok := q.RightItemFor(left); ok {
			pair.Right = right.Text
		}
		if ans.Kind == assignment.AnswerMatch {
			pair.Answer = ans.Matches[li]
		}
		pair.Correct = pair.Answer != "" && pair.Answer == pair.Right
		pairs[li] = pair
	}
	return pairs, len(pairs)
}
