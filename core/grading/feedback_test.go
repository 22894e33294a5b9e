package grading

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core/assignment"
)

func TestModeFor(t *testing.T) {
	tests := []struct {
		name string
		a    assignment.Assignment
		s    *assignment.Submission
		want FeedbackMode
	}{
		{name: "no submission", a: assignment.Assignment{ShowCorrectAnswers: true}, want: FeedbackNone},
		{name: "no flags", s: &assignment.Submission{ID: "s"}, want: FeedbackNone},
		{name: "auto graded", s: &assignment.Submission{ID: "s", AutoGraded: true}, want: FeedbackFull},
		{name: "assignment correct answers", a: assignment.Assignment{ShowCorrectAnswers: true}, s: &assignment.Submission{ID: "s"}, want: FeedbackFull},
		{name: "submission correct answers", s: &assignment.Submission{ID: "s", ShowCorrectAnswers: lo.ToPtr(true)}, want: FeedbackFull},
		{name: "assignment student answers", a: assignment.Assignment{ShowStudentAnswers: true}, s: &assignment.Submission{ID: "s"}, want: FeedbackCorrectnessOnly},
		{name: "submission student answers", s: &assignment.Submission{ID: "s", ShowStudentAnswers: lo.ToPtr(true)}, want: FeedbackCorrectnessOnly},
		{
			name: "correct answers take precedence",
			s:    &assignment.Submission{ID: "s", ShowCorrectAnswers: lo.ToPtr(true), ShowStudentAnswers: lo.ToPtr(true)},
			want: FeedbackFull,
		},
		{
			name: "precedence across levels",
			a:    assignment.Assignment{ShowStudentAnswers: true},
			s:    &assignment.Submission{ID: "s", ShowCorrectAnswers: lo.ToPtr(true)},
			want: FeedbackFull,
		},
		{
			name: "false submission flag does not hide assignment flag",
			a:    assignment.Assignment{ShowStudentAnswers: true},
			s:    &assignment.Submission{ID: "s", ShowStudentAnswers: lo.ToPtr(false)},
			want: FeedbackCorrectnessOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModeFor(tt.a, tt.s))
		})
	}
}

func matchingQuestion() assignment.Question {
	return assignment.Question{
		Type:   assignment.QuestionMatching,
		Points: 3,
		LeftItems: []assignment.MatchItem{
			{ID: "1", Text: "cat"}, {ID: "2", Text: "dog"}, {ID: "3", Text: "cow"},
		},
		RightItems: []assignment.MatchItem{
			{ID: "3", Text: "moo"}, {ID: "1", Text: "meow"}, {ID: "2", Text: "woof"},
		},
	}
}

func TestFeedback_Matching(t *testing.T) {
	a := assignment.Assignment{Questions: []assignment.Question{matchingQuestion()}}
	answers := assignment.Answers{0: assignment.MatchAnswer(map[int]string{0: "meow", 1: "woof", 2: "woof"})}

	tests := []struct {
		name           string
		s              assignment.Submission
		wantResult     Result
		wantCorrectAns bool
		wantRight      string
	}{
		{
			name:           "full feedback renders partial",
			s:              assignment.Submission{ID: "s", Answers: answers, ShowCorrectAnswers: lo.ToPtr(true)},
			wantResult:     ResultPartial,
			wantCorrectAns: true,
			wantRight:      "moo",
		},
		{
			name:       "correctness only renders incorrect",
			s:          assignment.Submission{ID: "s", Answers: answers, ShowStudentAnswers: lo.ToPtr(true)},
			wantResult: ResultIncorrect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Feedback(a, &tt.s)
			require.Len(t, rep.Questions, 1)
			qf := rep.Questions[0]
			assert.InDelta(t, 2.0/3.0, qf.PercentageCorrect, 1e-9)
			assert.Equal(t, tt.wantResult, qf.Result)
			assert.True(t, qf.ShowCorrectness)
			assert.Equal(t, tt.wantCorrectAns, qf.CorrectAnswer != nil)
			require.Len(t, qf.Pairs, 3)
			assert.Equal(t, []bool{true, true, false}, lo.Map(qf.Pairs, func(p PairFeedback, _ int) bool { return p.Correct }))
			assert.Equal(t, tt.wantRight, qf.Pairs[2].Right)
		})
	}
}

func TestFeedback_MatchingAllOrNothing(t *testing.T) {
	a := assignment.Assignment{Questions: []assignment.Question{matchingQuestion()}, ShowCorrectAnswers: true}

	tests := []struct {
		name    string
		answer  assignment.Answer
		want    Result
		wantPct float64
	}{
		{name: "all correct", answer: assignment.MatchAnswer(map[int]string{0: "meow", 1: "woof", 2: "moo"}), want: ResultCorrect, wantPct: 1},
		{name: "none correct", answer: assignment.MatchAnswer(map[int]string{0: "moo"}), want: ResultIncorrect},
		{name: "no answer", want: ResultIncorrect},
		{name: "answer stored as json text", answer: assignment.TextAnswer(`{"0":"meow","1":"woof","2":"moo"}`), want: ResultCorrect, wantPct: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &assignment.Submission{ID: "s", Answers: assignment.Answers{0: tt.answer}}
			qf := Feedback(a, s).Questions[0]
			assert.Equal(t, tt.want, qf.Result)
			assert.Equal(t, tt.wantPct, qf.PercentageCorrect)
			assert.Equal(t, tt.want != ResultCorrect, qf.CorrectAnswer != nil)
		})
	}
}

func TestFeedback(t *testing.T) {
	a := assignment.Assignment{
		Questions: []assignment.Question{
			{Type: assignment.QuestionMultipleChoice, Points: 2, Options: []assignment.Option{{Text: "A"}, {Text: "B", IsCorrect: true}}},
			{Type: assignment.QuestionText, Points: 5},
		},
	}
	grade := 6.0
	s := &assignment.Submission{
		ID:                 "s",
		Answers:            assignment.Answers{0: assignment.TextAnswer("A"), 1: assignment.TextAnswer("essay")},
		Grade:              &grade,
		Feedback:           "good",
		AutoQuestionGrades: assignment.Grades{0: 0},
		QuestionGrades:     assignment.Grades{1: 4},
	}

	t.Run("no feedback", func(t *testing.T) {
		rep := Feedback(a, s)
		assert.Equal(t, FeedbackNone, rep.Mode)
		assert.Empty(t, rep.Questions)
		assert.Equal(t, &grade, rep.Grade)
		assert.Equal(t, "good", rep.Feedback)
	})

	t.Run("correctness only", func(t *testing.T) {
		withFlag := *s
		withFlag.ShowStudentAnswers = lo.ToPtr(true)
		rep := Feedback(a, &withFlag)
		require.Len(t, rep.Questions, 2)

		mc := rep.Questions[0]
		assert.Equal(t, ResultIncorrect, mc.Result)
		assert.Equal(t, assignment.ChoiceAnswer("A"), mc.Answer)
		assert.Nil(t, mc.CorrectAnswer)

		text := rep.Questions[1]
		assert.Equal(t, ResultUngraded, text.Result)
		assert.False(t, text.ShowCorrectness)
		assert.Equal(t, 4.0, text.Grade)
	})

	t.Run("full", func(t *testing.T) {
		a := a
		a.ShowCorrectAnswers = true
		rep := Feedback(a, s)
		mc := rep.Questions[0]
		assert.Equal(t, ResultIncorrect, mc.Result)
		if assert.NotNil(t, mc.CorrectAnswer) {
			assert.Equal(t, assignment.ChoiceAnswer("B"), *mc.CorrectAnswer)
		}

		data, err := json.Marshal(rep)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"mode":"full"`)
		assert.Contains(t, string(data), `"result":"incorrect"`)
	})

	t.Run("final grade wins", func(t *testing.T) {
		final := 7.0
		withFinal := *s
		withFinal.FinalGrade = &final
		assert.Equal(t, &final, Feedback(a, &withFinal).Grade)
	})
}

func TestAutoGrade(t *testing.T) {
	questions := []assignment.Question{
		{Type: assignment.QuestionMultipleChoice, Points: 2, Options: []assignment.Option{{Text: "A", IsCorrect: true}, {Text: "B"}}},
		{Type: assignment.QuestionMultipleChoice, Points: 2, Options: []assignment.Option{{Text: "A", IsCorrect: true}, {Text: "B"}}},
		matchingQuestion(),
		{Type: assignment.QuestionText, Points: 4},
		{Type: assignment.QuestionMatching, Points: 1},
	}
	answers := assignment.Answers{
		0: assignment.TextAnswer("A"),
		1: assignment.ChoiceAnswer("B"),
		2: assignment.MatchAnswer(map[int]string{0: "meow", 1: "woof", 2: "woof"}),
		3: assignment.TextAnswer("essay"),
	}

	got := AutoGrade(questions, answers)
	assert.Equal(t, []int{0, 1, 2, 4}, got.Indices())
	assert.Equal(t, 2.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.Equal(t, 0.0, got[4])
}
