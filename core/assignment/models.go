package assignment

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

type QuestionType string

// Question types
const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionMatching       QuestionType = "matching"
)

var QuestionTypes = []QuestionType{QuestionMatching, QuestionMultipleChoice, QuestionText} // sorted

// IsAutoGraded reports whether the LMS computes grades for this type of question.
func (qt QuestionType) IsAutoGraded() bool {
	return qt == QuestionMultipleChoice || qt == QuestionMatching
}

// Minutes is a duration sent by the LMS as a number of minutes, possibly fractional or stringly.
// Unreadable values decode as 0.
type Minutes float64

func (m Minutes) Duration() time.Duration {
	return time.Duration(float64(m) * float64(time.Minute))
}

func (m *Minutes) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	mins, _ := toPoints(v)
	*m = Minutes(mins)
	return nil
}

type (
	Assignment struct {
		ID                 string     `json:"_id"`
		Title              string     `json:"title"`
		Description        string     `json:"description"` // HTML
		Content            string     `json:"content"`     // HTML
		DueDate            *time.Time `json:"dueDate"`
		Questions          []Question `json:"questions" validate:"omitempty,dive"` // absent for upload-only assignments
		IsGradedQuiz       bool       `json:"isGradedQuiz"`
		IsTimedQuiz        bool       `json:"isTimedQuiz"`
		QuizTimeLimit      Minutes    `json:"quizTimeLimit" validate:"gte=0"`
		DisplayMode        string     `json:"displayMode"`
		ShowCorrectAnswers bool       `json:"showCorrectAnswers"`
		ShowStudentAnswers bool       `json:"showStudentAnswers"`
		Published          bool       `json:"published"`
	}

	Question struct {
		ID         string       `json:"_id"`
		Type       QuestionType `json:"type" validate:"qtype"`
		Text       string       `json:"text"`
		Points     float64      `json:"points" validate:"gte=0"`
		Options    []Option     `json:"options,omitempty"`
		LeftItems  []MatchItem  `json:"leftItems,omitempty"`
		RightItems []MatchItem  `json:"rightItems,omitempty"`
	}

	Option struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"isCorrect"`
	}

	// MatchItem is one side of a matching pair. Left & right items are correlated by ID.
	MatchItem struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}

	// Ref is a reference to another LMS entity, sent either as a bare id or as a populated object.
	Ref struct {
		ID   string `json:"_id"`
		Name string `json:"name,omitempty"`
	}

	// File is an uploaded file, sent either as a bare path or as an object.
	File struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	Submission struct {
		ID                   string     `json:"_id"`
		Assignment           Ref        `json:"assignment"`
		Student              Ref        `json:"student"`
		SubmittedAt          *time.Time `json:"submittedAt"`
		Answers              Answers    `json:"answers"`
		Grade                *float64   `json:"grade"`
		FinalGrade           *float64   `json:"finalGrade"`
		Feedback             string     `json:"feedback"`
		Files                []File     `json:"files"`
		AutoGraded           bool       `json:"autoGraded"`
		AutoGrade            float64    `json:"autoGrade"`
		AutoQuestionGrades   Grades     `json:"autoQuestionGrades"`
		QuestionGrades       Grades     `json:"questionGrades"`
		TeacherApproved      bool       `json:"teacherApproved"`
		TeacherFeedbackFiles []File     `json:"teacherFeedbackFiles"`
		// per-submission overrides of the assignment's flags
		ShowCorrectAnswers *bool `json:"showCorrectAnswers"`
		ShowStudentAnswers *bool `json:"showStudentAnswers"`
	}

	// NewSubmission is the body of POST /api/submissions.
	NewSubmission struct {
		Assignment string  `json:"assignment" validate:"required,notblank"`
		Answers    Answers `json:"answers"`
		Files      []File  `json:"files,omitempty"`
	}

	// SubmissionUpdate is the body of PUT /api/submissions/:id. Nil fields are left untouched.
	SubmissionUpdate struct {
		Grade                *float64 `json:"grade,omitempty" validate:"omitempty,gte=0"`
		Feedback             *string  `json:"feedback,omitempty"`
		QuestionGrades       Grades   `json:"questionGrades,omitempty" validate:"grades"`
		TeacherApproved      *bool    `json:"teacherApproved,omitempty"`
		TeacherFeedbackFiles []File   `json:"teacherFeedbackFiles,omitempty"`
		ShowCorrectAnswers   *bool    `json:"showCorrectAnswers,omitempty"`
		ShowStudentAnswers   *bool    `json:"showStudentAnswers,omitempty"`
	}
)

// HasQuestions is false for upload-only assignments.
func (a Assignment) HasQuestions() bool {
	return len(a.Questions) > 0
}

func (a Assignment) TotalPoints() float64 {
	return lo.SumBy(a.Questions, func(q Question) float64 { return q.Points })
}

// QuestionTypes returns the type of each question keyed by question index.
func (a Assignment) QuestionTypes() map[int]QuestionType {
	types := make(map[int]QuestionType, len(a.Questions))
	for i, q := range a.Questions {
		types[i] = q.Type
	}
	return types
}

// CorrectOption returns the text of the first option flagged correct.
func (q Question) CorrectOption() (string, bool) {
	opt, ok := lo.Find(q.Options, func(o Option) bool { return o.IsCorrect })
	return opt.Text, ok
}

// RightItemFor returns the right item correlated with the given left item.
func (q Question) RightItemFor(left MatchItem) (MatchItem, bool) {
	return lo.Find(q.RightItems, func(r MatchItem) bool { return r.ID == left.ID })
}

func (mi *MatchItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   interface{} `json:"id"`
		Text string      `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	mi.ID = cast.ToString(raw.ID)
	mi.Text = raw.Text
	return nil
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type ref Ref
	var obj ref
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Ref(obj)
	return nil
}

func (f *File) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return err
		}
		*f = File{Name: path, URL: path}
		return nil
	}
	type file File
	var obj file
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*f = File(obj)
	return nil
}

// IsSubmitted reports whether the student already turned the assignment in.
func (s *Submission) IsSubmitted() bool {
	return s != nil && s.ID != ""
}
