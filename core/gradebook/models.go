package gradebook

import (
	"time"

	"github.com/trezcool/masomo-portal/core/assignment"
)

type (
	// CourseAverage is the average grade of a course, as computed by the LMS.
	CourseAverage struct {
		CourseID string   `json:"course"`
		Average  *float64 `json:"average"` // nil until something is graded
		Count    int      `json:"count"`
	}

	// StudentGrade is the signed in student's grade for one assignment of a course.
	StudentGrade struct {
		Assignment  assignment.Ref `json:"assignment"`
		Grade       *float64       `json:"grade"`
		MaxPoints   float64        `json:"maxPoints"`
		SubmittedAt *time.Time     `json:"submittedAt"`
	}

	// CourseGrades is the grade summary of a course.
	CourseGrades struct {
		CourseID string         `json:"course"`
		Average  *float64       `json:"average"`
		Grades   []StudentGrade `json:"grades"`
	}

	// Row is one line of an assignment's gradebook.
	Row struct {
		Submission assignment.Submission `json:"submission"`
		// Grade is the submission's final grade, falling back to the reconciled total.
		Grade       float64 `json:"grade"`
		MaxPoints   float64 `json:"maxPoints"`
		Overrides   int     `json:"overrides"` // auto grades overridden by the teacher
		NeedsReview bool    `json:"needsReview"`
	}

	// Sheet is the grading form of a submission.
	Sheet struct {
		Assignment assignment.Assignment `json:"assignment"`
		Submission assignment.Submission `json:"submission"`
		// Grades holds one editable grade per question.
		Grades assignment.Grades `json:"grades"`
		// Suggested holds the auto grades, computed locally when the LMS sent none.
		Suggested  assignment.Grades `json:"suggested"`
		Overridden []int             `json:"overridden"`
		Total      float64           `json:"total"`
		MaxPoints  float64           `json:"maxPoints"`
	}

	// Edit is a teacher's change to a submission's grading. Nil fields are left untouched.
	Edit struct {
		QuestionGrades  assignment.Grades `json:"questionGrades" validate:"grades"`
		Grade           *float64          `json:"grade" validate:"omitempty,gte=0"` // upload-only assignments
		Feedback        *string           `json:"feedback"`
		FeedbackFiles   []assignment.File `json:"feedbackFiles"`
		TeacherApproved *bool             `json:"teacherApproved"`
	}

	// Visibility toggles what students see of their graded submission, independently of grading.
	Visibility struct {
		ShowCorrectAnswers *bool `json:"showCorrectAnswers"`
		ShowStudentAnswers *bool `json:"showStudentAnswers"`
	}
)
