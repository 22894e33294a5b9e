package gradebook

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/grading"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	// errors
	ErrTeachersOnly       = errors.New("only teachers can grade submissions")
	ErrSubmissionNotFound = errors.New("submission not found")

	gradeSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_grade_saves_total",
		Help: "Grading saves by result",
	}, []string{"result"})

	gradeOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_grade_overrides_total",
		Help: "Auto grades overridden by teachers",
	})
)

type (
	// LMS is the part of the LMS API the grading interface uses.
	LMS interface {
		GetAssignment(ctx context.Context, id string) (assignment.Assignment, error)
		ListSubmissions(ctx context.Context, assignmentID string) ([]assignment.Submission, error)
		UpdateSubmission(ctx context.Context, id string, upd assignment.SubmissionUpdate) (assignment.Submission, error)
		PublishAssignment(ctx context.Context, id string, published bool) (assignment.Assignment, error)
		CourseAverage(ctx context.Context, courseID string) (CourseAverage, error)
		StudentCourseGrades(ctx context.Context, courseID string) ([]StudentGrade, error)
	}

	Service struct {
		lms    LMS
		logger core.Logger
	}
)

func NewService(lms LMS, logger core.Logger) *Service {
	return &Service{lms: lms, logger: logger}
}

// fetch gets the assignment and its submissions in parallel.
func (svc *Service) fetch(ctx context.Context, assignmentID string) (assignment.Assignment, []assignment.Submission, error) {
	var (
		a    assignment.Assignment
		subs []assignment.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = svc.lms.GetAssignment(gctx, assignmentID)
		return errors.Wrap(err, "fetching assignment")
	})
	g.Go(func() error {
		var err error
		subs, err = svc.lms.ListSubmissions(gctx, assignmentID)
		return errors.Wrap(err, "fetching submissions")
	})
	if err := g.Wait(); err != nil {
		return assignment.Assignment{}, nil, err
	}
	if a.ID == "" {
		a.ID = assignmentID
	}
	return a, subs, nil
}

func (svc *Service) fetchOne(ctx context.Context, assignmentID, submissionID string) (assignment.Assignment, assignment.Submission, error) {
	a, subs, err := svc.fetch(ctx, assignmentID)
	if err != nil {
		return assignment.Assignment{}, assignment.Submission{}, err
	}
	sub, ok := lo.Find(subs, func(s assignment.Submission) bool { return s.ID == submissionID })
	if !ok {
		return assignment.Assignment{}, assignment.Submission{}, ErrSubmissionNotFound
	}
	return a, sub, nil
}

// autoGrades returns the auto grades of the submission, computed locally when the LMS sent none.
// Locally computed grades are only displayed, never sent.
func autoGrades(a assignment.Assignment, sub assignment.Submission) assignment.Grades {
	if len(sub.AutoQuestionGrades) > 0 {
		return sub.AutoQuestionGrades
	}
	return grading.AutoGrade(a.Questions, sub.Answers)
}

func newSheet(a assignment.Assignment, sub assignment.Submission) Sheet {
	auto := autoGrades(a, sub)
	rec := grading.Reconcile(a.Questions, sub.QuestionGrades, auto)
	sheet := Sheet{
		Assignment: a,
		Submission: sub,
		Grades:     rec.Display,
		Suggested:  auto,
		Overridden: rec.Overridden,
		Total:      grading.Total(rec),
		MaxPoints:  a.TotalPoints(),
	}
	if !a.HasQuestions() && sub.Grade != nil {
		sheet.Total = *sub.Grade
	}
	return sheet
}

func newRow(a assignment.Assignment, sub assignment.Submission) Row {
	sheet := newSheet(a, sub)
	row := Row{
		Submission: sub,
		Grade:      sheet.Total,
		MaxPoints:  sheet.MaxPoints,
		Overrides:  len(sheet.Overridden),
	}
	switch {
	case sub.FinalGrade != nil:
		row.Grade = *sub.FinalGrade
	case sub.Grade != nil:
		row.Grade = *sub.Grade
	}

	hasText := lo.ContainsBy(a.Questions, func(q assignment.Question) bool { return !q.Type.IsAutoGraded() })
	row.NeedsReview = !sub.TeacherApproved && (hasText || !a.HasQuestions())
	return row
}

// List returns the gradebook of an assignment.
func (svc *Service) List(ctx context.Context, usr user.User, assignmentID string) ([]Row, error) {
	if !usr.CanGrade() {
		return nil, ErrTeachersOnly
	}
	a, subs, err := svc.fetch(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return lo.Map(subs, func(s assignment.Submission, _ int) Row { return newRow(a, s) }), nil
}

// Sheet returns the grading form of a submission, reconciled anew from its current grades.
func (svc *Service) Sheet(ctx context.Context, usr user.User, assignmentID, submissionID string) (Sheet, error) {
	if !usr.CanGrade() {
		return Sheet{}, ErrTeachersOnly
	}
	a, sub, err := svc.fetchOne(ctx, assignmentID, submissionID)
	if err != nil {
		return Sheet{}, err
	}
	return newSheet(a, sub), nil
}

// Save applies a teacher's edit. Only the grades of text questions & the overridden auto grades are sent;
// the LMS recomputes the others. The final grade is the total of the reconciled grades.
func (svc *Service) Save(ctx context.Context, usr user.User, assignmentID, submissionID string, edit Edit) (Sheet, error) {
	if !usr.CanGrade() {
		return Sheet{}, ErrTeachersOnly
	}
	a, sub, err := svc.fetchOne(ctx, assignmentID, submissionID)
	if err != nil {
		return Sheet{}, err
	}

	for _, i := range edit.QuestionGrades.Indices() {
		if i < 0 || i >= len(a.Questions) {
			return Sheet{}, core.NewFieldValidationError("questionGrades", fmt.Sprintf("question %d does not exist", i))
		}
		if pts := edit.QuestionGrades[i]; pts > a.Questions[i].Points {
			return Sheet{}, core.NewFieldValidationError(
				"questionGrades",
				fmt.Sprintf("question %d is worth %v points at most", i, a.Questions[i].Points),
			)
		}
	}

	upd := assignment.SubmissionUpdate{
		Feedback:             edit.Feedback,
		TeacherApproved:      edit.TeacherApproved,
		TeacherFeedbackFiles: edit.FeedbackFiles,
	}
	if a.HasQuestions() {
		entered := sub.QuestionGrades.Clone()
		if entered == nil {
			entered = make(assignment.Grades)
		}
		for i, pts := range edit.QuestionGrades {
			entered[i] = pts
		}
		// only auto grades the LMS computed decide what is sent; local ones are suggestions
		rec := grading.Reconcile(a.Questions, entered, sub.AutoQuestionGrades)
		total := grading.Total(rec)
		upd.QuestionGrades = rec.Payload
		upd.Grade = &total
		gradeOverrides.Add(float64(len(rec.Overridden)))
	} else {
		upd.Grade = edit.Grade
	}

	updated, err := svc.lms.UpdateSubmission(ctx, sub.ID, upd)
	if err != nil {
		gradeSaves.WithLabelValues("error").Inc()
		return Sheet{}, errors.Wrap(err, "saving grades")
	}
	gradeSaves.WithLabelValues("ok").Inc()
	if updated.ID == "" {
		updated = sub
	}
	return newSheet(a, updated), nil
}

// SetVisibility changes what the student sees of the submission. Grades are left untouched.
func (svc *Service) SetVisibility(ctx context.Context, usr user.User, assignmentID, submissionID string, vis Visibility) (assignment.Submission, error) {
	if !usr.CanGrade() {
		return assignment.Submission{}, ErrTeachersOnly
	}
	_, sub, err := svc.fetchOne(ctx, assignmentID, submissionID)
	if err != nil {
		return assignment.Submission{}, err
	}
	if vis.ShowCorrectAnswers == nil && vis.ShowStudentAnswers == nil {
		return sub, nil
	}
	updated, err := svc.lms.UpdateSubmission(ctx, sub.ID, assignment.SubmissionUpdate{
		ShowCorrectAnswers: vis.ShowCorrectAnswers,
		ShowStudentAnswers: vis.ShowStudentAnswers,
	})
	return updated, errors.Wrap(err, "updating visibility")
}

// Publish publishes or unpublishes an assignment.
func (svc *Service) Publish(ctx context.Context, usr user.User, assignmentID string, published bool) (assignment.Assignment, error) {
	if !usr.CanGrade() {
		return assignment.Assignment{}, ErrTeachersOnly
	}
	a, err := svc.lms.PublishAssignment(ctx, assignmentID, published)
	return a, errors.Wrap(err, "publishing assignment")
}

// CourseGrades returns the course average and, for students, their own grades.
func (svc *Service) CourseGrades(ctx context.Context, usr user.User, courseID string) (CourseGrades, error) {
	cg := CourseGrades{CourseID: courseID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		avg, err := svc.lms.CourseAverage(gctx, courseID)
		cg.Average = avg.Average
		return errors.Wrap(err, "fetching course average")
	})
	if usr.IsStudent() {
		g.Go(func() error {
			var err error
			cg.Grades, err = svc.lms.StudentCourseGrades(gctx, courseID)
			return errors.Wrap(err, "fetching grades")
		})
	}
	if err := g.Wait(); err != nil {
		return CourseGrades{}, err
	}
	if cg.Grades == nil {
		cg.Grades = []StudentGrade{}
	}
	return cg, nil
}
