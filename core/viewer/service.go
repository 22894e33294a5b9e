package viewer

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/draft"
	"github.com/trezcool/masomo-portal/core/grading"
	"github.com/trezcool/masomo-portal/core/quiz"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	// errors
	ErrAlreadySubmitted = errors.New("this assignment has already been submitted")
	ErrStudentsOnly     = errors.New("only students can answer assignments")
)

type (
	// LMS is the part of the LMS API the viewer uses.
	LMS interface {
		GetAssignment(ctx context.Context, id string) (assignment.Assignment, error)
		// GetStudentSubmission returns nil when the signed in student has not submitted yet.
		GetStudentSubmission(ctx context.Context, assignmentID string) (*assignment.Submission, error)
		CreateSubmission(ctx context.Context, ns assignment.NewSubmission) (assignment.Submission, error)
	}

	// View is what a user sees of an assignment.
	View struct {
		Assignment assignment.Assignment  `json:"assignment"`
		Submission *assignment.Submission `json:"submission"`
		// Draft is the restored unsubmitted work of a student.
		Draft     *draft.Draft    `json:"draft,omitempty"`
		Feedback  *grading.Report `json:"feedback,omitempty"`
		Quiz      *quiz.State     `json:"quiz,omitempty"`
		CanSubmit bool            `json:"canSubmit"`
	}

	// Submit is a student's submission request. Nil Answers & Files are taken from the draft.
	Submit struct {
		Answers assignment.Answers `json:"answers"`
		Files   []assignment.File  `json:"files" validate:"omitempty,dive"`
	}

	Service struct {
		lms    LMS
		drafts *draft.Service
		clock  *quiz.Clock
		logger core.Logger
	}
)

func NewService(lms LMS, store core.KeyValueStore, logger core.Logger) *Service {
	return &Service{
		lms:    lms,
		drafts: draft.NewService(store, logger),
		clock:  quiz.NewClock(store, logger),
		logger: logger,
	}
}

// fetch gets the assignment and, for students, their submission, in parallel.
func (svc *Service) fetch(ctx context.Context, usr user.User, assignmentID string) (assignment.Assignment, *assignment.Submission, error) {
	var (
		a   assignment.Assignment
		sub *assignment.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = svc.lms.GetAssignment(gctx, assignmentID)
		return errors.Wrap(err, "fetching assignment")
	})
	if usr.IsStudent() {
		g.Go(func() error {
			var err error
			sub, err = svc.lms.GetStudentSubmission(gctx, assignmentID)
			return errors.Wrap(err, "fetching submission")
		})
	}
	if err := g.Wait(); err != nil {
		return assignment.Assignment{}, nil, err
	}
	if a.ID == "" {
		a.ID = assignmentID
	}
	return a, sub, nil
}

// forget drops the local state of a submitted assignment.
func (svc *Service) forget(ctx context.Context, usr user.User, assignmentID string) {
	svc.drafts.Clear(ctx, usr, assignmentID)
	svc.clock.Stop(ctx, usr, assignmentID)
}

// Load builds the view of an assignment. Feedback visibility is derived anew on every load.
func (svc *Service) Load(ctx context.Context, usr user.User, assignmentID string) (View, error) {
	a, sub, err := svc.fetch(ctx, usr, assignmentID)
	if err != nil {
		return View{}, err
	}

	v := View{Assignment: a, Submission: sub}
	switch {
	case !usr.IsStudent():
	case sub.IsSubmitted():
		svc.forget(ctx, usr, a.ID)
		report := grading.Feedback(a, sub)
		v.Feedback = &report
	default:
		d := svc.drafts.Load(ctx, usr, a.ID, a.Questions)
		v.Draft = &d
		v.CanSubmit = true
		if a.IsTimedQuiz {
			st := svc.clock.Resume(ctx, usr, a)
			v.Quiz = &st
		}
	}
	return v, nil
}

// UpdateDraft saves a change to the student's answers or files.
func (svc *Service) UpdateDraft(ctx context.Context, usr user.User, assignmentID string, patch draft.Patch) (draft.Draft, error) {
	if !usr.IsStudent() {
		return draft.Draft{}, ErrStudentsOnly
	}
	a, sub, err := svc.fetch(ctx, usr, assignmentID)
	if err != nil {
		return draft.Draft{}, err
	}
	if sub.IsSubmitted() {
		svc.forget(ctx, usr, a.ID)
		return draft.Draft{}, ErrAlreadySubmitted
	}
	d, _ := svc.drafts.Save(ctx, usr, a.ID, false, patch, a.Questions)
	return d, nil
}

// Submit turns the student's answers in. The draft & the quiz clock are dropped once the LMS accepted them.
func (svc *Service) Submit(ctx context.Context, usr user.User, assignmentID string, req Submit) (assignment.Submission, error) {
	if !usr.IsStudent() {
		return assignment.Submission{}, ErrStudentsOnly
	}
	a, sub, err := svc.fetch(ctx, usr, assignmentID)
	if err != nil {
		return assignment.Submission{}, err
	}
	if sub.IsSubmitted() {
		svc.forget(ctx, usr, a.ID)
		return assignment.Submission{}, ErrAlreadySubmitted
	}

	d := svc.drafts.Load(ctx, usr, a.ID, a.Questions)
	answers := d.Answers.Clone()
	for i, ans := range req.Answers.Normalize(a.Questions) {
		answers[i] = ans
	}
	files := req.Files
	if files == nil {
		files = d.Files()
	}
	if !a.HasQuestions() && len(files) == 0 {
		return assignment.Submission{}, core.NewFieldValidationError("files", "upload at least one file")
	}

	created, err := svc.lms.CreateSubmission(ctx, assignment.NewSubmission{
		Assignment: a.ID,
		Answers:    answers,
		Files:      files,
	})
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "creating submission")
	}
	svc.forget(ctx, usr, a.ID)
	return created, nil
}

// StartQuiz starts the clock of a timed quiz, or returns the running one.
func (svc *Service) StartQuiz(ctx context.Context, usr user.User, assignmentID string) (quiz.State, error) {
	if !usr.IsStudent() {
		return quiz.State{}, ErrStudentsOnly
	}
	a, sub, err := svc.fetch(ctx, usr, assignmentID)
	if err != nil {
		return quiz.State{}, err
	}
	if sub.IsSubmitted() {
		svc.clock.Stop(ctx, usr, a.ID)
		return quiz.State{}, ErrAlreadySubmitted
	}
	return svc.clock.Start(ctx, usr, a)
}

// QuizStatus returns the state of the student's quiz clock.
func (svc *Service) QuizStatus(ctx context.Context, usr user.User, assignmentID string) (quiz.State, error) {
	if !usr.IsStudent() {
		return quiz.State{}, ErrStudentsOnly
	}
	a, sub, err := svc.fetch(ctx, usr, assignmentID)
	if err != nil {
		return quiz.State{}, err
	}
	if sub.IsSubmitted() {
		svc.clock.Stop(ctx, usr, a.ID)
		return quiz.State{}, ErrAlreadySubmitted
	}
	if !a.IsTimedQuiz {
		return quiz.State{}, quiz.ErrNotTimed
	}
	return svc.clock.Resume(ctx, usr, a), nil
}

// Clock returns the quiz clock, to run countdowns.
func (svc *Service) Clock() *quiz.Clock {
	return svc.clock
}
