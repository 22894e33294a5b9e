package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/draft"
	"github.com/trezcool/masomo-portal/core/grading"
	"github.com/trezcool/masomo-portal/core/quiz"
	"github.com/trezcool/masomo-portal/storage/kvstore/inmem"
	"github.com/trezcool/masomo-portal/tests"
)

type fakeLMS struct {
	mutex       sync.Mutex
	assignments map[string]assignment.Assignment
	submissions map[string]*assignment.Submission // by assignment id
	created     []assignment.NewSubmission
	createErr   error
}

func newFakeLMS(as ...assignment.Assignment) *fakeLMS {
	lms := &fakeLMS{
		assignments: make(map[string]assignment.Assignment),
		submissions: make(map[string]*assignment.Submission),
	}
	for _, a := range as {
		lms.assignments[a.ID] = a
	}
	return lms
}

var errNotFound = errors.New("not found")

func (lms *fakeLMS) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	a, ok := lms.assignments[id]
	if !ok {
		return assignment.Assignment{}, errNotFound
	}
	return a, nil
}

func (lms *fakeLMS) GetStudentSubmission(_ context.Context, assignmentID string) (*assignment.Submission, error) {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	return lms.submissions[assignmentID], nil
}

func (lms *fakeLMS) CreateSubmission(_ context.Context, ns assignment.NewSubmission) (assignment.Submission, error) {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	if lms.createErr != nil {
		return assignment.Submission{}, lms.createErr
	}
	lms.created = append(lms.created, ns)
	now := time.Now().UTC()
	s := &assignment.Submission{
		ID:          "s" + ns.Assignment,
		Assignment:  assignment.Ref{ID: ns.Assignment},
		SubmittedAt: &now,
		Answers:     ns.Answers,
		Files:       ns.Files,
	}
	lms.submissions[ns.Assignment] = s
	return *s, nil
}

func setup(as ...assignment.Assignment) (*Service, *fakeLMS, *inmemkv.Store) {
	lms := newFakeLMS(as...)
	store := inmemkv.NewStore()
	return NewService(lms, store, &testutil.Logger{}), lms, store
}

func TestService_Load(t *testing.T) {
	quiz1 := testutil.QuizAssignment("a1")
	ctx := context.Background()

	t.Run("unknown assignment", func(t *testing.T) {
		svc, _, _ := setup()
		_, err := svc.Load(ctx, testutil.Student, "nope")
		assert.ErrorIs(t, err, errNotFound)
	})

	t.Run("student without submission", func(t *testing.T) {
		svc, _, _ := setup(quiz1)
		v, err := svc.Load(ctx, testutil.Student, quiz1.ID)
		require.NoError(t, err)
		assert.Nil(t, v.Submission)
		assert.True(t, v.CanSubmit)
		require.NotNil(t, v.Draft)
		assert.True(t, v.Draft.IsEmpty())
		require.NotNil(t, v.Quiz)
		assert.Equal(t, quiz.StatusNotStarted, v.Quiz.Status)
		assert.Nil(t, v.Feedback)
	})

	t.Run("teacher", func(t *testing.T) {
		svc, _, _ := setup(quiz1)
		v, err := svc.Load(ctx, testutil.Teacher, quiz1.ID)
		require.NoError(t, err)
		assert.False(t, v.CanSubmit)
		assert.Nil(t, v.Draft)
		assert.Nil(t, v.Quiz)
	})

	t.Run("submission found drops local state", func(t *testing.T) {
		svc, lms, store := setup(quiz1)
		require.NoError(t, store.Set(ctx, draft.Key(quiz1.ID, testutil.Student.ID), `{"answers":{"0":"A"}}`))
		require.NoError(t, store.Set(ctx, quiz.Key(quiz1.ID, testutil.Student.ID), time.Now().UTC().Format(time.RFC3339Nano)))
		lms.submissions[quiz1.ID] = &assignment.Submission{ID: "s1", AutoGraded: true}

		v, err := svc.Load(ctx, testutil.Student, quiz1.ID)
		require.NoError(t, err)
		assert.False(t, v.CanSubmit)
		assert.Nil(t, v.Draft)
		require.NotNil(t, v.Feedback)
		assert.Equal(t, grading.FeedbackFull, v.Feedback.Mode)
		assert.Zero(t, store.Len())
	})

	t.Run("visibility is derived on every load", func(t *testing.T) {
		svc, lms, _ := setup(quiz1)
		sub := &assignment.Submission{ID: "s1"}
		lms.submissions[quiz1.ID] = sub

		v, err := svc.Load(ctx, testutil.Student, quiz1.ID)
		require.NoError(t, err)
		assert.Equal(t, grading.FeedbackNone, v.Feedback.Mode)

		show := true
		sub.ShowStudentAnswers = &show
		v, err = svc.Load(ctx, testutil.Student, quiz1.ID)
		require.NoError(t, err)
		assert.Equal(t, grading.FeedbackCorrectnessOnly, v.Feedback.Mode)
	})
}

func TestService_DraftAndSubmit(t *testing.T) {
	quiz1 := testutil.QuizAssignment("a1")
	ctx := context.Background()
	svc, lms, store := setup(quiz1)
	usr := testutil.Student

	_, err := svc.UpdateDraft(ctx, usr, quiz1.ID, draft.Patch{Answers: assignment.Answers{
		0: assignment.TextAnswer("B"),
		1: assignment.TextAnswer(`{"0":"meow"}`),
	}})
	require.NoError(t, err)
	d, err := svc.UpdateDraft(ctx, usr, quiz1.ID, draft.Patch{Answers: assignment.Answers{2: assignment.TextAnswer("because")}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, d.Answers.Indices())

	_, err = svc.StartQuiz(ctx, usr, quiz1.ID)
	require.NoError(t, err)

	// request answers win over the draft
	sub, err := svc.Submit(ctx, usr, quiz1.ID, Submit{Answers: assignment.Answers{2: assignment.TextAnswer("final")}})
	require.NoError(t, err)
	assert.Equal(t, "sa1", sub.ID)
	require.Len(t, lms.created, 1)
	assert.Equal(t, assignment.Answers{
		0: assignment.ChoiceAnswer("B"),
		1: assignment.MatchAnswer(map[int]string{0: "meow"}),
		2: assignment.TextAnswer("final"),
	}, lms.created[0].Answers)

	// the draft & the quiz clock are gone
	_, err = store.Get(ctx, draft.Key(quiz1.ID, usr.ID))
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	_, err = store.Get(ctx, quiz.Key(quiz1.ID, usr.ID))
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	// and stay gone
	_, err = svc.UpdateDraft(ctx, usr, quiz1.ID, draft.Patch{Answers: assignment.Answers{0: assignment.TextAnswer("A")}})
	assert.Equal(t, ErrAlreadySubmitted, err)
	_, err = svc.Submit(ctx, usr, quiz1.ID, Submit{})
	assert.Equal(t, ErrAlreadySubmitted, err)
	_, err = svc.StartQuiz(ctx, usr, quiz1.ID)
	assert.Equal(t, ErrAlreadySubmitted, err)
	_, err = svc.QuizStatus(ctx, usr, quiz1.ID)
	assert.Equal(t, ErrAlreadySubmitted, err)
	assert.Zero(t, store.Len())
}

func TestService_SubmitFailureKeepsDraft(t *testing.T) {
	quiz1 := testutil.QuizAssignment("a1")
	ctx := context.Background()
	svc, lms, store := setup(quiz1)
	lms.createErr = errors.New("LMS down")

	_, err := svc.UpdateDraft(ctx, testutil.Student, quiz1.ID, draft.Patch{Answers: assignment.Answers{0: assignment.TextAnswer("B")}})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, testutil.Student, quiz1.ID, Submit{})
	assert.Error(t, err)
	_, err = store.Get(ctx, draft.Key(quiz1.ID, testutil.Student.ID))
	assert.NoError(t, err)
}

func TestService_UploadOnly(t *testing.T) {
	upload := assignment.Assignment{ID: "u1", Title: "Essay"}
	ctx := context.Background()
	svc, lms, _ := setup(upload)

	_, err := svc.Submit(ctx, testutil.Student, upload.ID, Submit{})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldMap(), "files")

	file := draft.NewUploadedFile("essay.pdf", "/uploads/essay.pdf", 10)
	_, err = svc.UpdateDraft(ctx, testutil.Student, upload.ID, draft.Patch{UploadedFiles: []draft.UploadedFile{file}})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, testutil.Student, upload.ID, Submit{})
	require.NoError(t, err)
	assert.Equal(t, []assignment.File{{Name: "essay.pdf", URL: "/uploads/essay.pdf"}}, lms.created[0].Files)
}

func TestService_StudentsOnly(t *testing.T) {
	quiz1 := testutil.QuizAssignment("a1")
	ctx := context.Background()
	svc, _, _ := setup(quiz1)

	_, err := svc.UpdateDraft(ctx, testutil.Teacher, quiz1.ID, draft.Patch{})
	assert.Equal(t, ErrStudentsOnly, err)
	_, err = svc.Submit(ctx, testutil.Teacher, quiz1.ID, Submit{})
	assert.Equal(t, ErrStudentsOnly, err)
	_, err = svc.StartQuiz(ctx, testutil.Admin, quiz1.ID)
	assert.Equal(t, ErrStudentsOnly, err)
	_, err = svc.QuizStatus(ctx, testutil.Admin, quiz1.ID)
	assert.Equal(t, ErrStudentsOnly, err)
}

func TestService_Quiz(t *testing.T) {
	ctx := context.Background()
	timed := testutil.QuizAssignment("a1")
	untimed := testutil.QuizAssignment("a2")
	untimed.IsTimedQuiz = false
	svc, _, _ := setup(timed, untimed)

	st, err := svc.StartQuiz(ctx, testutil.Student, timed.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusRunning, st.Status)

	st, err = svc.QuizStatus(ctx, testutil.Student, timed.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.StatusRunning, st.Status)
	assert.NotNil(t, svc.Clock())

	_, err = svc.StartQuiz(ctx, testutil.Student, untimed.ID)
	assert.Equal(t, quiz.ErrNotTimed, err)
	_, err = svc.QuizStatus(ctx, testutil.Student, untimed.ID)
	assert.Equal(t, quiz.ErrNotTimed, err)
}
