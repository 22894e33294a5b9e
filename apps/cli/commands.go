package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/draft"
	"github.com/trezcool/masomo-portal/core/gradebook"
	"github.com/trezcool/masomo-portal/core/quiz"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/core/viewer"
)

func (cli *commandLine) login(ctx context.Context, usr user.User, token string) error {
	usr.Role = core.CleanString(usr.Role, true /* lower */)
	if err := cli.validate.Struct(usr); err != nil {
		return core.TranslateErrors(err, cli.translator)
	}
	if err := cli.session.SignIn(ctx, usr, token); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cli.out, "Signed in as %s (%s)\n", usr.ID, usr.Role)
	return err
}

func (cli *commandLine) logout(ctx context.Context) error {
	return cli.session.SignOut(ctx)
}

func (cli *commandLine) view(ctx context.Context, assignmentID string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	v, err := cli.viewer.Load(ctx, usr, assignmentID)
	if err != nil {
		return err
	}
	return cli.print(v)
}

func (cli *commandLine) answer(ctx context.Context, assignmentID string, question int, value string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	// re-tagged after the question type when saved
	patch := draft.Patch{Answers: assignment.Answers{question: assignment.TextAnswer(value)}}
	d, err := cli.viewer.UpdateDraft(ctx, usr, assignmentID, patch)
	if err != nil {
		return err
	}
	return cli.print(d)
}

func (cli *commandLine) attach(ctx context.Context, assignmentID, path string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolving file path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return core.NewFieldValidationError("file", err.Error())
	}
	if info.IsDir() {
		return core.NewFieldValidationError("file", abs+" is a directory")
	}

	v, err := cli.viewer.Load(ctx, usr, assignmentID)
	if err != nil {
		return err
	}
	if v.Draft == nil {
		return errors.New("this assignment cannot be answered")
	}
	files := append(v.Draft.UploadedFiles, draft.NewUploadedFile(info.Name(), "file://"+abs, info.Size()))
	d, err := cli.viewer.UpdateDraft(ctx, usr, assignmentID, draft.Patch{UploadedFiles: files})
	if err != nil {
		return err
	}
	return cli.print(d)
}

func (cli *commandLine) submit(ctx context.Context, assignmentID string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	sub, err := cli.viewer.Submit(ctx, usr, assignmentID, viewer.Submit{}) // the draft is submitted as is
	if err != nil {
		return err
	}
	return cli.print(sub)
}

func (cli *commandLine) startQuiz(ctx context.Context, assignmentID string, watch bool) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	st, err := cli.viewer.StartQuiz(ctx, usr, assignmentID)
	if err != nil {
		return err
	}
	return cli.showQuiz(ctx, st, watch)
}

func (cli *commandLine) quizStatus(ctx context.Context, assignmentID string, watch bool) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	st, err := cli.viewer.QuizStatus(ctx, usr, assignmentID)
	if err != nil {
		return err
	}
	return cli.showQuiz(ctx, st, watch)
}

func (cli *commandLine) showQuiz(ctx context.Context, st quiz.State, watch bool) error {
	fmt.Fprintln(cli.out, formatQuiz(st))
	if !watch {
		return nil
	}
	cli.viewer.Clock().Run(ctx, st, func(st quiz.State) {
		fmt.Fprintln(cli.out, formatQuiz(st))
	})
	return nil
}

func formatQuiz(st quiz.State) string {
	switch st.Status {
	case quiz.StatusRunning:
		secs := st.RemainingSeconds()
		return fmt.Sprintf("%s: %02d:%02d left", st.Status, secs/60, secs%60)
	case quiz.StatusExpired:
		return fmt.Sprintf("%s: time is up", st.Status)
	default:
		return fmt.Sprintf("%s: %d minutes once started", st.Status, int(st.Limit.Minutes()))
	}
}

func (cli *commandLine) courseGrades(ctx context.Context, courseID string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	cg, err := cli.grades.CourseGrades(ctx, usr, courseID)
	if err != nil {
		return err
	}
	return cli.print(cg)
}

func (cli *commandLine) submissions(ctx context.Context, assignmentID string) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	rows, err := cli.grades.List(ctx, usr, assignmentID)
	if err != nil {
		return err
	}
	return cli.print(rows)
}

// grade saves the edit, or shows the grading sheet when there is nothing to save.
func (cli *commandLine) grade(ctx context.Context, assignmentID, submissionID string, edit gradebook.Edit) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	if err = cli.validate.Struct(edit); err != nil {
		return core.TranslateErrors(err, cli.translator)
	}

	var sheet gradebook.Sheet
	if isEmptyEdit(edit) {
		sheet, err = cli.grades.Sheet(ctx, usr, assignmentID, submissionID)
	} else {
		sheet, err = cli.grades.Save(ctx, usr, assignmentID, submissionID, edit)
	}
	if err != nil {
		return err
	}
	return cli.print(sheet)
}

func isEmptyEdit(edit gradebook.Edit) bool {
	return len(edit.QuestionGrades) == 0 && edit.Grade == nil && edit.Feedback == nil &&
		edit.FeedbackFiles == nil && edit.TeacherApproved == nil
}

func (cli *commandLine) setVisibility(ctx context.Context, assignmentID, submissionID string, vis gradebook.Visibility) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	sub, err := cli.grades.SetVisibility(ctx, usr, assignmentID, submissionID, vis)
	if err != nil {
		return err
	}
	return cli.print(sub)
}

func (cli *commandLine) publish(ctx context.Context, assignmentID string, published bool) error {
	usr, err := cli.session.User(ctx)
	if err != nil {
		return err
	}
	a, err := cli.grades.Publish(ctx, usr, assignmentID, published)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.out, "%s published: %t\n", a.Title, a.Published)
	return err
}
