package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/masomo-portal/core/gradebook"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/core/viewer"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out        io.Writer
	session    *user.Session
	viewer     *viewer.Service
	grades     *gradebook.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -user ID -name NAME -role ROLE - sign in; the LMS token is prompted next")
	fmt.Fprintln(cli.out, "  logout - sign out")
	fmt.Fprintln(cli.out, "  view -assignment ID - show an assignment, your draft or your feedback")
	fmt.Fprintln(cli.out, "  answer -assignment ID -question N -value V - save an answer to your draft (empty value clears it)")
	fmt.Fprintln(cli.out, "  attach -assignment ID -file PATH - add a file to your draft")
	fmt.Fprintln(cli.out, "  submit -assignment ID - submit your draft")
	fmt.Fprintln(cli.out, "  quiz -assignment ID [-watch] start|status - start a timed quiz or show the time left")
	fmt.Fprintln(cli.out, "  grades -course ID - show the course average and your grades")
	fmt.Fprintln(cli.out, "  submissions -assignment ID - list the submissions of an assignment")
	fmt.Fprintln(cli.out, "  grade -assignment ID -submission ID [-question N -points P] [-grade G] [-feedback T] [-approve] - grade a submission")
	fmt.Fprintln(cli.out, "  visibility -assignment ID -submission ID [-correct B] [-student B] - show or hide answers to the student")
	fmt.Fprintln(cli.out, "  publish -assignment ID [-unpublish] - publish an assignment")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := cli.newFlagSet("login")
	loginID := loginCmd.String("user", "", "Your LMS user id.")
	loginName := loginCmd.String("name", "", "Your name.")
	loginEmail := loginCmd.String("email", "", "Your e-mail.")
	loginRole := loginCmd.String("role", "", "Your role: student, teacher or admin.")

	viewCmd := cli.newFlagSet("view")
	viewAssignment := viewCmd.String("assignment", "", "The assignment id.")

	answerCmd := cli.newFlagSet("answer")
	answerAssignment := answerCmd.String("assignment", "", "The assignment id.")
	answerQuestion := answerCmd.Int("question", -1, "The question index, starting at 0.")
	answerValue := answerCmd.String("value", "", `The answer: text, the chosen option, or a JSON object for matching questions, eg. {"0":"meow"}.`)

	attachCmd := cli.newFlagSet("attach")
	attachAssignment := attachCmd.String("assignment", "", "The assignment id.")
	attachFile := attachCmd.String("file", "", "The path of the file to attach.")

	submitCmd := cli.newFlagSet("submit")
	submitAssignment := submitCmd.String("assignment", "", "The assignment id.")

	quizCmd := cli.newFlagSet("quiz")
	quizAssignment := quizCmd.String("assignment", "", "The assignment id.")
	quizWatch := quizCmd.Bool("watch", false, "Count down until the time is up.")

	gradesCmd := cli.newFlagSet("grades")
	gradesCourse := gradesCmd.String("course", "", "The course id.")

	submissionsCmd := cli.newFlagSet("submissions")
	submissionsAssignment := submissionsCmd.String("assignment", "", "The assignment id.")

	gradeCmd := cli.newFlagSet("grade")
	gradeAssignment := gradeCmd.String("assignment", "", "The assignment id.")
	gradeSubmission := gradeCmd.String("submission", "", "The submission id.")
	gradeQuestion := gradeCmd.Int("question", -1, "The index of the question to grade.")
	gradePoints := gradeCmd.String("points", "", "The points given for the question.")
	gradeGrade := gradeCmd.String("grade", "", "The grade of an upload-only assignment.")
	gradeFeedback := gradeCmd.String("feedback", "", "Feedback for the student.")
	gradeApprove := gradeCmd.Bool("approve", false, "Mark the grading as approved.")

	visibilityCmd := cli.newFlagSet("visibility")
	visibilityAssignment := visibilityCmd.String("assignment", "", "The assignment id.")
	visibilitySubmission := visibilityCmd.String("submission", "", "The submission id.")
	var visibilityCorrect, visibilityStudent optionalBool
	visibilityCmd.Var(&visibilityCorrect, "correct", "Show the correct answers.")
	visibilityCmd.Var(&visibilityStudent, "student", "Show the student's answers.")

	publishCmd := cli.newFlagSet("publish")
	publishAssignment := publishCmd.String("assignment", "", "The assignment id.")
	publishOff := publishCmd.Bool("unpublish", false, "Unpublish the assignment instead.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		fmt.Fprint(cli.out, "Enter LMS token:")
		token, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		usr := user.User{ID: *loginID, Name: *loginName, Email: *loginEmail, Role: *loginRole}
		return cli.login(ctx, usr, string(token))

	case "logout":
		return cli.logout(ctx)

	case "view":
		if err := parseRequired(viewCmd, args[2:], viewAssignment); err != nil {
			return err
		}
		return cli.view(ctx, *viewAssignment)

	case "answer":
		if err := parseRequired(answerCmd, args[2:], answerAssignment); err != nil {
			return err
		}
		if *answerQuestion < 0 {
			answerCmd.Usage()
			return errHelp
		}
		return cli.answer(ctx, *answerAssignment, *answerQuestion, *answerValue)

	case "attach":
		if err := parseRequired(attachCmd, args[2:], attachAssignment, attachFile); err != nil {
			return err
		}
		return cli.attach(ctx, *attachAssignment, *attachFile)

	case "submit":
		if err := parseRequired(submitCmd, args[2:], submitAssignment); err != nil {
			return err
		}
		return cli.submit(ctx, *submitAssignment)

	case "quiz":
		if err := parseRequired(quizCmd, args[2:], quizAssignment); err != nil {
			return err
		}
		switch quizCmd.Arg(0) {
		case "start":
			return cli.startQuiz(ctx, *quizAssignment, *quizWatch)
		case "status":
			return cli.quizStatus(ctx, *quizAssignment, *quizWatch)
		default:
			quizCmd.Usage()
			return errHelp
		}

	case "grades":
		if err := parseRequired(gradesCmd, args[2:], gradesCourse); err != nil {
			return err
		}
		return cli.courseGrades(ctx, *gradesCourse)

	case "submissions":
		if err := parseRequired(submissionsCmd, args[2:], submissionsAssignment); err != nil {
			return err
		}
		return cli.submissions(ctx, *submissionsAssignment)

	case "grade":
		if err := parseRequired(gradeCmd, args[2:], gradeAssignment, gradeSubmission); err != nil {
			return err
		}
		edit, err := gradeEdit(gradeCmd, *gradeQuestion, *gradePoints, *gradeGrade, *gradeFeedback, *gradeApprove)
		if err != nil {
			return err
		}
		return cli.grade(ctx, *gradeAssignment, *gradeSubmission, edit)

	case "visibility":
		if err := parseRequired(visibilityCmd, args[2:], visibilityAssignment, visibilitySubmission); err != nil {
			return err
		}
		vis := gradebook.Visibility{ShowCorrectAnswers: visibilityCorrect.value, ShowStudentAnswers: visibilityStudent.value}
		return cli.setVisibility(ctx, *visibilityAssignment, *visibilitySubmission, vis)

	case "publish":
		if err := parseRequired(publishCmd, args[2:], publishAssignment); err != nil {
			return err
		}
		return cli.publish(ctx, *publishAssignment, !*publishOff)

	default:
		cli.printUsage()
		return errHelp
	}
}

// parseRequired parses the flags and checks that the required string flags are set.
func parseRequired(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	for _, s := range required {
		if *s == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

// gradeEdit builds the grading edit from the grade command's flags. Only the flags that were set are applied.
func gradeEdit(fs *flag.FlagSet, question int, points, grade, feedback string, approve bool) (gradebook.Edit, error) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var edit gradebook.Edit
	if set["question"] != set["points"] {
		fs.Usage()
		return edit, errHelp
	}
	if set["question"] {
		pts, err := strconv.ParseFloat(points, 64)
		if err != nil {
			return edit, fmt.Errorf("points must be a number (got '%s')", points)
		}
		edit.QuestionGrades = map[int]float64{question: pts}
	}
	if set["grade"] {
		g, err := strconv.ParseFloat(grade, 64)
		if err != nil {
			return edit, fmt.Errorf("grade must be a number (got '%s')", grade)
		}
		edit.Grade = &g
	}
	if set["feedback"] {
		edit.Feedback = &feedback
	}
	if set["approve"] {
		edit.TeacherApproved = &approve
	}
	return edit, nil
}

func (cli *commandLine) print(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, string(data))
	return err
}

// optionalBool is a bool flag that tells whether it was set.
type optionalBool struct {
	value *bool
}

func (b *optionalBool) String() string {
	if b == nil || b.value == nil {
		return ""
	}
	return strconv.FormatBool(*b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value = &v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool {
	return true
}
