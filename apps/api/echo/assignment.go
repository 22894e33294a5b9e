package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/draft"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/core/viewer"
)

type assignmentApi struct {
	svc      *viewer.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, svc *viewer.Service, validate *validator.Validate) {
	api := assignmentApi{svc: svc, validate: validate}

	ag := g.Group("/assignments/:id")
	ag.GET("/view", api.view)

	studentOnly := roleMiddleware(user.RoleStudent)
	ag.PUT("/draft", api.updateDraft, studentOnly)
	ag.POST("/submit", api.submit, studentOnly)
	ag.POST("/quiz/start", api.startQuiz, studentOnly)
	ag.GET("/quiz", api.quizStatus, studentOnly)
}

// Handlers

func (api *assignmentApi) view(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.Load(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading assignment")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *assignmentApi) updateDraft(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data draft.Patch
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to draft.Patch")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	for i, f := range data.UploadedFiles {
		if f.ID == "" {
			data.UploadedFiles[i] = draft.NewUploadedFile(f.Name, f.URL, f.Size)
		}
	}

	d, err := api.svc.UpdateDraft(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating draft")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data viewer.Submit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to viewer.Submit")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) startQuiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.StartQuiz(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting quiz")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *assignmentApi) quizStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.QuizStatus(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz status")
	}
	return ctx.JSON(http.StatusOK, st)
}
