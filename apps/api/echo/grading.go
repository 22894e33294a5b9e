package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/gradebook"
	"github.com/trezcool/masomo-portal/core/user"
)

type gradingApi struct {
	svc      *gradebook.Service
	validate *validator.Validate
}

type PublishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

func registerGradingAPI(g *echo.Group, svc *gradebook.Service, validate *validator.Validate) {
	api := gradingApi{svc: svc, validate: validate}

	staffOnly := roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	ag := g.Group("/assignments/:id")
	ag.PATCH("/publish", api.publish, staffOnly)
	ag.GET("/submissions", api.list, staffOnly)

	sg := ag.Group("/submissions/:sid")
	sg.GET("/grading", api.sheet, staffOnly)
	sg.PUT("/grading", api.save, staffOnly)
	sg.PUT("/visibility", api.setVisibility, staffOnly)
}

// Handlers

func (api *gradingApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.List(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *gradingApi) sheet(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sheet, err := api.svc.Sheet(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "getting grading sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *gradingApi) save(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data gradebook.Edit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to gradebook.Edit")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	sheet, err := api.svc.Save(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("sid"), data)
	if err != nil {
		return errors.Wrap(err, "saving grades")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *gradingApi) setVisibility(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data gradebook.Visibility
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to gradebook.Visibility")
	}

	sub, err := api.svc.SetVisibility(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("sid"), data)
	if err != nil {
		return errors.Wrap(err, "setting visibility")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *gradingApi) publish(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data PublishRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	a, err := api.svc.Publish(ctx.Request().Context(), usr, ctx.Param("id"), *data.Published)
	if err != nil {
		return errors.Wrap(err, "publishing assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}
