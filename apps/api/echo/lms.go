package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/gradebook"
)

// lmsApi passes LMS resources through to the portal's callers.
type lmsApi struct {
	lms    LMS
	grades *gradebook.Service
}

func registerLMSAPI(g *echo.Group, lms LMS, grades *gradebook.Service) {
	api := lmsApi{lms: lms, grades: grades}

	g.GET("/submissions/:sid/download", api.download)
	g.GET("/modules/:id", api.module)
	g.GET("/courses/:id/grades", api.courseGrades)
}

// Handlers

func (api *lmsApi) download(ctx echo.Context) error {
	dl, err := api.lms.DownloadSubmission(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "downloading submission")
	}
	defer dl.Body.Close()

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(dl.Filename))
	if dl.ContentLength >= 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(dl.ContentLength, 10))
	}
	return ctx.Stream(http.StatusOK, dl.ContentType, dl.Body)
}

func (api *lmsApi) module(ctx echo.Context) error {
	raw, err := api.lms.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting module")
	}
	return ctx.JSONBlob(http.StatusOK, raw)
}

func (api *lmsApi) courseGrades(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	cg, err := api.grades.CourseGrades(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course grades")
	}
	return ctx.JSON(http.StatusOK, cg)
}
