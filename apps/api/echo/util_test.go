package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/assignment"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/lmsapi"
	"github.com/trezcool/masomo-portal/storage/kvstore/inmem"
	"github.com/trezcool/masomo-portal/tests"
)

const secretKey = "secret"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// fakeLMS serves the LMS REST API from memory.
type fakeLMS struct {
	mutex       sync.Mutex
	assignments map[string]assignment.Assignment
	submissions []assignment.Submission
	created     []assignment.NewSubmission
	auths       []string
}

func newFakeLMS(t *testing.T, as ...assignment.Assignment) (*fakeLMS, *httptest.Server) {
	lms := &fakeLMS{assignments: make(map[string]assignment.Assignment)}
	for _, a := range as {
		lms.assignments[a.ID] = a
	}

	app := echo.New()
	app.Use(lms.auth)
	app.GET("/api/assignments/:id", lms.getAssignment)
	app.PATCH("/api/assignments/:id/publish", lms.publish)
	app.POST("/api/submissions", lms.createSubmission)
	app.PUT("/api/submissions/:id", lms.updateSubmission)
	app.GET("/api/submissions/student/:id", lms.studentSubmission)
	app.GET("/api/submissions/assignment/:id", lms.listSubmissions)
	app.GET("/api/submissions/:id/download", func(ctx echo.Context) error {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="essay.pdf"`)
		return ctx.Blob(http.StatusOK, "application/pdf", []byte("%PDF-1.4"))
	})
	app.GET("/api/modules/view/:id", func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusOK, []byte(`{"_id":"m1","title":"Fractions","items":[{"type":"video"}]}`))
	})
	app.GET("/api/grades/course/:id/average", func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusOK, []byte(`{"average":72.5,"count":3}`))
	})
	app.GET("/api/grades/student/course/:id", func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusOK, []byte(`{"data":[{"assignment":{"_id":"a1","name":"Quiz a1"},"grade":8,"maxPoints":10}]}`))
	})

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return lms, srv
}

func (lms *fakeLMS) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		lms.mutex.Lock()
		lms.auths = append(lms.auths, auth)
		lms.mutex.Unlock()
		if auth == "" {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "No token"})
		}
		return next(ctx)
	}
}

func (lms *fakeLMS) lastAuth() string {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	if len(lms.auths) == 0 {
		return ""
	}
	return lms.auths[len(lms.auths)-1]
}

func (lms *fakeLMS) createdSubmissions() []assignment.NewSubmission {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	return append([]assignment.NewSubmission(nil), lms.created...)
}

func (lms *fakeLMS) getAssignment(ctx echo.Context) error {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	a, ok := lms.assignments[ctx.Param("id")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"message": "Assignment not found"})
	}
	return ctx.JSON(http.StatusOK, a)
}

func (lms *fakeLMS) publish(ctx echo.Context) error {
	var body struct {
		Published bool `json:"published"`
	}
	if err := ctx.Bind(&body); err != nil {
		return err
	}
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	a, ok := lms.assignments[ctx.Param("id")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"message": "Assignment not found"})
	}
	if a.Title == "Locked" {
		return ctx.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "Assignment has submissions"})
	}
	a.Published = body.Published
	lms.assignments[a.ID] = a
	return ctx.JSON(http.StatusOK, a)
}

func (lms *fakeLMS) createSubmission(ctx echo.Context) error {
	var ns assignment.NewSubmission
	if err := json.NewDecoder(ctx.Request().Body).Decode(&ns); err != nil {
		return err
	}
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	lms.created = append(lms.created, ns)
	now := time.Now().UTC()
	sub := assignment.Submission{
		ID:          "s" + ns.Assignment,
		Assignment:  assignment.Ref{ID: ns.Assignment},
		Student:     assignment.Ref{ID: testutil.Student.ID},
		SubmittedAt: &now,
		Answers:     ns.Answers,
		Files:       ns.Files,
	}
	lms.submissions = append(lms.submissions, sub)
	return ctx.JSON(http.StatusCreated, sub)
}

func (lms *fakeLMS) updateSubmission(ctx echo.Context) error {
	var upd assignment.SubmissionUpdate
	if err := json.NewDecoder(ctx.Request().Body).Decode(&upd); err != nil {
		return err
	}
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	for i, s := range lms.submissions {
		if s.ID != ctx.Param("id") {
			continue
		}
		if upd.QuestionGrades != nil {
			s.QuestionGrades = upd.QuestionGrades
		}
		if upd.Grade != nil {
			s.Grade = upd.Grade
			s.FinalGrade = upd.Grade
		}
		if upd.Feedback != nil {
			s.Feedback = *upd.Feedback
		}
		if upd.ShowCorrectAnswers != nil {
			s.ShowCorrectAnswers = upd.ShowCorrectAnswers
		}
		lms.submissions[i] = s
		return ctx.JSON(http.StatusOK, s)
	}
	return ctx.JSON(http.StatusNotFound, echo.Map{"message": "Submission not found"})
}

func (lms *fakeLMS) studentSubmission(ctx echo.Context) error {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	for _, s := range lms.submissions {
		if s.Assignment.ID == ctx.Param("id") && s.Student.ID == testutil.Student.ID {
			return ctx.JSON(http.StatusOK, s)
		}
	}
	return ctx.JSON(http.StatusNotFound, echo.Map{"message": "No submission"})
}

func (lms *fakeLMS) listSubmissions(ctx echo.Context) error {
	lms.mutex.Lock()
	defer lms.mutex.Unlock()
	subs := make([]assignment.Submission, 0)
	for _, s := range lms.submissions {
		if s.Assignment.ID == ctx.Param("id") {
			subs = append(subs, s)
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"submissions": subs})
}

func setup(t *testing.T, as ...assignment.Assignment) (Server, *fakeLMS) {
	lms, srv := newFakeLMS(t, as...)

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		SecretKey: secretKey,
		Server:    core.ServerConfig{DisableReqLogs: true},
		LMS:       core.LMSConfig{BaseURL: srv.URL},
	}
	validate, translator := core.NewValidator()
	assignment.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     &testutil.Logger{},
		LMS:        lmsapi.NewClientWithHTTP(srv.URL, srv.Client(), nil),
		Store:      inmemkv.NewStore(),
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = server.Close() })
	return server, lms
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(secretKey, NewClaims(usr, time.Hour))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decode unmarshals the JSON response into a generic map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String()) {
		t.FailNow()
	}
	return m
}
