package api

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/managers"
	"github.com/udovin/peerreview/internal/pkg/logs"
)

// View represents API view.
type View struct {
	core       *core.Core
	phases     *managers.PhaseController
	anonymizer *managers.Anonymizer
	queue      *managers.QueueManager
	votes      *managers.VoteValidator
}

// Register registers handlers in specified group.
func (v *View) Register(g *echo.Group) {
	g.Use(wrapResponse)
	g.GET("/ping", v.ping)
	g.GET("/health", v.health)
	v.registerReviewHandlers(g)
	v.registerPhaseHandlers(g)
}

// RegisterSocket registers privileged handlers in specified group.
func (v *View) RegisterSocket(g *echo.Group) {
	g.Use(wrapResponse)
	g.GET("/ping", v.ping)
	g.GET("/health", v.health)
	v.registerSocketPhaseHandlers(g)
	v.registerSocketSolutionHandlers(g)
}

// ping returns pong.
func (v *View) ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

// health returns current healthiness status.
func (v *View) health(c echo.Context) error {
	if err := v.core.DB.Ping(); err != nil {
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "unhealthy")
	}
	return c.String(http.StatusOK, "healthy")
}

// NewView returns a new instance of view.
func NewView(core *core.Core) *View {
	v := View{core: core}
	v.phases = managers.NewPhaseController(core)
	v.anonymizer = managers.NewAnonymizer(core, v.phases)
	v.queue = managers.NewQueueManager(core, v.anonymizer)
	v.votes = managers.NewVoteValidator(core, v.phases, v.queue)
	return &v
}

const (
	reviewerKey    = "reviewer"
	reviewerHeader = "X-Reviewer-ID"
	versionHeader  = "X-Review-Version"
)

type errorField struct {
	Message string `json:"message"`
}

type errorFields map[string]errorField

type errorResponse struct {
	// Code.
	Code int `json:"-"`
	// Message.
	Message string `json:"message"`
	// Reason contains machine-readable reason of rejection.
	Reason string `json:"reason,omitempty"`
	// Retryable is true if request may be repeated with another payload.
	Retryable bool `json:"retryable,omitempty"`
	// InvalidFields.
	InvalidFields errorFields `json:"invalid_fields,omitempty"`
}

// StatusCode returns response status code.
func (r errorResponse) StatusCode() int {
	return r.Code
}

// Error returns response error message.
func (r errorResponse) Error() string {
	var result strings.Builder
	result.WriteString(r.Message)
	if len(r.InvalidFields) > 0 {
		result.WriteString(" (invalid fields: ")
		i := 0
		for field := range r.InvalidFields {
			if i > 0 {
				result.WriteString(", ")
			}
			result.WriteString(field)
			i++
		}
		result.WriteRune(')')
	}
	return result.String()
}

type statusCodeResponse interface {
	StatusCode() int
}

var (
	rnd      = rand.NewSource(time.Now().UnixNano())
	rndMutex = sync.Mutex{}
)

func randUint32() uint32 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return uint32(rnd.Int63() >> 32)
}

func wrapResponse(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Request().Header.Get(echo.HeaderXRequestID)
		if reqID == "" {
			reqID = fmt.Sprintf("%d-%d", time.Now().UnixMilli(), randUint32())
		}
		logger := c.Logger().(*logs.Logger).With(logs.Any("req_id", reqID))
		c.SetLogger(logger)
		c.Response().Header().Add(echo.HeaderXRequestID, reqID)
		c.Response().Header().Add(versionHeader, config.Version)
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
		}
		defer func() {
			finish := time.Now()
			message := fmt.Sprintf("%s %s", c.Request().Method, c.Request().RequestURI)
			params := map[string]string{}
			for _, name := range c.ParamNames() {
				params[name] = c.Param(name)
			}
			args := []any{
				message,
				logs.Any("status", status),
				logs.Any("method", c.Request().Method),
				logs.Any("path", c.Path()),
				logs.Any("params", params),
				logs.Any("remote_ip", c.RealIP()),
				logs.Any("latency", finish.Sub(start)),
				err,
			}
			switch {
			case status >= 500:
				logger.Error(args...)
			case status >= 400:
				logger.Warn(args...)
			default:
				logger.Info(args...)
			}
		}()
		if resp, ok := err.(statusCodeResponse); ok {
			status = resp.StatusCode()
			if status == 0 {
				status = http.StatusInternalServerError
			}
			return c.JSON(status, resp)
		}
		if httpErr, ok := err.(*echo.HTTPError); ok {
			status = httpErr.Code
		}
		return err
	}
}

type authMethod func(c echo.Context) (bool, error)

func (v *View) extractAuth(authMethods ...authMethod) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, method := range authMethods {
				ok, err := method(c)
				if err != nil {
					return err
				}
				if ok {
					return next(c)
				}
			}
			return errorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Unable to authorize.",
			}
		}
	}
}

// reviewerAuth trusts reviewer ID that was set by authenticating gateway.
func (v *View) reviewerAuth(c echo.Context) (bool, error) {
	header := c.Request().Header.Get(reviewerHeader)
	if header == "" {
		return false, nil
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil || id <= 0 {
		return false, errorResponse{
			Code:    http.StatusBadRequest,
			Message: fmt.Sprintf("Invalid reviewer ID: %q.", header),
		}
	}
	c.Set(reviewerKey, id)
	return true, nil
}

func getReviewerID(c echo.Context) int64 {
	id, ok := c.Get(reviewerKey).(int64)
	if !ok {
		panic("reviewer not extracted")
	}
	return id
}

func getContext(c echo.Context) context.Context {
	return c.Request().Context()
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errorResponse{
			Code:    http.StatusBadRequest,
			Message: fmt.Sprintf("Invalid %s ID.", name),
		}
	}
	return id, nil
}

func bindForm(c echo.Context, form any) error {
	if err := c.Bind(form); err != nil {
		c.Logger().Warn(err)
		return errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid form.",
		}
	}
	return nil
}
