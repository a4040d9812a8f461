package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/udovin/peerreview/internal/managers"
)

func (v *View) registerPhaseHandlers(g *echo.Group) {
	g.GET("/v0/phase", v.observePhase)
}

func (v *View) registerSocketPhaseHandlers(g *echo.Group) {
	g.GET("/v0/phase", v.observePhase)
	g.POST("/v0/phase", v.openPhase)
	g.DELETE("/v0/phase", v.closePhase)
}

// Phase represents status of review phase.
type Phase struct {
	ID       int64 `json:"id,omitempty"`
	Open     bool  `json:"open"`
	OpenTime int64 `json:"open_time,omitempty"`
	Deadline int64 `json:"deadline,omitempty"`
	// Remaining contains amount of seconds before deadline.
	Remaining int64 `json:"remaining"`
}

func makePhase(status managers.PhaseStatus) Phase {
	if status.PhaseID == 0 {
		return Phase{}
	}
	return Phase{
		ID:        status.PhaseID,
		Open:      status.Open,
		OpenTime:  status.OpenTime.Unix(),
		Deadline:  status.Deadline.Unix(),
		Remaining: int64(status.Remaining / time.Second),
	}
}

func (v *View) observePhase(c echo.Context) error {
	return c.JSON(http.StatusOK, makePhase(v.phases.Status()))
}

// OpenPhaseForm represents form for opening review phase.
type OpenPhaseForm struct {
	// Deadline contains unix time of phase closing.
	Deadline int64 `json:"deadline"`
}

func (v *View) openPhase(c echo.Context) error {
	var form OpenPhaseForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	if _, err := v.phases.OpenPhase(
		getContext(c), time.Unix(form.Deadline, 0),
	); err != nil {
		switch {
		case errors.Is(err, managers.ErrPhaseOpen):
			return errorResponse{
				Code:    http.StatusConflict,
				Message: "Review phase is already open.",
			}
		case errors.Is(err, managers.ErrInvalidDeadline):
			return errorResponse{
				Code:    http.StatusBadRequest,
				Message: "Form has invalid fields.",
				InvalidFields: errorFields{
					"deadline": errorField{Message: "Deadline should be in the future."},
				},
			}
		}
		c.Logger().Error(err)
		return err
	}
	return c.JSON(http.StatusCreated, makePhase(v.phases.Status()))
}

func (v *View) closePhase(c echo.Context) error {
	if err := v.phases.ClosePhase(getContext(c)); err != nil {
		if errors.Is(err, managers.ErrPhaseClosed) {
			return errorResponse{
				Code:    http.StatusConflict,
				Message: "Review phase is closed.",
			}
		}
		c.Logger().Error(err)
		return err
	}
	return c.JSON(http.StatusOK, makePhase(v.phases.Status()))
}
