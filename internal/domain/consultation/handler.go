package consultation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/upstac/consultation/internal/domain/testrequest"
	"github.com/upstac/consultation/internal/domain/user"
	"github.com/upstac/consultation/internal/platform/auth"
)

type QueryService interface {
	FindBy(ctx context.Context, status testrequest.RequestStatus) ([]*testrequest.TestRequest, error)
	FindByDoctor(ctx context.Context, doctor *user.User) ([]*testrequest.TestRequest, error)
	GetByID(ctx context.Context, id int64) (*testrequest.TestRequest, error)
}

type UpdateService interface {
	AssignForConsultation(ctx context.Context, id int64, doctor *user.User) (*testrequest.TestRequest, error)
	UpdateConsultation(ctx context.Context, id int64, req testrequest.CreateConsultationRequest, doctor *user.User) (*testrequest.TestRequest, error)
}

type FlowService interface {
	FindByRequest(ctx context.Context, requestID int64) ([]*testrequest.TestRequestFlow, error)
}

type SessionService interface {
	LoggedInUser(ctx context.Context) (*user.User, error)
}

// Handler serves the doctor-facing consultation endpoints. It holds no state
// of its own; every request is delegated to the injected services.
type Handler struct {
	query   QueryService
	update  UpdateService
	flow    FlowService
	session SessionService
	logger  zerolog.Logger
}

func NewHandler(query QueryService, update UpdateService, flow FlowService, session SessionService, logger zerolog.Logger) *Handler {
	return &Handler{
		query:   query,
		update:  update,
		flow:    flow,
		session: session,
		logger:  logger.With().Str("component", "consultation").Logger(),
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Every consultation endpoint is doctor-only.
	g := api.Group("/consultations", auth.RequireRole(user.RoleDoctor))
	g.GET("/in-queue", h.ListPending)
	g.GET("", h.ListMine)
	g.PUT("/assign/:id", h.Assign)
	g.PUT("/update/:id", h.UpdateOutcome)
	g.GET("/:id/flow", h.GetFlow)
}

// ViolationResponse is the body of a 422 response.
type ViolationResponse struct {
	Message    string                  `json:"message"`
	Violations []testrequest.Violation `json:"violations"`
}

// ListPending returns every request whose lab test is complete and which no
// doctor has taken yet.
func (h *Handler) ListPending(c echo.Context) error {
	items, err := h.query.FindBy(c.Request().Context(), testrequest.StatusLabTestCompleted)
	if err != nil {
		h.logger.Error().Err(err).Msg("list pending consultations")
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

// ListMine returns the requests assigned to the calling doctor.
func (h *Handler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	doctor, err := h.session.LoggedInUser(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("resolve logged in user")
		return h.mapError(err)
	}
	items, err := h.query.FindByDoctor(ctx, doctor)
	if err != nil {
		h.logger.Error().Err(err).Int64("doctor_id", doctor.ID).Msg("list consultations for doctor")
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	doctor, err := h.session.LoggedInUser(ctx)
	if err != nil {
		return h.mapError(err)
	}
	t, err := h.update.AssignForConsultation(ctx, id, doctor)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateOutcome(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req testrequest.CreateConsultationRequest
	if err := c.Bind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	doctor, err := h.session.LoggedInUser(ctx)
	if err != nil {
		return h.mapError(err)
	}
	t, err := h.update.UpdateConsultation(ctx, id, req, doctor)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, t)
}

// GetFlow returns the status history of one request, oldest first.
func (h *Handler) GetFlow(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.query.GetByID(ctx, id); err != nil {
		return h.mapError(err)
	}
	flows, err := h.flow.FindByRequest(ctx, id)
	if err != nil {
		return h.mapError(err)
	}
	if flows == nil {
		flows = []*testrequest.TestRequestFlow{}
	}
	return c.JSON(http.StatusOK, flows)
}

// mapError turns a service error into the HTTP error echo renders.
func (h *Handler) mapError(err error) error {
	var cv *testrequest.ConstraintViolationError
	if errors.As(err, &cv) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ViolationResponse{
			Message:    "constraint violation",
			Violations: cv.Violations,
		})
	}
	var appErr *testrequest.AppError
	if errors.As(err, &appErr) {
		return echo.NewHTTPError(http.StatusBadRequest, appErr.Message)
	}
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "User not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	h.logger.Error().Err(err).Msg("consultation request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func nonNil(items []*testrequest.TestRequest) []*testrequest.TestRequest {
	if items == nil {
		return []*testrequest.TestRequest{}
	}
	return items
}
