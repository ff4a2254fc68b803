package api

import (
	"context"
	"errors"
	"net/http"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/middleware"
	"ChartReplay/internal/service/ratelimit"
	"ChartReplay/internal/usecase"
	xhttp "ChartReplay/pkg/http"
	applogger "ChartReplay/pkg/logger"
	"ChartReplay/pkg/util"

	"github.com/labstack/echo/v4"
)

// ChartEchoHandler exposes the chart engine over HTTP. Navigation and
// replay requests run under the budget guard: when the budget elapses
// the client gets 202 and the completed result arrives on the push
// channel instead.
type ChartEchoHandler struct {
	uc     *usecase.ChartUseCase
	guard  *middleware.BudgetGuard
	rl     *ratelimit.Limiter
	logger *applogger.Logger
}

func NewChartEchoHandler(uc *usecase.ChartUseCase, guard *middleware.BudgetGuard, logger *applogger.Logger) *ChartEchoHandler {
	return &ChartEchoHandler{uc: uc, guard: guard, rl: ratelimit.New(), logger: logger}
}

func (h *ChartEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/chart")
	g.POST("/init", h.Init)
	g.POST("/range", h.Range)
	g.POST("/goto", h.GoToDate)
	g.POST("/skip", h.Skip)
	g.POST("/speed", h.Speed)
	g.POST("/play", h.Play)
	g.POST("/pause", h.Pause)
	g.GET("/state", h.State)
}

func (h *ChartEchoHandler) Init(c echo.Context) error {
	req := &models.LoadInitialRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	win, err := middleware.Guarded(c.Request().Context(), h.guard, "load_initial", func(ctx context.Context) *models.BarWindow {
		return h.uc.LoadInitial(ctx, req.TF, req.VisibleCount)
	})
	if err != nil {
		return h.budgetResponse(c, err)
	}
	return windowResponse(c, win)
}

func (h *ChartEchoHandler) Range(c echo.Context) error {
	req := &models.GetRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	win, err := middleware.Guarded(c.Request().Context(), h.guard, "get_range", func(ctx context.Context) *models.BarWindow {
		return h.uc.GetRange(ctx, req.TF, req.From, req.To, req.MaxCount)
	})
	if err != nil {
		return h.budgetResponse(c, err)
	}
	return windowResponse(c, win)
}

func (h *ChartEchoHandler) GoToDate(c echo.Context) error {
	req := &models.GoToDateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day, err := util.ParseDate(req.Date)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("invalid date"))
	}

	// large re-walks follow a jump; widen the budget for a while
	h.guard.MarkJump()

	win, err := middleware.Guarded(c.Request().Context(), h.guard, "go_to_date", func(ctx context.Context) *models.BarWindow {
		return h.uc.GoToDate(ctx, day, req.VisibleCount)
	})
	if err != nil {
		return h.budgetResponse(c, err)
	}
	return windowResponse(c, win)
}

func (h *ChartEchoHandler) Skip(c echo.Context) error {
	req := &models.SkipForwardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":skip", 30, 10) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	type skipResult struct {
		res *models.StepResult
		err error
	}
	out, err := middleware.Guarded(c.Request().Context(), h.guard, "skip_forward", func(ctx context.Context) skipResult {
		res, err := h.uc.SkipForward(ctx, req.TF)
		return skipResult{res: res, err: err}
	})
	if err != nil {
		return h.budgetResponse(c, err)
	}
	if out.err != nil {
		if errors.Is(out.err, domrepo.ErrEndOfReplay) {
			return xhttp.SuccessResponse(c, &models.SkipOutcome{EndOfData: true})
		}
		if errors.Is(out.err, domrepo.ErrInvalidTimeframe) || errors.Is(out.err, domrepo.ErrNotLoaded) {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError(out.err.Error()))
		}
		h.logger.Error("skip failed", applogger.Error(out.err))
		return xhttp.AppErrorResponse(c, out.err)
	}
	return xhttp.SuccessResponse(c, &models.SkipOutcome{Step: out.res})
}

func (h *ChartEchoHandler) Speed(c echo.Context) error {
	req := &models.SetSpeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.uc.SetSpeed(req.Speed); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.uc.State())
}

func (h *ChartEchoHandler) Play(c echo.Context) error {
	if err := h.uc.Play(); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.uc.State())
}

func (h *ChartEchoHandler) Pause(c echo.Context) error {
	h.uc.Pause()
	return xhttp.SuccessResponse(c, h.uc.State())
}

func (h *ChartEchoHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.State())
}

// budgetResponse reports a still-running operation. Nothing failed and
// nothing was rolled back; the push channel delivers the outcome.
func (h *ChartEchoHandler) budgetResponse(c echo.Context, err error) error {
	if errors.Is(err, middleware.ErrBudgetExceeded) {
		return xhttp.DataResponse(c, http.StatusAccepted, err.Error())
	}
	h.logger.Error("chart request failed", applogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func windowResponse(c echo.Context, win *models.BarWindow) error {
	if !win.Success {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(win.Reason))
	}
	return xhttp.SuccessResponse(c, win)
}
