package api

import (
	"github.com/labstack/echo/v4"

	"SupraView/internal/domain/models"
	"SupraView/internal/usecase"
	xhttp "SupraView/pkg/http"
)

// MarketHandler exposes the aggregated market state over HTTP.
type MarketHandler struct {
	poller    *usecase.PricePoller
	snapshots *usecase.SnapshotBuilder
	pools     *usecase.PoolAggregator
	positions *usecase.PositionReconciler
}

// NewMarketHandler creates the market API handler.
func NewMarketHandler(poller *usecase.PricePoller, snapshots *usecase.SnapshotBuilder, pools *usecase.PoolAggregator, positions *usecase.PositionReconciler) *MarketHandler {
	return &MarketHandler{
		poller:    poller,
		snapshots: snapshots,
		pools:     pools,
		positions: positions,
	}
}

// RegisterRoutes registers market API routes.
func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/price", h.GetPrice)
	g.GET("/assets", h.GetAssets)
	g.GET("/pools", h.GetPools)
	g.GET("/positions", h.GetPositions)
}

// PriceResponse is the latest emitted update with its trend signal.
type PriceResponse struct {
	Update    *models.PriceUpdate `json:"update"`
	Direction models.Direction    `json:"direction"`
}

// GetPrice returns the most recent price update. 404 until the first
// successful poll cycle.
func (h *MarketHandler) GetPrice(c echo.Context) error {
	update, direction := h.poller.Latest()
	if update == nil {
		return xhttp.NotFoundResponse(c, "no price data yet")
	}
	return xhttp.SuccessResponse(c, PriceResponse{
		Update:    update,
		Direction: direction,
	})
}

// GetAssets returns the rendered asset table.
func (h *MarketHandler) GetAssets(c echo.Context) error {
	table := h.snapshots.Current()
	if table == nil {
		table = []models.AssetSnapshot{}
	}
	return xhttp.SuccessResponse(c, table)
}

// GetPools returns the latest per-symbol pool metrics.
func (h *MarketHandler) GetPools(c echo.Context) error {
	pools := h.pools.Current()
	if pools == nil {
		pools = map[string]models.PoolMetrics{}
	}
	return xhttp.SuccessResponse(c, pools)
}

// PositionsRequest queries wallet positions for one account.
type PositionsRequest struct {
	Account string `query:"account" validate:"required"`
}

// PositionsResponse is the consolidated position map for one account.
type PositionsResponse struct {
	Account   string                           `json:"account"`
	Positions map[string]models.WalletPosition `json:"positions"`
}

// GetPositions refreshes and returns positions for the requested account.
func (h *MarketHandler) GetPositions(c echo.Context) error {
	var req PositionsRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	if err := h.positions.Refresh(c.Request().Context(), req.Account); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	account, positions := h.positions.Current()
	if positions == nil {
		positions = map[string]models.WalletPosition{}
	}
	return xhttp.SuccessResponse(c, PositionsResponse{
		Account:   account,
		Positions: positions,
	})
}
