package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/costing"
	"github.com/mamadbah2/tirecost/internal/service/profit"
	"github.com/mamadbah2/tirecost/internal/service/reporting"
)

const dateLayout = "2006-01-02"

// DashboardService is the set of views served over HTTP.
type DashboardService interface {
	Defaults() models.CostOptions
	ProductCost(ctx context.Context, productName string, opts models.CostOptions) (costing.ProductCost, error)
	Losses(ctx context.Context, productName string) (costing.LossSummary, error)
	Warranty(ctx context.Context, productName string) (costing.WarrantySummary, error)
	DefectiveCredit(ctx context.Context) (costing.DefectiveSummary, error)
	Simulate(ctx context.Context, in costing.SimulationInput, pools *costing.CostPools) (costing.SimulationResult, error)
	Profit(ctx context.Context, q reporting.ProfitQuery) (profit.Summary, error)
	Refresh(ctx context.Context) (profit.Summary, error)
	Metric(ctx context.Context, key string) (models.MetricSnapshot, error)
}

// DashboardHandler exposes the cost and profit views as JSON.
type DashboardHandler struct {
	svc    DashboardService
	logger *zap.Logger
}

// NewDashboardHandler constructs the HTTP handler adapter.
func NewDashboardHandler(svc DashboardService, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{svc: svc, logger: logger}
}

// ProductCost serves GET /api/products/:name/cost.
func (h *DashboardHandler) ProductCost(c *gin.Context) {
	opts, err := parseOptions(c, h.svc.Defaults())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, err := h.svc.ProductCost(c.Request.Context(), c.Param("name"), opts)
	if err != nil {
		h.fail(c, "product cost", err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

// Losses serves GET /api/products/:name/losses.
func (h *DashboardHandler) Losses(c *gin.Context) {
	losses, err := h.svc.Losses(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "losses", err)
		return
	}
	c.JSON(http.StatusOK, losses)
}

// Warranty serves GET /api/products/:name/warranty.
func (h *DashboardHandler) Warranty(c *gin.Context) {
	warranty, err := h.svc.Warranty(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "warranty", err)
		return
	}
	c.JSON(http.StatusOK, warranty)
}

// DefectiveCredit serves GET /api/defective-credit.
func (h *DashboardHandler) DefectiveCredit(c *gin.Context) {
	credit, err := h.svc.DefectiveCredit(c.Request.Context())
	if err != nil {
		h.fail(c, "defective credit", err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

// Profit serves GET /api/profit.
func (h *DashboardHandler) Profit(c *gin.Context) {
	opts, err := parseOptions(c, h.svc.Defaults())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDay(c.Query("start"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start: %v", err)})
		return
	}
	end, err := parseDay(c.Query("end"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end: %v", err)})
		return
	}

	var ascending bool
	switch strings.ToLower(c.Query("order")) {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be asc or desc"})
		return
	}

	summary, err := h.svc.Profit(c.Request.Context(), reporting.ProfitQuery{
		Query: profit.Query{
			Product:   strings.TrimSpace(c.Query("product")),
			Options:   opts,
			SortBy:    profit.ParseSortKey(c.Query("sort")),
			Ascending: ascending,
		},
		Start: start,
		End:   end,
	})
	if err != nil {
		h.fail(c, "profit", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type simulationRequest struct {
	Items   []costing.SimulationItem `json:"items" binding:"required"`
	Options *models.CostOptions      `json:"options"`
	Pools   *costing.CostPools       `json:"pools"`
}

// Simulate serves POST /api/simulations. Missing options fall back to the
// configured defaults, missing pools to the snapshot's.
func (h *DashboardHandler) Simulate(c *gin.Context) {
	var req simulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid simulation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := costing.SimulationInput{Items: req.Items, Options: h.svc.Defaults()}
	if req.Options != nil {
		in.Options = *req.Options
	}

	res, err := h.svc.Simulate(c.Request.Context(), in, req.Pools)
	if err != nil {
		h.fail(c, "simulation", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Metric serves GET /api/metrics/:key.
func (h *DashboardHandler) Metric(c *gin.Context) {
	snap, err := h.svc.Metric(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, "metric", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Refresh serves POST /api/refresh.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	summary, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) fail(c *gin.Context, view string, err error) {
	h.logger.Error("failed serving view", zap.String("view", view), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("unable to compute %s", view)})
}

// parseOptions overrides defaults with the option query parameters.
func parseOptions(c *gin.Context, defaults models.CostOptions) (models.CostOptions, error) {
	opts := defaults
	params := []struct {
		name string
		dst  *bool
	}{
		{"labor", &opts.IncludeLabor},
		{"cash_flow", &opts.IncludeCashFlowExpenses},
		{"losses", &opts.IncludeProductionLosses},
		{"defective_credit", &opts.IncludeDefectiveSalesCredit},
		{"warranty", &opts.IncludeWarrantyValue},
		{"divide", &opts.DivideByProduction},
	}
	for _, p := range params {
		raw, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return models.CostOptions{}, fmt.Errorf("%s must be a boolean", p.name)
		}
		*p.dst = v
	}
	return opts, nil
}

// parseDay parses a yyyy-mm-dd bound. An end bound covers the whole day.
func parseDay(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
