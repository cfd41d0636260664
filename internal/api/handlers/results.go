package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"genx-compile/internal/api/models"
	"genx-compile/internal/compile"
	"genx-compile/internal/model"
	"genx-compile/internal/report"

	"github.com/gin-gonic/gin"
)

// Runner compiles the study under root; an empty root means the configured
// one. Roots reaching a Runner have been confined to the handler's root.
type Runner func(ctx context.Context, root string) (*compile.Result, error)

// ResultHandler serves the most recent compilation.
type ResultHandler struct {
	mu      sync.RWMutex
	result  *compile.Result
	run     Runner
	root    string
	running sync.Mutex
	logger  *slog.Logger
}

// NewResultHandler creates a handler. run may be nil to disable POST
// /api/v1/compile. A compile request may only name a root inside root;
// with an empty root only the configured study can be recompiled.
func NewResultHandler(run Runner, root string, logger *slog.Logger) *ResultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultHandler{run: run, root: root, logger: logger}
}

// Set replaces the served compilation.
func (h *ResultHandler) Set(res *compile.Result) {
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
}

func (h *ResultHandler) current(c *gin.Context) (*compile.Result, bool) {
	h.mu.RLock()
	res := h.result
	h.mu.RUnlock()
	if res == nil {
		writeError(c, http.StatusNotFound, "NO_RESULT", errors.New("nothing has been compiled yet"))
		return nil, false
	}
	return res, true
}

func runInfo(res *compile.Result) models.RunInfo {
	return models.RunInfo{RunID: res.RunID, Root: res.Root, StartedAt: res.StartedAt, FinishedAt: res.FinishedAt}
}

// ListPeriods handles GET /api/v1/periods
func (h *ResultHandler) ListPeriods(c *gin.Context) {
	res, ok := h.current(c)
	if !ok {
		return
	}
	out := models.PeriodsResponse{Run: runInfo(res), Periods: []models.PeriodInfo{}}
	for _, p := range res.Periods {
		info := models.PeriodInfo{
			Year:          p.Year,
			Cases:         make([]models.CaseInfo, len(p.Cases)),
			RegionMetrics: p.Region.Metrics,
			TotalMetrics:  p.Total.Metrics,
		}
		for i, cs := range p.Cases {
			info.Cases[i] = models.CaseInfo{ID: cs.ID, Label: cs.Label}
		}
		out.Periods = append(out.Periods, info)
	}
	c.JSON(http.StatusOK, out)
}

// GetTable handles GET /api/v1/periods/:year/:level/:metric
func (h *ResultHandler) GetTable(c *gin.Context) {
	res, ok := h.current(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_YEAR", err)
		return
	}
	p, ok := res.Period(year)
	if !ok {
		writeError(c, http.StatusNotFound, "UNKNOWN_PERIOD", fmt.Errorf("no period %d", year))
		return
	}
	level := c.Param("level")
	b, ok := p.Level(level)
	if !ok {
		writeError(c, http.StatusNotFound, "UNKNOWN_LEVEL", fmt.Errorf("no level %q", level))
		return
	}
	metric := c.Param("metric")
	t, ok := b.Table(metric)
	if !ok {
		writeError(c, http.StatusNotFound, "UNKNOWN_METRIC", fmt.Errorf("no metric %q", metric))
		return
	}
	c.JSON(http.StatusOK, tableResponse(year, level, metric, t))
}

func tableResponse(year int, level, metric string, t *model.Table) models.TableResponse {
	out := models.TableResponse{
		Year:    year,
		Level:   level,
		Metric:  metric,
		Index:   t.Index,
		Columns: t.Columns,
		Rows:    []models.TableRow{},
	}
	for _, r := range t.Rows() {
		row := models.TableRow{Key: r.Key, Values: make([]*float64, len(r.Values))}
		for i, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			row.Values[i] = &v
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// GetAttribution handles GET /api/v1/attribution with optional year and
// case filters.
func (h *ResultHandler) GetAttribution(c *gin.Context) {
	res, ok := h.current(c)
	if !ok {
		return
	}
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_YEAR", err)
			return
		}
		year = y
	}
	caseLabel := c.Query("case")
	out := models.AttributionResponse{Records: []models.AttributionRow{}}
	for _, r := range res.Attribution {
		if (year != 0 && r.Year != year) || (caseLabel != "" && r.Case != caseLabel) {
			continue
		}
		out.Records = append(out.Records, models.AttributionRow{
			Year:            r.Year,
			Case:            r.Case,
			Region:          r.Region,
			ImportCosts:     r.ImportCosts,
			ExportRevenues:  r.ExportRevenues,
			NetTradeCosts:   r.NetTradeCosts,
			RPSCosts:        r.RPSCosts,
			CESCosts:        r.CESCosts,
			TotalExtraCosts: r.TotalExtraCosts(),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetWorkbook handles GET /api/v1/workbooks/:level
func (h *ResultHandler) GetWorkbook(c *gin.Context) {
	res, ok := h.current(c)
	if !ok {
		return
	}
	level := c.Param("level")
	if level != compile.LevelRegion && level != compile.LevelTotal {
		writeError(c, http.StatusNotFound, "UNKNOWN_LEVEL", fmt.Errorf("no level %q", level))
		return
	}
	raw, err := report.WorkbookBytes(res.Periods, level)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "WORKBOOK_ERROR", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_results.xlsx"`, level))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
}

// Compile handles POST /api/v1/compile
func (h *ResultHandler) Compile(c *gin.Context) {
	if h.run == nil {
		writeError(c, http.StatusNotImplemented, "COMPILE_DISABLED", errors.New("compilation is not enabled on this server"))
		return
	}
	var req models.CompileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
			return
		}
	}
	root, err := confine(h.root, req.Root)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ROOT", err)
		return
	}
	if !h.running.TryLock() {
		writeError(c, http.StatusConflict, "COMPILE_RUNNING", errors.New("a compilation is already running"))
		return
	}
	defer h.running.Unlock()

	res, err := h.run(c.Request.Context(), root)
	if err != nil {
		h.logger.Error("compile failed", "root", root, "error", err)
		status, code := compileStatus(err)
		writeError(c, status, code, err)
		return
	}
	h.Set(res)
	c.JSON(http.StatusOK, models.CompileResponse{Run: runInfo(res), Years: res.Years()})
}

// confine resolves a requested study root against base. Relative paths are
// taken from base; any path that leaves base is rejected.
func confine(base, requested string) (string, error) {
	if requested == "" {
		return "", nil
	}
	if base == "" {
		return "", errors.New("this server only compiles its configured root")
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	target := requested
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, target)
	}
	target = filepath.Clean(target)
	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("root %q is outside %s", requested, base)
	}
	return target, nil
}

// compileStatus maps domain failures to client errors.
func compileStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrSchemaViolation):
		return http.StatusUnprocessableEntity, "SCHEMA_VIOLATION"
	case errors.Is(err, model.ErrUnmappedZone):
		return http.StatusUnprocessableEntity, "UNMAPPED_ZONE"
	case errors.Is(err, model.ErrResourceClassificationConflict), errors.Is(err, model.ErrUnclassifiedResource):
		return http.StatusUnprocessableEntity, "RESOURCE_CLASSIFICATION"
	case errors.Is(err, model.ErrCaseOrder):
		return http.StatusUnprocessableEntity, "CASE_ORDER"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELED"
	}
	return http.StatusInternalServerError, "COMPILE_ERROR"
}

func writeError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
