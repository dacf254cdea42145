package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apnealab/dive-scheduler-api/internal/service"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
	"github.com/apnealab/dive-scheduler-api/pkg/response"
)

// StatsHandler exposes aggregation and export endpoints.
type StatsHandler struct {
	stats   *service.StatsService
	exports *service.ExportService
}

// NewStatsHandler creates a new handler.
func NewStatsHandler(stats *service.StatsService, exports *service.ExportService) *StatsHandler {
	return &StatsHandler{stats: stats, exports: exports}
}

// Summary godoc
// @Summary Monthly summary
// @Description Aggregates the month's lessons, coverage and per-instructor stats
// @Tags Statistics
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Param month query int false "Month 1-12 (defaults to current)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /stats/summary [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	year, month, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.stats.MonthlySummary(c.Request.Context(), claims.OrganizationID, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Workload godoc
// @Summary Workload balance
// @Description Ranks instructors ascending by declared availability for the month
// @Tags Statistics
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Param month query int false "Month 1-12 (defaults to current)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /stats/workload [get]
func (h *StatsHandler) Workload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	year, month, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.stats.WorkloadBalance(c.Request.Context(), claims.OrganizationID, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Export godoc
// @Summary Export monthly report
// @Description Renders the month's report as csv or pdf and returns a signed download token
// @Tags Statistics
// @Accept json
// @Produce json
// @Param payload body object true "Export payload {year, month, format: csv|pdf}"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /stats/export [post]
func (h *StatsHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Year   int    `json:"year"`
		Month  int    `json:"month"`
		Format string `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	if payload.Year == 0 || payload.Month == 0 {
		now := time.Now().UTC()
		if payload.Year == 0 {
			payload.Year = now.Year()
		}
		if payload.Month == 0 {
			payload.Month = int(now.Month())
		}
	}

	result, err := h.exports.MonthlyReport(c.Request.Context(), claims.OrganizationID, payload.Year, payload.Month, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download exported report
// @Description Streams a previously exported report addressed by its signed token
// @Tags Statistics
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *StatsHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, relPath, err := h.exports.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.FileAttachment(file.Name(), filepath.Base(relPath))
}

func periodFromQuery(c *gin.Context) (int, int, error) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid year")
		}
		year = parsed
	}
	if raw := c.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid month")
		}
		month = parsed
	}
	return year, month, nil
}
