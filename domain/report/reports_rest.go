package report

import (
	"net/http"

	"teamflow/bizerror"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathAssignments = "/v1/assignments"
	PathReports     = "/v1/reports"
)

func RegisterReportsRestAPI(r *gin.Engine, f ReportTraits, middleWares ...gin.HandlerFunc) {
	handler := &reportHandler{facade: f}

	r.Group(PathAssignments, middleWares...).GET("", handler.handleList)

	g := r.Group(PathReports, middleWares...)
	g.GET("summary", handler.handleSummary)
	g.GET("members", handler.handleMembers)
	g.GET("payments", handler.handlePayments)
	g.GET("monthly", handler.handleMonthly)
}

type reportHandler struct {
	facade ReportTraits
}

func (h *reportHandler) handleList(c *gin.Context) {
	q := RecordQuery{}
	if err := c.ShouldBindWith(&q, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := h.facade.List(c.Request.Context(), q)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func (h *reportHandler) handleSummary(c *gin.Context) {
	summary, err := h.facade.Summary(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, summary)
}

func (h *reportHandler) handleMembers(c *gin.Context) {
	stats, err := h.facade.MemberCounts(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stats)
}

func (h *reportHandler) handlePayments(c *gin.Context) {
	totals, err := h.facade.PaymentTotals(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, totals)
}

func (h *reportHandler) handleMonthly(c *gin.Context) {
	stats, err := h.facade.MonthlyRollup(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stats)
}
