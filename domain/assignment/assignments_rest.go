package assignment

import (
	"net/http"

	"teamflow/bizerror"
	"teamflow/common"
	"teamflow/security"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathAssignments = "/v1/assignments"
	PathTurns       = "/v1/turns"
)

func RegisterAssignmentsRestAPI(r *gin.Engine, m AssignmentTraits, middleWares ...gin.HandlerFunc) {
	handler := &assignmentHandler{manager: m}

	g := r.Group(PathAssignments, middleWares...)
	g.POST("", handler.handleAssign)
	g.PATCH(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)

	r.Group(PathTurns, middleWares...).GET("", handler.handleUpcoming)
}

type assignmentHandler struct {
	manager AssignmentTraits
}

func (h *assignmentHandler) handleAssign(c *gin.Context) {
	req := AssignmentRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := h.manager.Assign(c.Request.Context(), &req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func (h *assignmentHandler) handleUpdate(c *gin.Context) {
	id, err := common.BindingPathID(c)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	u := FieldsUpdate{}
	if err := c.ShouldBindBodyWith(&u, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := h.manager.UpdateFields(c.Request.Context(), id, &u)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func (h *assignmentHandler) handleDelete(c *gin.Context) {
	id, err := common.BindingPathID(c)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := h.manager.Delete(c.Request.Context(), id, c.GetHeader(security.HeaderDeleteSecret))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func (h *assignmentHandler) handleUpcoming(c *gin.Context) {
	upcoming, err := h.manager.Upcoming(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, upcoming)
}
