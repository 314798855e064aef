package handlers

import (
	"CNRS/middlewares"
	"CNRS/models"
	"CNRS/repositories"
	"CNRS/services"
	"CNRS/utils"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CaseNoteHandler struct {
	service *services.CaseNoteService
}

func NewCaseNoteHandler(service *services.CaseNoteService) *CaseNoteHandler {
	return &CaseNoteHandler{service: service}
}

// currentActor resolves the acting user from the request context set by the
// token middleware.
func currentActor(c *gin.Context) (models.Actor, error) {
	idStr, err := middlewares.ExtractUserIDFromContext(c.Request.Context())
	if err != nil {
		return models.Actor{}, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return models.Actor{}, err
	}
	name, err := middlewares.ExtractUserNameFromContext(c.Request.Context())
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: id, Name: name}, nil
}

// writeWorkflowError maps workflow errors onto HTTP statuses. Concurrent
// modification is 409 with a retryable hint so clients know a plain retry is
// safe.
func writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrIllegalTransition):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConcurrentModification):
		c.JSON(409, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, repositories.ErrNotCurrentHolder):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrTransferInFlight):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPatientNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": err.Error()})
	}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(value), true
}

func (h *CaseNoteHandler) CreateRequest(c *gin.Context) {
	var req models.CaseNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateCaseNoteRequest(req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	req.RequestedByUserID = actor.ID
	if err := h.service.Create(c.Request.Context(), &req, actor); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(201, req)
}

func (h *CaseNoteHandler) GetRequestByID(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	req, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if req == nil {
		c.JSON(404, gin.H{"error": "Request not found"})
		return
	}
	c.JSON(200, req)
}

func (h *CaseNoteHandler) ListRequests(c *gin.Context) {
	filter := repositories.ListFilter{
		Status:    models.RequestStatus(c.Query("status")),
		Priority:  c.Query("priority"),
		PatientID: c.Query("patient_id"),
	}
	if departmentID, err := strconv.ParseUint(c.Query("department_id"), 10, 32); err == nil {
		filter.DepartmentID = uint(departmentID)
	}
	if holderID, err := strconv.ParseInt(c.Query("holder_user_id"), 10, 64); err == nil {
		filter.HolderUserID = holderID
	}
	if batchID, err := strconv.ParseUint(c.Query("batch_id"), 10, 32); err == nil {
		filter.BatchID = uint(batchID)
	}
	filter.OverdueOnly = c.Query("overdue") == "true"
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		filter.To = to
	}

	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, requests)
}

// GetTimeline returns the full event history of one request in replay order.
func (h *CaseNoteHandler) GetTimeline(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	events, err := h.service.Timeline(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, events)
}

func (h *CaseNoteHandler) ApproveRequest(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		return h.service.Approve(c.Request.Context(), id, actor, body.Remarks)
	})
}

func (h *CaseNoteHandler) RejectRequest(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		if err := utils.ValidateRejectionReason(body.Reason); err != nil {
			return nil, err
		}
		return h.service.Reject(c.Request.Context(), id, actor, body.Reason)
	})
}

func (h *CaseNoteHandler) CompleteRequest(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		return h.service.Complete(c.Request.Context(), id, actor)
	})
}

func (h *CaseNoteHandler) MarkReceived(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		return h.service.MarkReceived(c.Request.Context(), id, actor, body.Notes)
	})
}

func (h *CaseNoteHandler) MarkReturned(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		return h.service.MarkReturned(c.Request.Context(), id, actor, body.Notes)
	})
}

func (h *CaseNoteHandler) VerifyReturn(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		return h.service.VerifyReturn(c.Request.Context(), id, actor, body.Notes)
	})
}

func (h *CaseNoteHandler) RejectReturn(c *gin.Context) {
	h.transition(c, func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error) {
		if err := utils.ValidateRejectionReason(body.Reason); err != nil {
			return nil, err
		}
		return h.service.RejectReturn(c.Request.Context(), id, actor, body.Reason)
	})
}

func (h *CaseNoteHandler) DeleteRequest(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(204, gin.H{"message": "Request deleted"})
}

// decisionBody is the shared optional body for transition endpoints.
type decisionBody struct {
	Remarks string `json:"remarks"`
	Reason  string `json:"reason"`
	Notes   string `json:"notes"`
}

func (h *CaseNoteHandler) transition(c *gin.Context, apply func(id uint, actor models.Actor, body decisionBody) (*models.CaseNoteRequest, error)) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	var body decisionBody
	// Body is optional on most transitions.
	_ = c.ShouldBindJSON(&body)

	req, err := apply(id, actor, body)
	if err != nil {
		if errors.Is(err, utils.ErrReasonRequired) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, req)
}
