package handlers

import (
	"CNRS/models"
	"CNRS/services"
	"CNRS/utils"
	"errors"

	"github.com/gin-gonic/gin"
)

type HandoverHandler struct {
	service *services.HandoverService
}

func NewHandoverHandler(service *services.HandoverService) *HandoverHandler {
	return &HandoverHandler{service: service}
}

// OfferHandover starts a holder-initiated handover for a case note.
func (h *HandoverHandler) OfferHandover(c *gin.Context) {
	requestID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var handover models.CaseNoteHandover
	if err := c.ShouldBindJSON(&handover); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	handover.CaseNoteRequestID = requestID
	if err := utils.ValidateHandover(handover); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	handover.FromUserID = actor.ID
	if err := h.service.Offer(c.Request.Context(), &handover, actor); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(201, handover)
}

// AcknowledgeHandover records the receiver's intent to take custody.
func (h *HandoverHandler) AcknowledgeHandover(c *gin.Context) {
	handoverID, ok := parseUintParam(c, "handover_id")
	if !ok {
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	var body decisionBody
	_ = c.ShouldBindJSON(&body)

	handover, err := h.service.Acknowledge(c.Request.Context(), handoverID, actor, body.Notes)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, handover)
}

// CompleteHandover confirms physical possession and moves custody.
func (h *HandoverHandler) CompleteHandover(c *gin.Context) {
	handoverID, ok := parseUintParam(c, "handover_id")
	if !ok {
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	handover, err := h.service.Complete(c.Request.Context(), handoverID, actor)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, handover)
}

// ListHandovers returns the handover history of one case note.
func (h *HandoverHandler) ListHandovers(c *gin.Context) {
	requestID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	handovers, err := h.service.ListForRequest(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, handovers)
}

// CreateHandoverRequest files a pull request against the current holder.
func (h *HandoverHandler) CreateHandoverRequest(c *gin.Context) {
	var pull models.HandoverRequest
	if err := c.ShouldBindJSON(&pull); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateHandoverRequest(pull); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	pull.RequestedByUserID = actor.ID
	if err := h.service.CreateRequest(c.Request.Context(), &pull, actor); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(201, pull)
}

// RespondHandoverRequest lets the current holder approve or reject a pull
// request. Approval moves custody immediately.
func (h *HandoverHandler) RespondHandoverRequest(c *gin.Context) {
	pullID, ok := parseUintParam(c, "request_id")
	if !ok {
		return
	}
	var body struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if !body.Approve {
		if err := utils.ValidateRejectionReason(body.Reason); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if body.Notes == "" {
			body.Notes = body.Reason
		}
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	pull, err := h.service.Respond(c.Request.Context(), pullID, actor, body.Approve, body.Notes)
	if err != nil {
		if errors.Is(err, utils.ErrReasonRequired) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, pull)
}

// ListMyHandoverRequests returns pull requests awaiting the caller's decision.
func (h *HandoverHandler) ListMyHandoverRequests(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	requests, err := h.service.ListRequestsForHolder(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, requests)
}
