package handlers

import (
	"CNRS/models"
	"CNRS/services"
	"CNRS/utils"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	service *services.BatchService
}

func NewBatchHandler(service *services.BatchService) *BatchHandler {
	return &BatchHandler{service: service}
}

// CreateBatch submits several case note requests as one batch.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var body struct {
		Requests []models.CaseNoteRequest `json:"requests"`
		Notes    string                   `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if len(body.Requests) == 0 {
		c.JSON(400, gin.H{"error": "Batch must contain at least one request"})
		return
	}
	for _, req := range body.Requests {
		if err := utils.ValidateCaseNoteRequest(req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}

	batch := models.BatchRequest{
		RequestedByUserID: actor.ID,
		ProcessingNotes:   body.Notes,
	}
	children := make([]*models.CaseNoteRequest, 0, len(body.Requests))
	for i := range body.Requests {
		body.Requests[i].RequestedByUserID = actor.ID
		children = append(children, &body.Requests[i])
	}

	if err := h.service.Create(c.Request.Context(), &batch, children, actor); err != nil {
		writeWorkflowError(c, err)
		return
	}
	batch.Requests = body.Requests
	c.JSON(201, batch)
}

func (h *BatchHandler) GetBatchByID(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	batch, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if batch == nil {
		c.JSON(404, gin.H{"error": "Batch not found"})
		return
	}
	c.JSON(200, batch)
}

func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, batches)
}

// RefreshBatchStatus recomputes the derived aggregate status from the
// children.
func (h *BatchHandler) RefreshBatchStatus(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	batch, err := h.service.RefreshStatus(c.Request.Context(), id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, batch)
}

// ProcessBatch records an administrative batch-level decision.
func (h *BatchHandler) ProcessBatch(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidBatchStatus(body.Status) {
		c.JSON(400, gin.H{"error": "status must be one of pending, approved, rejected, partially_approved"})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.MarkProcessed(c.Request.Context(), id, body.Status, actor, body.Notes)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, batch)
}

// VerifyBatch records the physical receipt count for an approved batch.
func (h *BatchHandler) VerifyBatch(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		ReceivedCount int    `json:"received_count"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.MarkVerified(c.Request.Context(), id, actor, body.ReceivedCount, body.Notes)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, batch)
}
