package handlers

import (
	"CNRS/models"
	"CNRS/services"
	"CNRS/utils"

	"github.com/gin-gonic/gin"
)

type FilingHandler struct {
	service *services.FilingService
}

func NewFilingHandler(service *services.FilingService) *FilingHandler {
	return &FilingHandler{service: service}
}

// CreateFiling submits a set of case notes of one patient for archival.
func (h *FilingHandler) CreateFiling(c *gin.Context) {
	var body struct {
		PatientID   string `json:"patient_id"`
		CaseNoteIDs []uint `json:"case_note_ids"`
		Notes       string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if body.PatientID == "" || len(body.CaseNoteIDs) == 0 {
		c.JSON(400, gin.H{"error": "patient_id and case_note_ids are required"})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	filing := models.FilingRequest{
		PatientID:         body.PatientID,
		RequestedByUserID: actor.ID,
		Notes:             body.Notes,
	}
	if err := h.service.Create(c.Request.Context(), &filing, body.CaseNoteIDs, actor); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(201, filing)
}

func (h *FilingHandler) ApproveFiling(c *gin.Context) {
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
	_ = c.ShouldBindJSON(&body)

	filing, err := h.service.Approve(c.Request.Context(), id, actor, body.Notes)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, filing)
}

func (h *FilingHandler) RejectFiling(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateRejectionReason(body.Reason); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	actor, err := currentActor(c)
	if err != nil {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	filing, err := h.service.Reject(c.Request.Context(), id, actor, body.Reason)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(200, filing)
}

func (h *FilingHandler) GetFilingByID(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	filing, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if filing == nil {
		c.JSON(404, gin.H{"error": "Filing request not found"})
		return
	}
	c.JSON(200, filing)
}

func (h *FilingHandler) ListFilings(c *gin.Context) {
	filings, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, filings)
}
