package handlers

import (
	"CNRS/services"
	"time"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	from, err = time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(400, gin.H{"error": "from must be a YYYY-MM-DD date"})
		return from, to, false
	}
	to, err = time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(400, gin.H{"error": "to must be a YYYY-MM-DD date"})
		return from, to, false
	}
	// Make the range inclusive of the whole end day.
	to = to.Add(24*time.Hour - time.Second)
	if to.Before(from) {
		c.JSON(400, gin.H{"error": "to must not be before from"})
		return from, to, false
	}
	return from, to, true
}

// GetTrackingReport returns the movement report rows as JSON.
func (h *ReportHandler) GetTrackingReport(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}
	rows, err := h.service.TrackingRows(c.Request.Context(), from, to, c.Query("direction"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, rows)
}

// ExportTrackingExcel streams the report as an .xlsx download.
func (h *ReportHandler) ExportTrackingExcel(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}
	payload, err := h.service.ExportExcel(c.Request.Context(), from, to, c.Query("direction"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=case_note_tracking.xlsx")
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

// ExportTrackingPDF streams the report as a PDF download.
func (h *ReportHandler) ExportTrackingPDF(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}
	payload, err := h.service.ExportPDF(c.Request.Context(), from, to, c.Query("direction"))
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=case_note_tracking.pdf")
	c.Data(200, "application/pdf", payload)
}
