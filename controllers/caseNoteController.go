package controllers

import (
	"CNRS/handlers"
	"CNRS/middlewares"
	"CNRS/models"

	"github.com/gin-gonic/gin"
)

// SetupCaseNoteRoutes registers the custody workflow routes. All of them
// require a valid token; decision and verification endpoints are further
// restricted by role.
func SetupCaseNoteRoutes(router *gin.Engine, caseNoteHandler *handlers.CaseNoteHandler, handoverHandler *handlers.HandoverHandler, batchHandler *handlers.BatchHandler, filingHandler *handlers.FilingHandler, reportHandler *handlers.ReportHandler, patientHandler *handlers.PatientHandler) {
	authed := router.Group("/").Use(middlewares.TokenAuthMiddleware())
	{
		authed.POST("/case-notes", caseNoteHandler.CreateRequest)
		authed.GET("/case-notes", caseNoteHandler.ListRequests)
		authed.GET("/case-notes/:id", caseNoteHandler.GetRequestByID)
		authed.GET("/case-notes/:id/timeline", caseNoteHandler.GetTimeline)

		// Holder-side custody actions.
		authed.POST("/case-notes/:id/receive", caseNoteHandler.MarkReceived)
		authed.POST("/case-notes/:id/return", caseNoteHandler.MarkReturned)
		authed.POST("/case-notes/:id/handovers", handoverHandler.OfferHandover)
		authed.GET("/case-notes/:id/handovers", handoverHandler.ListHandovers)
		authed.POST("/handovers/:handover_id/acknowledge", handoverHandler.AcknowledgeHandover)
		authed.POST("/handovers/:handover_id/complete", handoverHandler.CompleteHandover)

		// Receiver-initiated pull requests.
		authed.POST("/handover-requests", handoverHandler.CreateHandoverRequest)
		authed.GET("/handover-requests/mine", handoverHandler.ListMyHandoverRequests)
		authed.POST("/handover-requests/:request_id/respond", handoverHandler.RespondHandoverRequest)

		authed.POST("/batches", batchHandler.CreateBatch)
		authed.GET("/batches", batchHandler.ListBatches)
		authed.GET("/batches/:id", batchHandler.GetBatchByID)

		authed.GET("/filings", filingHandler.ListFilings)
		authed.GET("/filings/:id", filingHandler.GetFilingByID)
		authed.POST("/filings", filingHandler.CreateFiling)

		authed.GET("/patients/search", patientHandler.SearchPatients)
		authed.GET("/patients/:patient_id", patientHandler.GetPatientByID)
		authed.GET("/patients/mrn/:mrn", patientHandler.GetPatientByMRN)
	}

	// Decisions and return verification belong to Medical Records.
	mrGroup := router.Group("/").Use(
		middlewares.TokenAuthMiddleware(),
		middlewares.RoleAuthMiddleware(models.RoleAdmin, models.RoleMRStaff),
	)
	{
		mrGroup.POST("/case-notes/:id/approve", caseNoteHandler.ApproveRequest)
		mrGroup.POST("/case-notes/:id/reject", caseNoteHandler.RejectRequest)
		mrGroup.POST("/case-notes/:id/complete", caseNoteHandler.CompleteRequest)
		mrGroup.POST("/case-notes/:id/verify-return", caseNoteHandler.VerifyReturn)
		mrGroup.POST("/case-notes/:id/reject-return", caseNoteHandler.RejectReturn)

		mrGroup.POST("/batches/:id/refresh", batchHandler.RefreshBatchStatus)
		mrGroup.POST("/batches/:id/process", batchHandler.ProcessBatch)
		mrGroup.POST("/batches/:id/verify", batchHandler.VerifyBatch)

		mrGroup.POST("/filings/:id/approve", filingHandler.ApproveFiling)
		mrGroup.POST("/filings/:id/reject", filingHandler.RejectFiling)

		mrGroup.GET("/reports/tracking", reportHandler.GetTrackingReport)
		mrGroup.GET("/reports/tracking/excel", reportHandler.ExportTrackingExcel)
		mrGroup.GET("/reports/tracking/pdf", reportHandler.ExportTrackingPDF)

		mrGroup.POST("/patients", patientHandler.CreatePatient)
		mrGroup.PUT("/patients/:patient_id", patientHandler.UpdatePatient)
	}

	// Destructive maintenance is admin only.
	adminGroup := router.Group("/").Use(
		middlewares.TokenAuthMiddleware(),
		middlewares.RoleAuthMiddleware(models.RoleAdmin),
	)
	{
		adminGroup.DELETE("/case-notes/:id", caseNoteHandler.DeleteRequest)
		adminGroup.DELETE("/patients/:patient_id", patientHandler.DeletePatient)
	}
}
