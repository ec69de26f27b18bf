package assignment

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.POST("", h.CreateJob)
		jobs.GET("/:id", h.GetJob)
		jobs.DELETE("/:id", h.DeleteJob)

		jobs.POST("/:id/technicians", h.AssignTechnician)
		jobs.DELETE("/:id/technicians/:techId", h.UnassignTechnician)

		jobs.POST("/:id/equipment", h.AssignEquipment)
		jobs.GET("/:id/loans", h.ListLoans)

		jobs.POST("/:id/cancel", h.Cancel)
		jobs.POST("/:id/complete", h.Complete)
		jobs.POST("/:id/final-validation", h.FinalValidation)
		jobs.GET("/:id/readiness", h.Readiness)

		jobs.GET("/:id/reports", h.ListReports)
		jobs.POST("/:id/reports", h.SubmitReport)

		jobs.GET("/:id/extensions", h.ListExtensions)
		jobs.POST("/:id/extensions", h.RequestExtension)
	}

	r.POST("/loans/:id/return", h.ReturnEquipment)
	r.POST("/reports/:id/validate", h.ValidateReport)
	r.POST("/extensions/:id/resolve", h.ResolveExtension)
}
