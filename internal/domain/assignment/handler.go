package assignment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/pkg/response"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

/* ---------- JOBS ---------- */

// CreateJob creates a job with its technicians and equipment.
func (h *Handler) CreateJob(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	job, err := h.engine.CreateJob(c.Request.Context(), caller, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, job)
}

func (h *Handler) ListJobs(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var f JobFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	jobs, err := h.engine.ListJobs(c.Request.Context(), caller, f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

func (h *Handler) GetJob(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	job, err := h.engine.GetJob(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

func (h *Handler) DeleteJob(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	if err := h.engine.DeleteJob(c.Request.Context(), caller, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) AssignTechnician(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	a, err := h.engine.AssignTechnician(c.Request.Context(), caller, id, req.TechnicianID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, a)
}

func (h *Handler) UnassignTechnician(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}
	techID, ok := paramID(c, "techId")
	if !ok {
		return
	}

	if err := h.engine.UnassignTechnician(c.Request.Context(), caller, id, techID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// Cancel stops an active job.
func (h *Handler) Cancel(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req CancelJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	job, err := h.engine.Cancel(c.Request.Context(), caller, id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// Complete is the supervisor's completion approval.
func (h *Handler) Complete(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	job, err := h.engine.SupervisorApproveCompletion(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// FinalValidation is the manager's verdict on a job awaiting validation.
func (h *Handler) FinalValidation(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req FinalValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	decision, ok := ParseDecision(req.Decision)
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_INPUT", "decision must be completed or rejected")
		return
	}

	job, err := h.engine.ManagerFinalValidate(c.Request.Context(), caller, id, decision, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

func (h *Handler) Readiness(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	r, err := h.engine.Readiness(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

/* ---------- EQUIPMENT ---------- */

func (h *Handler) AssignEquipment(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req AssignEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	loans, err := h.engine.AssignEquipment(c.Request.Context(), caller, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"loans": loans})
}

func (h *Handler) ListLoans(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	job, err := h.engine.GetJob(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"loans": job.Loans})
}

// ReturnEquipment returns part or all of a loan.
func (h *Handler) ReturnEquipment(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req ReturnEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	loan, err := h.engine.ReturnEquipment(c.Request.Context(), caller, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, loan)
}

/* ---------- REPORTS ---------- */

func (h *Handler) SubmitReport(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	report, err := h.engine.SubmitReport(c.Request.Context(), caller, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, report)
}

func (h *Handler) ListReports(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	reports, err := h.engine.ListReports(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}

// ValidateReport approves or rejects a pending report.
func (h *Handler) ValidateReport(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req ValidateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	decision, ok := ParseDecision(req.Decision)
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_INPUT", "decision must be approve or reject")
		return
	}

	report, err := h.engine.ValidateReport(c.Request.Context(), caller, id, decision, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

/* ---------- EXTENSIONS ---------- */

func (h *Handler) RequestExtension(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req RequestExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	ext, err := h.engine.RequestExtension(c.Request.Context(), caller, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ext)
}

func (h *Handler) ListExtensions(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	exts, err := h.engine.ListExtensions(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"extensions": exts})
}

func (h *Handler) ResolveExtension(c *gin.Context) {
	caller, id, ok := callerAndID(c, "id")
	if !ok {
		return
	}

	var req ResolveExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	decision, ok := ParseDecision(req.Decision)
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_INPUT", "decision must be approved or rejected")
		return
	}

	ext, err := h.engine.ResolveExtension(c.Request.Context(), caller, id, decision, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ext)
}

/* ---------- helpers ---------- */

func callerOrAbort(c *gin.Context) (auth.Caller, bool) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return caller, ok
}

func callerAndID(c *gin.Context, name string) (auth.Caller, int64, bool) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return auth.Caller{}, 0, false
	}
	id, ok := paramID(c, name)
	return caller, id, ok
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}
