package assignment

import (
	"fmt"
	"strings"
	"time"

	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/pkg/apperror"
)

type CreateJobRequest struct {
	Title           string           `json:"title" validate:"required,max=200"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	ReportFrequency string           `json:"report_frequency"`
	LocationName    string           `json:"location_name" validate:"max=255"`
	Latitude        float64          `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude       float64          `json:"longitude" validate:"gte=-180,lte=180"`
	StartDate       string           `json:"start_date" validate:"required"`
	EndDate         string           `json:"end_date" validate:"required"`
	TechnicianIDs   []int64          `json:"technician_ids"`
	Equipment       []equipment.Line `json:"equipment" validate:"dive"`
}

type JobFilter struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

type AssignTechnicianRequest struct {
	TechnicianID int64 `json:"technician_id" binding:"required"`
}

type AssignEquipmentRequest struct {
	Lines []equipment.Line `json:"equipment" validate:"required,min=1,dive"`
}

type ReturnEquipmentRequest struct {
	Quantity int    `json:"quantity"`
	PhotoURL string `json:"return_photo_url" validate:"omitempty,url"`
}

type CancelJobRequest struct {
	Reason string `json:"reason"`
}

type FinalValidationRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

type SubmitReportRequest struct {
	ReportDate     string          `json:"report_date"`
	Progress       int             `json:"progress" validate:"gte=0,lte=100"`
	ProgressStatus string          `json:"progress_status"`
	Note           string          `json:"note"`
	Latitude       *float64        `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64        `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Photos         []EvidencePhoto `json:"photos" validate:"dive"`
}

type ValidateReportRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

type RequestExtensionRequest struct {
	Reason          string `json:"reason" validate:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	ObstacleType    string `json:"obstacle_type"`
	PhotoURL        string `json:"photo_url" validate:"omitempty,url"`
}

type ResolveExtensionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

// Readiness explains whether a job may leave Active for completion.
type Readiness struct {
	Ready             bool   `json:"ready"`
	ApprovedFinal     bool   `json:"approved_final_report"`
	PendingReports    int64  `json:"pending_reports"`
	LatestRejected    bool   `json:"latest_report_rejected"`
	Reason            string `json:"reason,omitempty"`
	ManagerValidation bool   `json:"manager_validation"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", apperror.ErrInvalidInput, field)
}
