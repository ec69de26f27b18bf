package assignment

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fieldwork/internal/domain/equipment"
)

// Job is a field assignment ("penugasan") owned by one supervisor.
type Job struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Title        string    `json:"title" gorm:"size:200;not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	Category     Category  `json:"category" gorm:"type:varchar(30);not null"`
	Frequency    Frequency `json:"report_frequency" gorm:"type:varchar(20);not null;default:'daily'"`
	SupervisorID int64     `json:"supervisor_id" gorm:"not null;index"`

	LocationName string  `json:"location_name,omitempty" gorm:"size:255"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`

	StartDate  time.Time `json:"start_date" gorm:"not null"`
	EndDate    time.Time `json:"end_date" gorm:"not null"`
	IsExtended bool      `json:"is_extended" gorm:"not null;default:false"`

	Status            JobStatus  `json:"status" gorm:"type:varchar(40);not null;index"`
	ManagerID         *int64     `json:"manager_id,omitempty"`
	ManagerNote       string     `json:"manager_note,omitempty" gorm:"type:text"`
	ManagerValidateAt *time.Time `json:"manager_validated_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Technicians []TechnicianAssignment `json:"technicians,omitempty" gorm:"foreignKey:JobID"`
	Loans       []equipment.Loan       `json:"loans,omitempty" gorm:"foreignKey:JobID"`
}

func (Job) TableName() string {
	return "jobs"
}

// TechnicianAssignment links a technician to a job. The pair is unique.
type TechnicianAssignment struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	JobID        int64     `json:"job_id" gorm:"not null;uniqueIndex:idx_job_technician"`
	TechnicianID int64     `json:"technician_id" gorm:"not null;uniqueIndex:idx_job_technician;index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TechnicianAssignment) TableName() string {
	return "job_technicians"
}

// EvidencePhoto is a before/after pair attached to a progress report.
type EvidencePhoto struct {
	BeforeURL string `json:"before_url,omitempty" validate:"omitempty,url"`
	AfterURL  string `json:"after_url,omitempty" validate:"omitempty,url"`
	Caption   string `json:"caption,omitempty" validate:"max=255"`
}

// Report is a technician's progress update ("laporan progres").
type Report struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	JobID      int64          `json:"job_id" gorm:"not null;index"`
	ReporterID int64          `json:"reporter_id" gorm:"not null;index"`
	ReportDate time.Time      `json:"report_date" gorm:"not null"`
	Progress   int            `json:"progress" gorm:"not null;check:progress >= 0 AND progress <= 100"`
	Status     ProgressStatus `json:"progress_status" gorm:"type:varchar(20);not null"`
	Note       string         `json:"note,omitempty" gorm:"type:text"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Photos datatypes.JSONSlice[EvidencePhoto] `json:"photos"`

	Validation     ValidationStatus `json:"validation_status" gorm:"type:varchar(20);not null;index"`
	ValidatorID    *int64           `json:"validator_id,omitempty"`
	ValidatedAt    *time.Time       `json:"validated_at,omitempty"`
	ValidationNote string           `json:"validation_note,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Report) TableName() string {
	return "progress_reports"
}

// Final reports whether the report marks the work as finished.
func (r Report) Final() bool {
	return r.Status == ProgressDone
}

// Extension is a deadline extension request ("kendala").
type Extension struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	JobID           int64           `json:"job_id" gorm:"not null;index"`
	RequesterID     int64           `json:"requester_id" gorm:"not null;index"`
	Reason          string          `json:"reason" gorm:"type:text;not null"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;check:duration_minutes > 0 AND duration_minutes <= 10080"`
	Obstacle        ObstacleType    `json:"obstacle_type" gorm:"type:varchar(20);not null"`
	PreviousEndDate time.Time       `json:"previous_end_date" gorm:"not null"`
	NewEndDate      *time.Time      `json:"new_end_date,omitempty"`
	PhotoURL        string          `json:"photo_url,omitempty" gorm:"size:500"`
	Status          ExtensionStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ApproverID      *int64          `json:"approver_id,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolutionNote  string          `json:"resolution_note,omitempty" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Extension) TableName() string {
	return "extension_requests"
}

// Models lists the tables owned by this package, for migrations.
func Models() []any {
	return []any{&Job{}, &TechnicianAssignment{}, &Report{}, &Extension{}}
}
