package assignment

import "strings"

type JobStatus string

const (
	StatusActive                    JobStatus = "active"
	StatusAwaitingManagerValidation JobStatus = "awaiting_manager_validation"
	StatusCompleted                 JobStatus = "completed"
	StatusRejected                  JobStatus = "rejected"
	StatusCancelled                 JobStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

var transitions = map[JobStatus][]JobStatus{
	StatusActive:                    {StatusAwaitingManagerValidation, StatusCompleted, StatusCancelled},
	StatusAwaitingManagerValidation: {StatusCompleted, StatusRejected},
}

// CanTransition reports whether the state machine allows from -> to.
// Active -> Completed is the supervisor completion path used when manager
// validation is switched off.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryReconstruction Category = "reconstruction"
	CategoryInstallation   Category = "installation"
	CategoryMaintenance    Category = "maintenance"
)

// ParseCategory accepts English and Indonesian names. Anything else is
// treated as maintenance work.
func ParseCategory(s string) Category {
	switch normalize(s) {
	case "reconstruction", "rekonstruksi":
		return CategoryReconstruction
	case "installation", "instalasi":
		return CategoryInstallation
	default:
		return CategoryMaintenance
	}
}

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency defaults to daily reporting.
func ParseFrequency(s string) Frequency {
	switch normalize(s) {
	case "weekly", "mingguan":
		return FrequencyWeekly
	default:
		return FrequencyDaily
	}
}

type ProgressStatus string

const (
	ProgressOnProgress ProgressStatus = "on_progress"
	ProgressDone       ProgressStatus = "done"
)

// ParseProgressStatus returns "" for an empty input so the caller can
// derive the status from the percentage.
func ParseProgressStatus(s string) (ProgressStatus, bool) {
	switch normalize(s) {
	case "":
		return "", true
	case "on_progress", "in_progress", "progress", "berjalan":
		return ProgressOnProgress, true
	case "done", "selesai", "final":
		return ProgressDone, true
	default:
		return "", false
	}
}

type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationApproved ValidationStatus = "approved"
	ValidationRejected ValidationStatus = "rejected"
)

type ObstacleType string

const (
	ObstacleWeather   ObstacleType = "weather"
	ObstacleAccess    ObstacleType = "access"
	ObstacleTechnical ObstacleType = "technical"
	ObstacleOther     ObstacleType = "other"
)

// ParseObstacle maps free text onto the closed set; unknown values are Other.
func ParseObstacle(s string) ObstacleType {
	switch normalize(s) {
	case "weather", "cuaca":
		return ObstacleWeather
	case "access", "akses":
		return ObstacleAccess
	case "technical", "teknis":
		return ObstacleTechnical
	default:
		return ObstacleOther
	}
}

type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// Decision is a supervisor or manager verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, bool) {
	switch normalize(s) {
	case "approve", "approved", "completed", "complete", "setujui":
		return DecisionApprove, true
	case "reject", "rejected", "tolak":
		return DecisionReject, true
	default:
		return "", false
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_")
}
