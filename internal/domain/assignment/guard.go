package assignment

import (
	"fmt"

	"gorm.io/gorm"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/pkg/apperror"
)

type operation string

const (
	opCreateJob          operation = "create job"
	opViewJob            operation = "view job"
	opDeleteJob          operation = "delete job"
	opAssignTechnician   operation = "assign technician"
	opUnassignTechnician operation = "unassign technician"
	opAssignEquipment    operation = "assign equipment"
	opReturnEquipment    operation = "return equipment"
	opCancelJob          operation = "cancel job"
	opCompleteJob        operation = "approve job completion"
	opFinalValidate      operation = "validate job completion"
	opSubmitReport       operation = "submit progress report"
	opValidateReport     operation = "validate progress report"
	opRequestExtension   operation = "request extension"
	opResolveExtension   operation = "resolve extension request"
)

type ownership int

const (
	anyone ownership = iota
	// ownsJob: the caller is the job's supervisor.
	ownsJob
	// assignedToJob: the caller is one of the job's technicians.
	assignedToJob
	// participant: managers always, supervisors who own the job, technicians
	// assigned to it.
	participant
)

type policy struct {
	roles []auth.UserRole
	owner ownership
}

var (
	supervisorOnly = []auth.UserRole{auth.RoleSupervisor}
	technicianOnly = []auth.UserRole{auth.RoleTechnician}
	managerOnly    = []auth.UserRole{auth.RoleManager}
	fieldStaff     = []auth.UserRole{auth.RoleSupervisor, auth.RoleTechnician}
	everyone       = []auth.UserRole{auth.RoleSupervisor, auth.RoleTechnician, auth.RoleManager}
)

var policies = map[operation]policy{
	opCreateJob:          {roles: supervisorOnly, owner: anyone},
	opViewJob:            {roles: everyone, owner: participant},
	opDeleteJob:          {roles: supervisorOnly, owner: ownsJob},
	opAssignTechnician:   {roles: supervisorOnly, owner: ownsJob},
	opUnassignTechnician: {roles: supervisorOnly, owner: ownsJob},
	opAssignEquipment:    {roles: fieldStaff, owner: participant},
	opReturnEquipment:    {roles: fieldStaff, owner: participant},
	opCancelJob:          {roles: supervisorOnly, owner: ownsJob},
	opCompleteJob:        {roles: supervisorOnly, owner: ownsJob},
	opFinalValidate:      {roles: managerOnly, owner: anyone},
	opSubmitReport:       {roles: technicianOnly, owner: assignedToJob},
	opValidateReport:     {roles: supervisorOnly, owner: ownsJob},
	opRequestExtension:   {roles: technicianOnly, owner: assignedToJob},
	opResolveExtension:   {roles: supervisorOnly, owner: ownsJob},
}

// authorize enforces the declared policy of op. job may be nil for
// operations that do not target an existing job.
func authorize(tx *gorm.DB, op operation, caller auth.Caller, job *Job) error {
	if caller.ID == 0 {
		return fmt.Errorf("%w: caller identity required", apperror.ErrUnauthorized)
	}

	p, ok := policies[op]
	if !ok {
		return fmt.Errorf("%w: no policy for %s", apperror.ErrInternal, op)
	}
	if !caller.Is(p.roles...) {
		return fmt.Errorf("%w: role %s may not %s", apperror.ErrForbidden, caller.Role, op)
	}
	if job == nil || p.owner == anyone {
		return nil
	}

	switch p.owner {
	case ownsJob:
		if job.SupervisorID != caller.ID {
			return ErrNotOwner
		}
	case assignedToJob:
		return requireAssigned(tx, job.ID, caller.ID)
	case participant:
		switch caller.Role {
		case auth.RoleManager:
			return nil
		case auth.RoleSupervisor:
			if job.SupervisorID != caller.ID {
				return ErrNotOwner
			}
		default:
			return requireAssigned(tx, job.ID, caller.ID)
		}
	}
	return nil
}

func requireAssigned(tx *gorm.DB, jobID, technicianID int64) error {
	ok, err := isAssigned(tx, jobID, technicianID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAssigned
	}
	return nil
}
