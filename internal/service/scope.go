package service

import (
	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

// requireCollegeScope checks that the actor may administer resources of the
// given college. Super admins span all colleges, everyone else is confined
// to their own.
func requireCollegeScope(actor *models.User, collegeID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing account")
	}
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.CollegeID != collegeID {
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another college")
	}
	return nil
}

// requireDepartmentScope checks that the actor may administer a department.
// Super admins always may, college admins within their college, and the HOD
// only for the department they head.
func requireDepartmentScope(actor *models.User, dept *models.Department) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing account")
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleCollegeAdmin:
		if actor.CollegeID == dept.CollegeID {
			return nil
		}
	case models.RoleHOD:
		if dept.HODUserID != nil && *dept.HODUserID == actor.ID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not authorized for this department")
}

// requireMinRole checks the actor sits at or above the given tier.
func requireMinRole(actor *models.User, min models.UserRole) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing account")
	}
	if !actor.Role.AtLeast(min) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
	return nil
}
