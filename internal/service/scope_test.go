package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuskit/college-admin-api/internal/models"
)

func TestRequireCollegeScope(t *testing.T) {
	superAdmin := &models.User{ID: "sa", Role: models.RoleSuperAdmin, CollegeID: "c1"}
	admin := &models.User{ID: "a1", Role: models.RoleCollegeAdmin, CollegeID: "c1"}

	assert.NoError(t, requireCollegeScope(superAdmin, "c2"))
	assert.NoError(t, requireCollegeScope(admin, "c1"))
	assert.Error(t, requireCollegeScope(admin, "c2"))
	assert.Error(t, requireCollegeScope(nil, "c1"))
}

func TestRequireDepartmentScope(t *testing.T) {
	hodID := "hod-1"
	dept := &models.Department{ID: "d1", CollegeID: "c1", HODUserID: &hodID}
	orphan := &models.Department{ID: "d2", CollegeID: "c1"}

	superAdmin := &models.User{ID: "sa", Role: models.RoleSuperAdmin, CollegeID: "c9"}
	admin := &models.User{ID: "a1", Role: models.RoleCollegeAdmin, CollegeID: "c1"}
	foreignAdmin := &models.User{ID: "a2", Role: models.RoleCollegeAdmin, CollegeID: "c2"}
	hod := &models.User{ID: "hod-1", Role: models.RoleHOD, CollegeID: "c1"}
	otherHOD := &models.User{ID: "hod-2", Role: models.RoleHOD, CollegeID: "c1"}
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, CollegeID: "c1"}

	assert.NoError(t, requireDepartmentScope(superAdmin, dept))
	assert.NoError(t, requireDepartmentScope(admin, dept))
	assert.Error(t, requireDepartmentScope(foreignAdmin, dept))
	assert.NoError(t, requireDepartmentScope(hod, dept))
	assert.Error(t, requireDepartmentScope(otherHOD, dept))
	assert.Error(t, requireDepartmentScope(hod, orphan))
	assert.Error(t, requireDepartmentScope(teacher, dept))
}

func TestRequireMinRole(t *testing.T) {
	assert.NoError(t, requireMinRole(&models.User{Role: models.RoleSuperAdmin}, models.RoleCollegeAdmin))
	assert.NoError(t, requireMinRole(&models.User{Role: models.RoleHOD}, models.RoleHOD))
	assert.Error(t, requireMinRole(&models.User{Role: models.RoleTeacher}, models.RoleHOD))
	assert.Error(t, requireMinRole(&models.User{Role: models.RoleRecruiter}, models.RoleStudent))
	assert.Error(t, requireMinRole(nil, models.RoleStudent))
}
