package repository

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.UserRole{},
		&model.FormTemplate{},
		&model.Form{},
		&model.FormApproval{},
		&model.DynamicList{},
		&model.OTPCode{},
	))
	return db
}

func chainJSON(t *testing.T, steps []model.StepSpec) []byte {
	t.Helper()
	raw, err := json.Marshal(steps)
	require.NoError(t, err)
	return raw
}

func TestCreateTemplateRejectsEmptyChain(t *testing.T) {
	db := newTestDB(t)
	repo := NewFormTemplateRepository(db)

	err := repo.CreateTemplate(&model.FormTemplate{
		Name:          "empty",
		FormType:      "empty",
		ApprovalChain: chainJSON(t, []model.StepSpec{}),
	})
	assert.Error(t, err)
}

func TestCreateTemplateRejectsInvalidStep(t *testing.T) {
	db := newTestDB(t)
	repo := NewFormTemplateRepository(db)

	err := repo.CreateTemplate(&model.FormTemplate{
		Name:          "bad",
		FormType:      "bad",
		ApprovalChain: chainJSON(t, []model.StepSpec{{Type: "role"}}), // 缺role_id
	})
	assert.Error(t, err)
}

func TestUpdateTemplateChainLockedWhileInFlight(t *testing.T) {
	db := newTestDB(t)
	repo := NewFormTemplateRepository(db)

	template := &model.FormTemplate{
		Name:          "vacation",
		FormType:      "vacation",
		ApprovalChain: chainJSON(t, []model.StepSpec{{Type: "user", UserID: "u1"}}),
		IsActive:      true,
	}
	require.NoError(t, repo.CreateTemplate(template))

	// 一张在途表单
	require.NoError(t, db.Create(&model.Form{
		ID:          uuid.New().String(),
		TemplateID:  template.ID,
		InitiatorID: "someone",
		Status:      model.FormStatusPending,
	}).Error)

	// 改链被拒绝
	template.ApprovalChain = chainJSON(t, []model.StepSpec{{Type: "user", UserID: "u2"}})
	err := repo.UpdateTemplate(template)
	assert.Error(t, err)

	// 不改链的更新仍然允许
	fresh, err := repo.FindTemplateByID(template.ID)
	require.NoError(t, err)
	fresh.Description = "updated"
	require.NoError(t, repo.UpdateTemplate(fresh))

	// 表单到终态后链解锁
	require.NoError(t, db.Model(&model.Form{}).
		Where("template_id = ?", template.ID).
		Update("status", model.FormStatusRejected).Error)
	fresh.ApprovalChain = chainJSON(t, []model.StepSpec{{Type: "user", UserID: "u2"}})
	require.NoError(t, repo.UpdateTemplate(fresh))
}

func TestDeleteRoleWithMembersRejected(t *testing.T) {
	db := newTestDB(t)
	roleRepo := NewRoleRepository(db)
	userRepo := NewUserRepository(db)

	role := &model.Role{Name: "direct_manager"}
	require.NoError(t, roleRepo.CreateRole(role))
	user := &model.User{ID: uuid.New().String(), Username: "m1", Password: "x", Status: "active"}
	require.NoError(t, userRepo.CreateUser(user))
	require.NoError(t, userRepo.AssignRole(user.ID, role.ID))

	assert.Error(t, roleRepo.DeleteRole(role.ID))

	require.NoError(t, userRepo.RevokeRole(user.ID, role.ID))
	require.NoError(t, roleRepo.DeleteRole(role.ID))
}

func TestStatisticsScopedByRole(t *testing.T) {
	db := newTestDB(t)
	formRepo := NewFormRepository(db)
	templateRepo := NewFormTemplateRepository(db)

	template := &model.FormTemplate{
		Name:          "vacation",
		NameHebrew:    "חופשה",
		FormType:      "vacation",
		ApprovalChain: chainJSON(t, []model.StepSpec{{Type: "user", UserID: "approver"}}),
		IsActive:      true,
	}
	require.NoError(t, templateRepo.CreateTemplate(template))

	require.NoError(t, db.Create(&model.Form{
		ID: uuid.New().String(), TemplateID: template.ID,
		InitiatorID: "alice", Status: model.FormStatusPending,
	}).Error)
	require.NoError(t, db.Create(&model.Form{
		ID: uuid.New().String(), TemplateID: template.ID,
		InitiatorID: "bob", Status: model.FormStatusCompleted,
	}).Error)
	require.NoError(t, db.Create(&model.FormApproval{
		FormID: "f-x", StepNumber: 0, ApproverID: "alice", Action: model.ActionPending,
	}).Error)

	adminStats, err := formRepo.Statistics("admin", true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, adminStats.TotalForms)
	assert.EqualValues(t, 1, adminStats.PendingForms)
	assert.EqualValues(t, 1, adminStats.CompletedForms)
	assert.EqualValues(t, 2, adminStats.FormsByType["חופשה"])

	userStats, err := formRepo.Statistics("alice", false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, userStats.MyForms)
	assert.EqualValues(t, 1, userStats.PendingForMe)
	assert.Zero(t, userStats.TotalForms)
}
