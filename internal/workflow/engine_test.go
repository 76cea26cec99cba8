package workflow

import (
	"context"
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
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *model.User {
	t.Helper()
	user := &model.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: "x",
		Email:    username + "@example.com",
		Role:     role,
		Status:   "active",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createRole(t *testing.T, db *gorm.DB, name string, members ...*model.User) *model.Role {
	t.Helper()
	role := &model.Role{Name: name}
	require.NoError(t, db.Create(role).Error)
	for _, member := range members {
		require.NoError(t, db.Create(&model.UserRole{UserID: member.ID, RoleID: role.ID}).Error)
	}
	return role
}

func createTemplate(t *testing.T, db *gorm.DB, formType string, chain []model.StepSpec, mode model.ApproveMode, policy model.RejectPolicy) *model.FormTemplate {
	t.Helper()
	raw, err := json.Marshal(chain)
	require.NoError(t, err)
	template := &model.FormTemplate{
		Name:          formType,
		FormType:      formType,
		ApprovalChain: raw,
		ApproveMode:   mode,
		RejectPolicy:  policy,
		IsActive:      true,
	}
	require.NoError(t, db.Create(template).Error)
	return template
}

func pendingRecords(t *testing.T, db *gorm.DB, formID string, step int) []model.FormApproval {
	t.Helper()
	var records []model.FormApproval
	require.NoError(t, db.
		Where("form_id = ? AND step_number = ? AND action = ?", formID, step, model.ActionPending).
		Find(&records).Error)
	return records
}

func reloadForm(t *testing.T, db *gorm.DB, formID string) *model.Form {
	t.Helper()
	var form model.Form
	require.NoError(t, db.First(&form, "id = ?", formID).Error)
	return &form
}

func TestSubmitFormMaterializesFirstStep(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	managerA := createUser(t, db, "manager-a", "user")
	managerB := createUser(t, db, "manager-b", "user")
	role := createRole(t, db, "direct_manager", managerA, managerB)
	createTemplate(t, db, "vacation", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: role.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "vacation"})
	require.NoError(t, err)

	assert.Equal(t, model.FormStatusPending, form.Status)
	assert.Equal(t, 0, form.CurrentStep)
	assert.Len(t, pendingRecords(t, db, form.ID, 0), 2)
}

func TestSubmitFormUnknownTemplate(t *testing.T) {
	db := newTestDB(t)
	initiator := createUser(t, db, "employee", "user")

	engine := NewEngine(db, nil, nil)
	_, err := engine.SubmitForm(context.Background(), initiator, &model.SubmitFormRequest{TemplateType: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitFormEmptyResolutionRollsBack(t *testing.T) {
	db := newTestDB(t)
	initiator := createUser(t, db, "employee", "user")
	role := createRole(t, db, "empty_role")
	createTemplate(t, db, "vacation", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: role.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	_, err := engine.SubmitForm(context.Background(), initiator, &model.SubmitFormRequest{TemplateType: "vacation"})
	assert.ErrorIs(t, err, ErrResolutionEmpty)

	// 事务回滚，不留下半提交的表单
	var count int64
	require.NoError(t, db.Model(&model.Form{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTwoStepRoundTripToCompleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	head := createUser(t, db, "dept-head", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	headRole := createRole(t, db, "department_head", head)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
		{Type: model.StepTypeRole, RoleID: headRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	form, err = engine.Approve(ctx, form.ID, manager.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, form.Status)
	assert.Equal(t, 1, form.CurrentStep)
	assert.Len(t, pendingRecords(t, db, form.ID, 1), 1)

	form, err = engine.Approve(ctx, form.ID, head.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusAwaitingFinal, form.Status)

	form, err = engine.FinalApprove(ctx, form.ID, initiator.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCompleted, form.Status)
	require.NotNil(t, form.CompletedAt)
}

func TestAllModeWaitsForEveryApprover(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	first := createUser(t, db, "approver-1", "user")
	second := createUser(t, db, "approver-2", "user")
	role := createRole(t, db, "hr", first, second)
	createTemplate(t, db, "onboarding", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: role.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "onboarding"})
	require.NoError(t, err)

	form, err = engine.Approve(ctx, form.ID, first.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, form.Status)
	assert.Equal(t, 0, form.CurrentStep)

	form, err = engine.Approve(ctx, form.ID, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusAwaitingFinal, form.Status)
}

func TestFirstModeMaterializesSingleApprover(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	first := createUser(t, db, "approver-1", "user")
	second := createUser(t, db, "approver-2", "user")
	role := createRole(t, db, "hr", first, second)
	createTemplate(t, db, "onboarding", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: role.ID},
	}, model.ApproveModeFirst, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "onboarding"})
	require.NoError(t, err)
	require.Len(t, pendingRecords(t, db, form.ID, 0), 1)

	record := pendingRecords(t, db, form.ID, 0)[0]
	form, err = engine.Approve(ctx, form.ID, record.ApproverID, "")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusAwaitingFinal, form.Status)
}

func TestRejectAtFirstStepTerminates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	head := createUser(t, db, "dept-head", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	headRole := createRole(t, db, "department_head", head)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
		{Type: model.StepTypeRole, RoleID: headRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	form, err = engine.Reject(ctx, form.ID, manager.ID, "insufficient detail")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusRejected, form.Status)
	require.NotNil(t, form.CompletedAt)

	// 驳回后不会落地下一步
	var step1 int64
	require.NoError(t, db.Model(&model.FormApproval{}).
		Where("form_id = ? AND step_number = ?", form.ID, 1).Count(&step1).Error)
	assert.Zero(t, step1)
}

func TestRejectRewindReopensPreviousStep(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	head := createUser(t, db, "dept-head", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	headRole := createRole(t, db, "department_head", head)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
		{Type: model.StepTypeRole, RoleID: headRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyRewind)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	form, err = engine.Approve(ctx, form.ID, manager.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, form.CurrentStep)

	form, err = engine.Reject(ctx, form.ID, head.ID, "send back")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, form.Status)
	assert.Equal(t, 0, form.CurrentStep)

	// 第0步重新打开，经理可以再审一次
	require.Len(t, pendingRecords(t, db, form.ID, 0), 1)
	form, err = engine.Approve(ctx, form.ID, manager.ID, "second pass")
	require.NoError(t, err)
	assert.Equal(t, 1, form.CurrentStep)

	// 重新推进后第1步也重开：当初的驳回记录不能把负责人挡在外面
	require.Len(t, pendingRecords(t, db, form.ID, 1), 1)
	form, err = engine.Approve(ctx, form.ID, head.ID, "ok this time")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusAwaitingFinal, form.Status)

	form, err = engine.FinalApprove(ctx, form.ID, initiator.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCompleted, form.Status)
}

func TestRejectRewindAtStepZeroTerminates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyRewind)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	form, err = engine.Reject(ctx, form.ID, manager.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusRejected, form.Status)
}

func TestApproveTwiceFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	first := createUser(t, db, "approver-1", "user")
	second := createUser(t, db, "approver-2", "user")
	role := createRole(t, db, "hr", first, second)
	createTemplate(t, db, "onboarding", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: role.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "onboarding"})
	require.NoError(t, err)

	_, err = engine.Approve(ctx, form.ID, first.ID, "")
	require.NoError(t, err)
	_, err = engine.Approve(ctx, form.ID, first.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApproveByStrangerFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	stranger := createUser(t, db, "stranger", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	_, err = engine.Approve(ctx, form.ID, stranger.ID, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestApproveTerminalFormFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)
	_, err = engine.Reject(ctx, form.ID, manager.ID, "")
	require.NoError(t, err)

	_, err = engine.Approve(ctx, form.ID, manager.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAddApprover(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	colleague := createUser(t, db, "colleague", "user")
	stranger := createUser(t, db, "stranger", "user")
	admin := createUser(t, db, "admin", "admin")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	// 局外人不能追加
	_, err = engine.AddApprover(ctx, form.ID, stranger, colleague.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Len(t, pendingRecords(t, db, form.ID, 0), 1)

	// 当前步审批人可以追加
	record, err := engine.AddApprover(ctx, form.ID, manager, colleague.ID)
	require.NoError(t, err)
	assert.True(t, record.IsAdditional)
	assert.Equal(t, manager.ID, record.AddedBy)
	assert.Len(t, pendingRecords(t, db, form.ID, 0), 2)

	// 同一人重复追加
	_, err = engine.AddApprover(ctx, form.ID, admin, colleague.ID)
	assert.ErrorIs(t, err, ErrDuplicateApprover)

	// 管理员可以追加
	_, err = engine.AddApprover(ctx, form.ID, admin, stranger.ID)
	require.NoError(t, err)

	// 追加的审批人同样阻塞步骤完成
	_, err = engine.Approve(ctx, form.ID, manager.ID, "")
	require.NoError(t, err)
	current := reloadForm(t, db, form.ID)
	assert.Equal(t, model.FormStatusPending, current.Status)
}

func TestFinalApproveOnlyInitiator(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
	require.NoError(t, err)

	// 链未走完不能最终确认
	_, err = engine.FinalApprove(ctx, form.ID, initiator.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = engine.Approve(ctx, form.ID, manager.ID, "")
	require.NoError(t, err)

	_, err = engine.FinalApprove(ctx, form.ID, manager.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	form, err = engine.FinalApprove(ctx, form.ID, initiator.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCompleted, form.Status)
}

func TestPendingAndHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)

	var formIDs []string
	for i := 0; i < 3; i++ {
		form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "budget"})
		require.NoError(t, err)
		formIDs = append(formIDs, form.ID)
	}

	pending, err := engine.PendingFor(ctx, manager.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.Equal(t, "budget", pending[0].TemplateName)

	_, err = engine.Approve(ctx, formIDs[0], manager.ID, "ok")
	require.NoError(t, err)
	_, err = engine.Reject(ctx, formIDs[1], manager.ID, "no")
	require.NoError(t, err)

	pending, err = engine.PendingFor(ctx, manager.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	history, err := engine.HistoryFor(ctx, manager.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	for _, item := range history {
		assert.False(t, item.Approval.IsPending())
	}
}

func TestSubmitByTemplateID(t *testing.T) {
	db := newTestDB(t)
	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	template := createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(context.Background(), initiator, &model.SubmitFormRequest{TemplateID: template.ID})
	require.NoError(t, err)
	assert.Equal(t, template.ID, form.TemplateID)
}

func TestSubmitInactiveTemplateFails(t *testing.T) {
	db := newTestDB(t)
	initiator := createUser(t, db, "employee", "user")
	manager := createUser(t, db, "manager", "user")
	managerRole := createRole(t, db, "direct_manager", manager)
	template := createTemplate(t, db, "budget", []model.StepSpec{
		{Type: model.StepTypeRole, RoleID: managerRole.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)
	require.NoError(t, db.Model(template).Update("is_active", false).Error)

	engine := NewEngine(db, nil, nil)
	_, err := engine.SubmitForm(context.Background(), initiator, &model.SubmitFormRequest{TemplateID: template.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStepResolvesDirectly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	initiator := createUser(t, db, "employee", "user")
	named := createUser(t, db, "named-approver", "user")
	createTemplate(t, db, "equipment", []model.StepSpec{
		{Type: model.StepTypeUser, UserID: named.ID},
	}, model.ApproveModeAll, model.RejectPolicyTerminate)

	engine := NewEngine(db, nil, nil)
	form, err := engine.SubmitForm(ctx, initiator, &model.SubmitFormRequest{TemplateType: "equipment"})
	require.NoError(t, err)

	records := pendingRecords(t, db, form.ID, 0)
	require.Len(t, records, 1)
	assert.Equal(t, named.ID, records[0].ApproverID)
}
