package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

func TestResolveRoleStepOrdering(t *testing.T) {
	db := newTestDB(t)
	first := createUser(t, db, "a-user", "user")
	second := createUser(t, db, "b-user", "user")
	role := createRole(t, db, "hr", first, second)

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeRole, RoleID: role.ID}, model.ApproveModeAll)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	// 按用户ID升序，解析结果稳定
	assert.Less(t, ids[0], ids[1])
}

func TestResolveRoleStepFirstMode(t *testing.T) {
	db := newTestDB(t)
	first := createUser(t, db, "a-user", "user")
	second := createUser(t, db, "b-user", "user")
	role := createRole(t, db, "hr", first, second)

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeRole, RoleID: role.ID}, model.ApproveModeFirst)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestResolveSkipsInactiveUsers(t *testing.T) {
	db := newTestDB(t)
	active := createUser(t, db, "active-user", "user")
	inactive := createUser(t, db, "inactive-user", "user")
	require.NoError(t, db.Model(inactive).Update("status", "disabled").Error)
	role := createRole(t, db, "hr", active, inactive)

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeRole, RoleID: role.ID}, model.ApproveModeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{active.ID}, ids)
}

func TestResolveUserStep(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "named", "user")

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeUser, UserID: user.ID}, model.ApproveModeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, ids)
}

func TestResolveUserStepInactiveEmpty(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "named", "user")
	require.NoError(t, db.Model(user).Update("status", "disabled").Error)

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeUser, UserID: user.ID}, model.ApproveModeAll)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveUnknownUserEmpty(t *testing.T) {
	db := newTestDB(t)

	resolver := NewResolver()
	ids, err := resolver.Resolve(db, model.StepSpec{Type: model.StepTypeUser, UserID: "missing"}, model.ApproveModeAll)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolveInvalidSpec(t *testing.T) {
	db := newTestDB(t)

	resolver := NewResolver()
	_, err := resolver.Resolve(db, model.StepSpec{Type: "group"}, model.ApproveModeAll)
	assert.ErrorIs(t, err, ErrValidation)
}
