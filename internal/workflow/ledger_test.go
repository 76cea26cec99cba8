package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

func TestMaterializeStepIdempotent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()

	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1", "u2"}))
	// 重复落地（事务重试场景）不产生重复记录
	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1", "u2"}))

	var count int64
	require.NoError(t, db.Model(&model.FormApproval{}).
		Where("form_id = ?", "form-1").Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRecordDecisionPaths(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1"}))

	_, err := ledger.RecordDecision(db, "form-1", 0, "someone-else", model.ActionApproved, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	record, err := ledger.RecordDecision(db, "form-1", 0, "u1", model.ActionApproved, "lgtm")
	require.NoError(t, err)
	assert.Equal(t, model.ActionApproved, record.Action)
	assert.Equal(t, "lgtm", record.Comments)
	require.NotNil(t, record.ActionDate)

	_, err = ledger.RecordDecision(db, "form-1", 0, "u1", model.ActionRejected, "")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestStepCompletion(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1", "u2"}))

	complete, err := ledger.IsStepComplete(db, "form-1", 0)
	require.NoError(t, err)
	assert.False(t, complete)

	_, err = ledger.RecordDecision(db, "form-1", 0, "u1", model.ActionApproved, "")
	require.NoError(t, err)
	complete, err = ledger.IsStepComplete(db, "form-1", 0)
	require.NoError(t, err)
	assert.False(t, complete)

	_, err = ledger.RecordDecision(db, "form-1", 0, "u2", model.ActionApproved, "")
	require.NoError(t, err)
	complete, err = ledger.IsStepComplete(db, "form-1", 0)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestAddAdditionalApproverDuplicate(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1"}))

	record, err := ledger.AddAdditionalApprover(db, "form-1", 0, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, record.IsAdditional)

	// 任意状态的已有记录都算重复
	_, err = ledger.AddAdditionalApprover(db, "form-1", 0, "u1", "u2")
	assert.ErrorIs(t, err, ErrDuplicateApprover)
	_, err = ledger.AddAdditionalApprover(db, "form-1", 0, "u2", "u1")
	assert.ErrorIs(t, err, ErrDuplicateApprover)
}

func TestReopenStep(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	require.NoError(t, ledger.MaterializeStep(db, "form-1", 0, []string{"u1", "u2"}))

	_, err := ledger.RecordDecision(db, "form-1", 0, "u1", model.ActionApproved, "")
	require.NoError(t, err)
	_, err = ledger.RecordDecision(db, "form-1", 0, "u2", model.ActionApproved, "")
	require.NoError(t, err)

	require.NoError(t, ledger.ReopenStep(db, "form-1", 0))

	complete, err := ledger.IsStepComplete(db, "form-1", 0)
	require.NoError(t, err)
	assert.False(t, complete)

	// 重新打开后可以再次决策
	_, err = ledger.RecordDecision(db, "form-1", 0, "u1", model.ActionRejected, "")
	require.NoError(t, err)
}
