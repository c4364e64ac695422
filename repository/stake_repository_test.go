package repository

import (
	"context"
	"testing"
	"time"

	"bankroll/domain/entities"
	"bankroll/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	accounts := NewAccountRepository(testDB.DB)
	ledger := NewLedgerRepository(testDB.DB)
	stakes := NewStakeRepository(testDB.DB)

	account, err := accounts.GetForUpdate(ctx, 1)
	require.NoError(t, err)
	entry := recordEntry(t, ledger, account.ID, 1, "1000", entities.EntryKindDebit, entities.EntrySourceStake, "stake:open:1")

	position := testutil.CreateTestStakePosition(1, decimal.NewFromInt(1000), entry.ID)
	require.NoError(t, stakes.Create(ctx, position))
	assert.NotZero(t, position.ID)

	open, err := stakes.ListOpenByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].Reward.Equal(decimal.RequireFromString("9.863")))

	locked, err := stakes.GetByIDForUpdate(ctx, position.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.True(t, locked.IsOpen())

	now := time.Now().UTC()
	locked.Status = entities.StakePositionClosed
	locked.ClosedAt = &now
	require.NoError(t, stakes.Close(ctx, locked))

	open, err = stakes.ListOpenByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := stakes.GetByIDForUpdate(ctx, position.ID)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, entities.StakePositionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
}

func TestStakeRepository_UnknownID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	stakes := NewStakeRepository(testDB.DB)

	position, err := stakes.GetByIDForUpdate(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, position)
}
