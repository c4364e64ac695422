package testhelpers

import (
	"context"
	"time"

	"bankroll/domain/entities"
	"bankroll/domain/events"
	"bankroll/domain/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, userID int64) (*entities.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*entities.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalances(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ExistsByIdempotencyKey(ctx context.Context, accountID int64, key string, kind entities.EntryKind, source entities.EntrySource) (bool, error) {
	args := m.Called(ctx, accountID, key, kind, source)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) NetChange(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) SumByKindAndSource(ctx context.Context, accountID int64, kind entities.EntryKind, source entities.EntrySource) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, kind, source)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) GetByID(ctx context.Context, matchID int64) (*entities.Match, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Match), args.Error(1)
}

func (m *MockMatchRepository) Create(ctx context.Context, match *entities.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) SetResult(ctx context.Context, matchID int64, result entities.Outcome) error {
	args := m.Called(ctx, matchID, result)
	return args.Error(0)
}

func (m *MockMatchRepository) UpdateStatus(ctx context.Context, matchID int64, status entities.MatchStatus) error {
	args := m.Called(ctx, matchID, status)
	return args.Error(0)
}

func (m *MockMatchRepository) ListFinishedWithPending(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, wagerID int64) (*entities.Wager, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByIDForUpdate(ctx context.Context, wagerID int64) (*entities.Wager, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByUserAndMatch(ctx context.Context, userID, matchID int64) (*entities.Wager, error) {
	args := m.Called(ctx, userID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) ListPendingByMatch(ctx context.Context, matchID int64) ([]int64, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockWagerRepository) ListSettledByUser(ctx context.Context, userID int64) ([]*entities.Wager, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wager), args.Error(1)
}

func (m *MockWagerRepository) Update(ctx context.Context, wager *entities.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

// MockStakeRepository is a mock implementation of StakeRepository
type MockStakeRepository struct {
	mock.Mock
}

func (m *MockStakeRepository) Create(ctx context.Context, position *entities.StakePosition) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *MockStakeRepository) GetByIDForUpdate(ctx context.Context, stakeID int64) (*entities.StakePosition, error) {
	args := m.Called(ctx, stakeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StakePosition), args.Error(1)
}

func (m *MockStakeRepository) ListOpenByUser(ctx context.Context, userID int64) ([]*entities.StakePosition, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StakePosition), args.Error(1)
}

func (m *MockStakeRepository) Close(ctx context.Context, position *entities.StakePosition) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

// MockVoucherRepository is a mock implementation of VoucherRepository
type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) Create(ctx context.Context, voucher *entities.Voucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *MockVoucherRepository) GetByID(ctx context.Context, voucherID string) (*entities.Voucher, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) GetForUpdate(ctx context.Context, voucherID string) (*entities.Voucher, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) Consume(ctx context.Context, voucherID string, wagerID int64) (bool, error) {
	args := m.Called(ctx, voucherID, wagerID)
	return args.Bool(0), args.Error(1)
}

// MockSpinRepository is a mock implementation of SpinRepository
type MockSpinRepository struct {
	mock.Mock
}

func (m *MockSpinRepository) GetBySessionKey(ctx context.Context, sessionKey string) (*entities.SpinRecord, error) {
	args := m.Called(ctx, sessionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SpinRecord), args.Error(1)
}

func (m *MockSpinRepository) Create(ctx context.Context, record *entities.SpinRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSpinRepository) UpdateStatus(ctx context.Context, spinID int64, status entities.SpinStatus) error {
	args := m.Called(ctx, spinID, status)
	return args.Error(0)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserStats), args.Error(1)
}

func (m *MockStatsRepository) CreateForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserStats), args.Error(1)
}

func (m *MockStatsRepository) Update(ctx context.Context, stats *entities.UserStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsRepository) Upsert(ctx context.Context, stats *entities.UserStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsRepository) ListTop(ctx context.Context, limit int) ([]*entities.UserStats, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.UserStats), args.Error(1)
}

func (m *MockStatsRepository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, handler string) (bool, error) {
	args := m.Called(ctx, eventID, handler)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher records published events for assertions.
type MockEventPublisher struct {
	Events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Events = append(m.Events, event)
}

// FixedClock returns a constant time from Now.
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time { return c.Time }

// FakeUnitOfWork wires the mock repositories into a UnitOfWork whose
// Begin/Commit/Rollback only track call counts. Tests assert on commits
// and rollbacks the way they assert on repository expectations.
type FakeUnitOfWork struct {
	Accounts  *MockAccountRepository
	Ledger    *MockLedgerRepository
	Matches   *MockMatchRepository
	Wagers    *MockWagerRepository
	Stakes    *MockStakeRepository
	Vouchers  *MockVoucherRepository
	Spins     *MockSpinRepository
	Stats     *MockStatsRepository
	Publisher *MockEventPublisher

	BeginErr  error
	CommitErr error
	Begun     int
	Committed int
	RolledBck int
}

// NewFakeUnitOfWork creates a fake unit of work with fresh mocks.
func NewFakeUnitOfWork() *FakeUnitOfWork {
	return &FakeUnitOfWork{
		Accounts:  &MockAccountRepository{},
		Ledger:    &MockLedgerRepository{},
		Matches:   &MockMatchRepository{},
		Wagers:    &MockWagerRepository{},
		Stakes:    &MockStakeRepository{},
		Vouchers:  &MockVoucherRepository{},
		Spins:     &MockSpinRepository{},
		Stats:     &MockStatsRepository{},
		Publisher: &MockEventPublisher{},
	}
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) error {
	if u.BeginErr != nil {
		return u.BeginErr
	}
	u.Begun++
	return nil
}

func (u *FakeUnitOfWork) Commit() error {
	if u.CommitErr != nil {
		return u.CommitErr
	}
	u.Committed++
	return nil
}

func (u *FakeUnitOfWork) Rollback() error {
	u.RolledBck++
	return nil
}

func (u *FakeUnitOfWork) AccountRepository() interfaces.AccountRepository { return u.Accounts }
func (u *FakeUnitOfWork) LedgerRepository() interfaces.LedgerRepository   { return u.Ledger }
func (u *FakeUnitOfWork) MatchRepository() interfaces.MatchRepository     { return u.Matches }
func (u *FakeUnitOfWork) WagerRepository() interfaces.WagerRepository     { return u.Wagers }
func (u *FakeUnitOfWork) StakeRepository() interfaces.StakeRepository     { return u.Stakes }
func (u *FakeUnitOfWork) VoucherRepository() interfaces.VoucherRepository { return u.Vouchers }
func (u *FakeUnitOfWork) SpinRepository() interfaces.SpinRepository       { return u.Spins }
func (u *FakeUnitOfWork) StatsRepository() interfaces.StatsRepository     { return u.Stats }
func (u *FakeUnitOfWork) EventBus() interfaces.EventPublisher             { return u.Publisher }

// FakeUowFactory hands out fake units of work in order, repeating the
// last one when the sequence runs out.
type FakeUowFactory struct {
	Uows []*FakeUnitOfWork
	next int
}

// NewFakeUowFactory creates a factory over the given units of work.
func NewFakeUowFactory(uows ...*FakeUnitOfWork) *FakeUowFactory {
	return &FakeUowFactory{Uows: uows}
}

func (f *FakeUowFactory) Create() interfaces.UnitOfWork {
	if len(f.Uows) == 0 {
		panic("fake uow factory has no units of work")
	}
	uow := f.Uows[f.next]
	if f.next < len(f.Uows)-1 {
		f.next++
	}
	return uow
}
