package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServicesTestSuite runs the services over a real sqlite database
type ServicesTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *storage.DB
	svc *Services
}

func (suite *ServicesTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db, err := storage.NewDB(filepath.Join(suite.T().TempDir(), "services.db"))
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.svc = New(db)
}

func (suite *ServicesTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServicesTestSuite) register(name string) *models.User {
	u, err := suite.svc.Accounts.Register(suite.ctx, name, name+"-pw")
	require.NoError(suite.T(), err)
	return u
}

func (suite *ServicesTestSuite) category(name string) *models.Category {
	c, err := suite.svc.Categories.AddCategory(suite.ctx, name)
	require.NoError(suite.T(), err)
	return c
}

func (suite *ServicesTestSuite) add(owner int64, desc, amount string, category *int64) *models.Expense {
	e, err := suite.svc.Ledger.AddExpense(suite.ctx, owner, desc, decimal.RequireFromString(amount), category)
	require.NoError(suite.T(), err)
	return e
}

func (suite *ServicesTestSuite) TestRegisterDuplicateKeepsOriginalCredential() {
	_, err := suite.svc.Accounts.Register(suite.ctx, "alice", "pw1")
	require.NoError(suite.T(), err)

	_, err = suite.svc.Accounts.Register(suite.ctx, "alice", "other")
	assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)

	_, err = suite.svc.Accounts.Authenticate(suite.ctx, "alice", "pw1")
	assert.NoError(suite.T(), err)
	_, err = suite.svc.Accounts.Authenticate(suite.ctx, "alice", "other")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *ServicesTestSuite) TestRegisterStoresDigestOnly() {
	u, err := suite.svc.Accounts.Register(suite.ctx, "  dave  ", "hunter2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "dave", u.Username)
	assert.NotContains(suite.T(), u.PasswordHash, "hunter2")
}

func (suite *ServicesTestSuite) TestRegisterRejectsEmpty() {
	_, err := suite.svc.Accounts.Register(suite.ctx, "   ", "pw")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
	_, err = suite.svc.Accounts.Register(suite.ctx, "erin", "")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *ServicesTestSuite) TestAuthenticate() {
	u := suite.register("alice")

	got, err := suite.svc.Accounts.Authenticate(suite.ctx, "alice", "alice-pw")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), u.ID, got.ID)

	for _, tc := range []struct{ name, user, pw string }{
		{"wrong password", "alice", "nope"},
		{"unknown user", "mallory", "alice-pw"},
		{"empty password", "alice", ""},
	} {
		suite.Run(tc.name, func() {
			got, err := suite.svc.Accounts.Authenticate(suite.ctx, tc.user, tc.pw)
			assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
			assert.Nil(suite.T(), got)
		})
	}
}

func (suite *ServicesTestSuite) TestAuthenticateUnknownUserStillDerivesKey() {
	suite.register("alice")

	accounts := NewAccounts(suite.db)
	var checked []string
	accounts.checkPassword = func(password, hash string) bool {
		checked = append(checked, hash)
		return auth.CheckPassword(password, hash)
	}

	_, err := accounts.Authenticate(suite.ctx, "mallory", "guess")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
	require.Len(suite.T(), checked, 1)
	assert.True(suite.T(), strings.HasPrefix(checked[0], "scrypt:"), "unknown users are checked against a real digest")

	_, err = accounts.Authenticate(suite.ctx, "alice", "guess")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
	assert.Len(suite.T(), checked, 2)
}

func (suite *ServicesTestSuite) TestNameLimitsCountCharacters() {
	// 150 two-byte runes: 300 bytes but within the limit.
	name := strings.Repeat("é", maxUsernameLength)
	u, err := suite.svc.Accounts.Register(suite.ctx, name, "pw")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), name, u.Username)

	_, err = suite.svc.Accounts.Register(suite.ctx, name+"é", "pw")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	c, err := suite.svc.Categories.AddCategory(suite.ctx, strings.Repeat("ß", maxCategoryLength))
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), c.ID)

	_, err = suite.svc.Categories.AddCategory(suite.ctx, strings.Repeat("ß", maxCategoryLength+1))
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *ServicesTestSuite) TestConcurrentRegistrationYieldsOneUser() {
	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.svc.Accounts.Register(suite.ctx, "racer", "pw")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)
	}
	assert.Equal(suite.T(), 1, created)
}

func (suite *ServicesTestSuite) TestAddCategory() {
	suite.category("food")
	suite.category("rent")

	_, err := suite.svc.Categories.AddCategory(suite.ctx, "food")
	assert.ErrorIs(suite.T(), err, ErrDuplicateCategory)

	_, err = suite.svc.Categories.AddCategory(suite.ctx, " ")
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	list, err := suite.svc.Categories.ListCategories(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 2)
	assert.Equal(suite.T(), "food", list[0].Name)
	assert.Equal(suite.T(), "rent", list[1].Name)
}

func (suite *ServicesTestSuite) TestAddExpenseValidation() {
	alice := suite.register("alice")
	missing := int64(31337)

	tests := []struct {
		name     string
		owner    int64
		desc     string
		amount   decimal.Decimal
		category *int64
		want     error
	}{
		{"unknown owner", 9999, "coffee", decimal.NewFromInt(1), nil, ErrUnknownOwner},
		{"unknown category", alice.ID, "coffee", decimal.NewFromInt(1), &missing, ErrUnknownCategory},
		{"empty description", alice.ID, "  ", decimal.NewFromInt(1), nil, ErrEmptyDescription},
		{"negative amount", alice.ID, "refund", decimal.NewFromInt(-3), nil, ErrInvalidAmount},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.svc.Ledger.AddExpense(suite.ctx, tt.owner, tt.desc, tt.amount, tt.category)
			assert.ErrorIs(suite.T(), err, tt.want)
		})
	}

	list, err := suite.svc.Ledger.ListExpenses(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *ServicesTestSuite) TestListExpensesNeverLeaksOtherOwners() {
	alice := suite.register("alice")
	bob := suite.register("bob")

	suite.add(alice.ID, "coffee", "3", nil)
	suite.add(bob.ID, "rent", "900", nil)
	suite.add(bob.ID, "gym", "40", nil)

	list, err := suite.svc.Ledger.ListExpenses(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), alice.ID, list[0].UserID)
}

func (suite *ServicesTestSuite) TestDeleteForeignExpenseIsNoop() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	bobs := suite.add(bob.ID, "rent", "900", nil)

	require.NoError(suite.T(), suite.svc.Ledger.DeleteExpense(suite.ctx, alice.ID, bobs.ID))
	require.NoError(suite.T(), suite.svc.Ledger.DeleteExpense(suite.ctx, alice.ID, 123456))

	list, err := suite.svc.Ledger.ListExpenses(suite.ctx, bob.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)
}

func (suite *ServicesTestSuite) TestClearAllIsIdempotent() {
	alice := suite.register("alice")
	bob := suite.register("bob")
	suite.add(alice.ID, "a", "1", nil)
	suite.add(alice.ID, "b", "2", nil)
	suite.add(bob.ID, "c", "3", nil)

	require.NoError(suite.T(), suite.svc.Ledger.ClearAll(suite.ctx, alice.ID))
	list, err := suite.svc.Ledger.ListExpenses(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)

	require.NoError(suite.T(), suite.svc.Ledger.ClearAll(suite.ctx, alice.ID))

	bobs, err := suite.svc.Ledger.ListExpenses(suite.ctx, bob.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), bobs, 1)
}

func (suite *ServicesTestSuite) TestTotalFor() {
	alice := suite.register("alice")

	total, err := suite.svc.Reports.TotalFor(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), total.IsZero())

	suite.add(alice.ID, "lunch", "10.50", nil)
	suite.add(alice.ID, "snack", "5.25", nil)

	total, err = suite.svc.Reports.TotalFor(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "15.75", total.StringFixed(2))
}

func (suite *ServicesTestSuite) TestPerCategoryTotals() {
	alice := suite.register("alice")
	food := suite.category("food")
	rent := suite.category("rent")
	fun := suite.category("fun")

	suite.add(alice.ID, "coffee", "4.50", &food.ID)
	suite.add(alice.ID, "bagel", "3.50", &food.ID)
	suite.add(alice.ID, "flat", "12", &rent.ID)
	suite.add(alice.ID, "misc", "100", nil)

	categories, err := suite.svc.Categories.ListCategories(suite.ctx)
	require.NoError(suite.T(), err)

	b, err := suite.svc.Reports.PerCategoryTotals(suite.ctx, alice.ID, categories)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), b.Items, 3)
	assert.True(suite.T(), b.HasChartData())

	assert.Equal(suite.T(), "8.00", b.Items[0].Total.StringFixed(2))
	assert.Equal(suite.T(), 2, b.Items[0].Count)
	assert.InDelta(suite.T(), 40.0, b.Items[0].Percentage, 0.001)
	assert.Equal(suite.T(), "12.00", b.Items[1].Total.StringFixed(2))
	assert.Equal(suite.T(), fun.ID, b.Items[2].Category.ID)
	assert.True(suite.T(), b.Items[2].Total.IsZero())
	assert.Equal(suite.T(), "20.00", b.Categorized.StringFixed(2))
}

func (suite *ServicesTestSuite) TestPerCategoryTotalsNoChartData() {
	alice := suite.register("alice")
	food := suite.category("food")
	suite.add(alice.ID, "uncategorised", "9", nil)
	suite.add(alice.ID, "free sample", "0", &food.ID)

	categories, err := suite.svc.Categories.ListCategories(suite.ctx)
	require.NoError(suite.T(), err)

	b, err := suite.svc.Reports.PerCategoryTotals(suite.ctx, alice.ID, categories)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), b.HasChartData())
	require.Len(suite.T(), b.Items, 1)
	assert.Zero(suite.T(), b.Items[0].Percentage)
}

func (suite *ServicesTestSuite) TestScenarioAliceCoffee() {
	alice, err := suite.svc.Accounts.Register(suite.ctx, "alice", "pw1")
	require.NoError(suite.T(), err)
	_, err = suite.svc.Accounts.Authenticate(suite.ctx, "alice", "pw1")
	require.NoError(suite.T(), err)

	amount, err := ParseAmount("4.50")
	require.NoError(suite.T(), err)

	absent := int64(1)
	_, err = suite.svc.Ledger.AddExpense(suite.ctx, alice.ID, "coffee", amount, &absent)
	require.ErrorIs(suite.T(), err, ErrUnknownCategory, "category must exist first")

	food := suite.category("food")
	e, err := suite.svc.Ledger.AddExpense(suite.ctx, alice.ID, "coffee", amount, &food.ID)
	require.NoError(suite.T(), err)

	list, err := suite.svc.Ledger.ListExpenses(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), "4.50", Total(list).StringFixed(2))

	require.NoError(suite.T(), suite.svc.Ledger.DeleteExpense(suite.ctx, alice.ID, e.ID))
	list, err = suite.svc.Ledger.ListExpenses(suite.ctx, alice.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}

// failingStore fails every lookup so storage errors can be told apart from
// domain errors.
type failingStore struct{ Store }

var errBoom = errors.New("boom")

func (failingStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errBoom
}

func (failingStore) GetUserByID(context.Context, int64) (*models.User, error) {
	return nil, errBoom
}

func TestStorageErrorsAreNotDomainErrors(t *testing.T) {
	svc := New(failingStore{})
	ctx := context.Background()

	_, err := svc.Accounts.Authenticate(ctx, "alice", "pw")
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Ledger.AddExpense(ctx, 1, "x", decimal.NewFromInt(1), nil)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrUnknownOwner)
}
