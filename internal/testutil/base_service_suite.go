package testutil

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/config"
	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/types"
	"github.com/ispops/billing/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the in-memory repositories for testing
type Stores struct {
	ContractRepo       *InMemoryContractStore
	InvoiceRepo        *InMemoryInvoiceStore
	PaymentProfileRepo *InMemoryPaymentProfileStore
	SequenceAllocator  *InMemorySequenceAllocator
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *MockPostgresClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	contracts := NewInMemoryContractStore()
	invoices := NewInMemoryInvoiceStore()
	profiles := NewInMemoryPaymentProfileStore()

	s.stores = Stores{
		ContractRepo:       contracts,
		InvoiceRepo:        invoices,
		PaymentProfileRepo: profiles,
		SequenceAllocator:  NewInMemorySequenceAllocator(profiles, invoices),
	}

	s.db = NewMockPostgresClient(s.logger, contracts, invoices, profiles)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.ContractRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.PaymentProfileRepo.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// CreatePaymentProfile seeds a payment profile whose next external number is next
func (s *BaseServiceTestSuite) CreatePaymentProfile(next int64, width int) *paymentprofile.PaymentProfile {
	p := &paymentprofile.PaymentProfile{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_PROFILE),
		Name:               "Default",
		NextExternalNumber: next,
		NumberWidth:        width,
		BaseModel:          types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.PaymentProfileRepo.Add(s.ctx, p))
	return p
}

// CreateContract seeds a published contract built from defaults adjusted by mutate
func (s *BaseServiceTestSuite) CreateContract(paymentProfileID string, mutate ...func(c *contract.Contract)) *contract.Contract {
	c := &contract.Contract{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT),
		SubscriptionDate: types.Date(2026, time.January, 5),
		DueDay:           10,
		MonthlyFee:       decimal.NewFromInt(100),
		InstallationFee:  decimal.Zero,
		PaymentProfileID: paymentProfileID,
		TermMonths:       12,
		BaseModel:        types.GetDefaultBaseModel(s.ctx),
	}
	for _, fn := range mutate {
		fn(c)
	}
	s.Require().NoError(s.stores.ContractRepo.Add(s.ctx, c))
	return c
}
