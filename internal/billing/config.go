// internal/billing/config.go
package billing

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the billing parameters in force for a computation.
type Config struct {
	BaseDue             decimal.Decimal `json:"base_due"`
	MooringPerFoot      decimal.Decimal `json:"mooring_per_foot"`
	VisitCost           decimal.Decimal `json:"visit_cost"`
	GraceDays           int             `json:"grace_days"`
	MonthlyInterestRate decimal.Decimal `json:"monthly_interest_rate"`
	DueDay              int             `json:"due_day"`

	// Fixed mooring tiers.
	StorageFee            decimal.Decimal `json:"storage_fee"`
	SmallCraftFee         decimal.Decimal `json:"small_craft_fee"`
	SmallMotorboatFee     decimal.Decimal `json:"small_motorboat_fee"`
	SmallMotorboatMaxFeet decimal.Decimal `json:"small_motorboat_max_feet"`

	CurrencyPlaces int32 `json:"currency_places"`
}

// Documented defaults.
var (
	DefaultBaseDue               = decimal.NewFromInt(28000)
	DefaultMooringPerFoot        = decimal.NewFromInt(2800)
	DefaultVisitCost             = decimal.NewFromInt(4200)
	DefaultGraceDays             = 5
	DefaultMonthlyInterestRate   = decimal.RequireFromString("0.045")
	DefaultDueDay                = 15
	DefaultStorageFee            = decimal.NewFromInt(35000)
	DefaultSmallCraftFee         = decimal.NewFromInt(18000)
	DefaultSmallMotorboatFee     = decimal.NewFromInt(45000)
	DefaultSmallMotorboatMaxFeet = decimal.NewFromInt(18)
	DefaultCurrencyPlaces        = int32(0)
)

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BaseDue:               DefaultBaseDue,
		MooringPerFoot:        DefaultMooringPerFoot,
		VisitCost:             DefaultVisitCost,
		GraceDays:             DefaultGraceDays,
		MonthlyInterestRate:   DefaultMonthlyInterestRate,
		DueDay:                DefaultDueDay,
		StorageFee:            DefaultStorageFee,
		SmallCraftFee:         DefaultSmallCraftFee,
		SmallMotorboatFee:     DefaultSmallMotorboatFee,
		SmallMotorboatMaxFeet: DefaultSmallMotorboatMaxFeet,
		CurrencyPlaces:        DefaultCurrencyPlaces,
	}
}

// StoredConfig is the persisted configuration row. Nil fields were never set.
type StoredConfig struct {
	BaseDue               *decimal.Decimal
	MooringPerFoot        *decimal.Decimal
	VisitCost             *decimal.Decimal
	GraceDays             *int
	MonthlyInterestRate   *decimal.Decimal
	DueDay                *int
	StorageFee            *decimal.Decimal
	SmallCraftFee         *decimal.Decimal
	SmallMotorboatFee     *decimal.Decimal
	SmallMotorboatMaxFeet *decimal.Decimal
}

// ConfigProvider reads the persisted configuration. A nil row with nil error means none is stored.
type ConfigProvider interface {
	BillingConfig(ctx context.Context) (*StoredConfig, error)
}

// ConfigLoader resolves the effective Config. It never fails.
type ConfigLoader struct {
	provider ConfigProvider
	log      *zap.Logger
}

func NewConfigLoader(provider ConfigProvider, log *zap.Logger) *ConfigLoader {
	return &ConfigLoader{provider: provider, log: log.Named("billing.config")}
}

// Load merges the stored row over the defaults. Invalid or missing fields keep their default.
func (l *ConfigLoader) Load(ctx context.Context) Config {
	cfg := DefaultConfig()
	if l == nil || l.provider == nil {
		return cfg
	}
	stored, err := l.provider.BillingConfig(ctx)
	if err != nil {
		l.log.Warn("billing config unavailable, using defaults", zap.Error(err))
		return cfg
	}
	if stored == nil {
		return cfg
	}

	nonNegative := func(field string, dst *decimal.Decimal, v *decimal.Decimal) {
		if v == nil {
			return
		}
		if v.IsNegative() {
			l.log.Warn("ignoring negative billing config value", zap.String("field", field), zap.String("value", v.String()))
			return
		}
		*dst = *v
	}
	nonNegative("base_due", &cfg.BaseDue, stored.BaseDue)
	nonNegative("mooring_per_foot", &cfg.MooringPerFoot, stored.MooringPerFoot)
	nonNegative("visit_cost", &cfg.VisitCost, stored.VisitCost)
	nonNegative("monthly_interest_rate", &cfg.MonthlyInterestRate, stored.MonthlyInterestRate)
	nonNegative("storage_fee", &cfg.StorageFee, stored.StorageFee)
	nonNegative("small_craft_fee", &cfg.SmallCraftFee, stored.SmallCraftFee)
	nonNegative("small_motorboat_fee", &cfg.SmallMotorboatFee, stored.SmallMotorboatFee)
	nonNegative("small_motorboat_max_feet", &cfg.SmallMotorboatMaxFeet, stored.SmallMotorboatMaxFeet)

	if stored.GraceDays != nil && *stored.GraceDays >= 0 {
		cfg.GraceDays = *stored.GraceDays
	}
	if stored.DueDay != nil && *stored.DueDay >= 1 && *stored.DueDay <= 31 {
		cfg.DueDay = *stored.DueDay
	}
	return cfg
}

// VisitCost is the per-visitor cost captured when a visit is recorded.
func (l *ConfigLoader) VisitCost(ctx context.Context) decimal.Decimal {
	return l.Load(ctx).VisitCost
}
