package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// BasisPoints is the fee denominator: 10000 = 100%.
const BasisPoints uint64 = 10000

// BurnPrincipal is the zero address; it can never hold a role.
const BurnPrincipal = "SP000000000000000000002Q6VF78"

// Params is the platform's constants registry. Defaults mirror the values the
// contracts shipped with on mainnet.
type Params struct {
	PlatformFeeRate    uint64 `env:"PLATFORM_FEE_RATE,default=250"`
	RushFeeSurcharge   uint64 `env:"RUSH_FEE_SURCHARGE,default=50"`
	MinServiceAmount   uint64 `env:"MIN_SERVICE_AMOUNT,default=1000000"`
	MaxServiceAmount   uint64 `env:"MAX_SERVICE_AMOUNT,default=100000000000"`
	MaxServiceDuration uint64 `env:"MAX_SERVICE_DURATION,default=8640"`
	RushMaxDuration    uint64 `env:"RUSH_MAX_DURATION,default=144"`

	MinCategoryLength    int `env:"MIN_CATEGORY_LENGTH,default=1"`
	MaxCategoryLength    int `env:"MAX_CATEGORY_LENGTH,default=50"`
	MaxDescriptionLength int `env:"MAX_DESCRIPTION_LENGTH,default=500"`
	MinMessageLength     int `env:"MIN_MESSAGE_LENGTH,default=10"`
	MaxMessageLength     int `env:"MAX_MESSAGE_LENGTH,default=500"`
	MaxReferenceLength   int `env:"MAX_REFERENCE_LENGTH,default=200"`
	MinPortfolioLinks    int `env:"MIN_PORTFOLIO_LINKS,default=1"`
	MaxPortfolioLinks    int `env:"MAX_PORTFOLIO_LINKS,default=5"`

	PriceBandMinPct uint64 `env:"PRICE_BAND_MIN_PCT,default=50"`
	PriceBandMaxPct uint64 `env:"PRICE_BAND_MAX_PCT,default=200"`

	MaxApplicationsPerService int    `env:"MAX_APPLICATIONS_PER_SERVICE,default=15"`
	MaxApplicationsPerTick    int    `env:"MAX_APPLICATIONS_PER_BLOCK,default=3"`
	MaxServicesPerTick        int    `env:"MAX_SERVICES_PER_BLOCK,default=5"`
	ApplicationCost           uint64 `env:"APPLICATION_COST_SKILL,default=1000000"`

	MinRating uint8 `env:"MIN_RATING,default=10"`
	MaxRating uint8 `env:"MAX_RATING,default=50"`

	ExperiencedThreshold      uint8 `env:"MIN_SUCCESS_PROBABILITY,default=80"`
	NewProviderThreshold      uint8 `env:"NEW_PROVIDER_THRESHOLD,default=70"`
	QuotaPercentage           uint  `env:"NEW_PROVIDER_QUOTA_PERCENTAGE,default=30"`
	MinNewProviderSuggestions uint  `env:"MIN_NEW_PROVIDER_SUGGESTIONS,default=1"`
	MaxSuggestions            uint  `env:"MAX_SUGGESTIONS,default=5"`
	TrialProjects             uint  `env:"TRIAL_PROJECTS,default=3"`

	EmergencyTimeout    uint64 `env:"EMERGENCY_TIMEOUT,default=2160"`
	StaleServiceTimeout uint64 `env:"STALE_SERVICE_TIMEOUT,default=4320"`
}

// Config is the process configuration.
type Config struct {
	Port      string `env:"PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
	JWTSecret string `env:"JWT_SECRET"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`

	RedisAddr string `env:"REDIS_ADDR"`

	AdminAccounts      string `env:"ADMIN_ACCOUNTS"`
	Treasury           string `env:"TREASURY_ACCOUNT,default=treasury"`
	SuggestionOperator string `env:"SUGGESTION_OPERATOR"`

	TickInterval  time.Duration `env:"TICK_INTERVAL,default=10m"`
	HTTPRateLimit float64       `env:"HTTP_RATE_LIMIT,default=20"`
	HTTPRateBurst int           `env:"HTTP_RATE_BURST,default=40"`

	STXPriceUSD   uint64 `env:"STX_PRICE_USD,default=2000000"`
	STXConfidence uint8  `env:"STX_PRICE_CONFIDENCE,default=90"`

	Params Params
}

// Load reads an optional .env file and decodes the environment.
func Load(files ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN builds the Postgres connection string, or "" when no database is
// configured.
func (c *Config) DSN() string {
	if c.DBHost == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Admins returns the configured administrator principals.
func (c *Config) Admins() []string {
	var out []string
	for _, a := range strings.Split(c.AdminAccounts, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// DefaultParams returns the registry defaults without reading the environment.
func DefaultParams() Params {
	return Params{
		PlatformFeeRate:           250,
		RushFeeSurcharge:          50,
		MinServiceAmount:          1_000_000,
		MaxServiceAmount:          100_000_000_000,
		MaxServiceDuration:        8640,
		RushMaxDuration:           144,
		MinCategoryLength:         1,
		MaxCategoryLength:         50,
		MaxDescriptionLength:      500,
		MinMessageLength:          10,
		MaxMessageLength:          500,
		MaxReferenceLength:        200,
		MinPortfolioLinks:         1,
		MaxPortfolioLinks:         5,
		PriceBandMinPct:           50,
		PriceBandMaxPct:           200,
		MaxApplicationsPerService: 15,
		MaxApplicationsPerTick:    3,
		MaxServicesPerTick:        5,
		ApplicationCost:           1_000_000,
		MinRating:                 10,
		MaxRating:                 50,
		ExperiencedThreshold:      80,
		NewProviderThreshold:      70,
		QuotaPercentage:           30,
		MinNewProviderSuggestions: 1,
		MaxSuggestions:            5,
		TrialProjects:             3,
		EmergencyTimeout:          2160,
		StaleServiceTimeout:       4320,
	}
}

// Validate rejects parameter sets that would break ledger invariants.
func (p Params) Validate() error {
	switch {
	case p.PlatformFeeRate+p.RushFeeSurcharge >= BasisPoints:
		return errors.New("config: fee rate must stay below 100%")
	case p.MinServiceAmount == 0 || p.MinServiceAmount > p.MaxServiceAmount:
		return errors.New("config: invalid service amount range")
	case p.MaxServiceDuration == 0 || p.RushMaxDuration > p.MaxServiceDuration:
		return errors.New("config: invalid service duration range")
	case p.MinRating == 0 || p.MinRating > p.MaxRating:
		return errors.New("config: invalid rating range")
	case p.ExperiencedThreshold <= p.NewProviderThreshold || p.ExperiencedThreshold > 100:
		return errors.New("config: experienced threshold must exceed the new-provider threshold")
	case p.QuotaPercentage > 100:
		return errors.New("config: quota percentage above 100")
	case p.MinNewProviderSuggestions > p.MaxSuggestions:
		return errors.New("config: minimum new-provider suggestions exceed slate size")
	case p.PriceBandMinPct > 100 || p.PriceBandMaxPct < 100:
		return errors.New("config: price band must include the original amount")
	}
	return nil
}
