package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Config carries the per-run simulation parameters. It is explicit
// configuration passed into each engine instance, never process-wide state,
// so concurrent per-symbol runs cannot interfere.
type Config struct {
	// InitialCash is the starting account balance in USD.
	InitialCash float64 `yaml:"initial_cash" json:"initial_cash" validate:"gt=0" jsonschema:"title=Initial Cash,description=Starting account balance in USD,minimum=0"`
	// CommissionRate is the proportional commission charged on both legs.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Proportional commission applied to entry cost and exit proceeds"`
	// PositionFraction is the fraction of current cash committed per trade.
	PositionFraction float64 `yaml:"position_fraction" json:"position_fraction" validate:"gt=0,lte=1" jsonschema:"title=Position Fraction,description=Fraction of available cash committed to a single trade"`
	// RiskFreeRate is the annual risk-free rate used by the Sharpe ratio.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=0" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate used for the Sharpe ratio"`
	// StartTime and EndTime optionally bound the simulated period.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
}

// DefaultConfig returns the reference defaults: 100k starting cash, 0.1%
// commission, 10% position sizing and a 2% risk-free rate.
func DefaultConfig() Config {
	return Config{
		InitialCash:      100000,
		CommissionRate:   0.001,
		PositionFraction: 0.1,
		RiskFreeRate:     0.02,
		StartTime:        optional.None[time.Time](),
		EndTime:          optional.None[time.Time](),
	}
}

// UnmarshalYAML decodes the config over the defaults, mapping absent
// optional times to None.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		InitialCash      *float64   `yaml:"initial_cash"`
		CommissionRate   *float64   `yaml:"commission_rate"`
		PositionFraction *float64   `yaml:"position_fraction"`
		RiskFreeRate     *float64   `yaml:"risk_free_rate"`
		StartTime        *time.Time `yaml:"start_time"`
		EndTime          *time.Time `yaml:"end_time"`
	}{}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	defaults := DefaultConfig()
	*c = defaults

	if raw.InitialCash != nil {
		c.InitialCash = *raw.InitialCash
	}

	if raw.CommissionRate != nil {
		c.CommissionRate = *raw.CommissionRate
	}

	if raw.PositionFraction != nil {
		c.PositionFraction = *raw.PositionFraction
	}

	if raw.RiskFreeRate != nil {
		c.RiskFreeRate = *raw.RiskFreeRate
	}

	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return nil
}

// ParseConfig decodes and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse engine config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the engine config.
func (c Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return string(schemaBytes), nil
}
