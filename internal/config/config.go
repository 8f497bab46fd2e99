package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the restaurant point of sale
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Server        ServerConfig        `yaml:"server"`
	Restaurant    RestaurantConfig    `yaml:"restaurant"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// RestaurantConfig holds restaurant-wide settings read by the pricing engine.
// TaxRate is kept as text so that no binary float ever touches it.
type RestaurantConfig struct {
	TaxRate  string `yaml:"tax_rate"`
	Currency string `yaml:"currency"`
}

type NotificationsConfig struct {
	Buffer int `yaml:"buffer"`
}

// Load reads configuration from a YAML file, then applies .env and environment overrides
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A missing .env file is fine, the process environment still applies
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if _, err := cfg.TaxRate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides secrets and hosts from the environment
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("POS_DB_HOST"); ok {
		c.Database.Host = v
	}
	if v, ok := os.LookupEnv("POS_DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := os.LookupEnv("POS_RABBITMQ_HOST"); ok {
		c.RabbitMQ.Host = v
	}
	if v, ok := os.LookupEnv("POS_RABBITMQ_PASSWORD"); ok {
		c.RabbitMQ.Password = v
	}
	if v, ok := os.LookupEnv("POS_TAX_RATE"); ok {
		c.Restaurant.TaxRate = v
	}
	if v, ok := os.LookupEnv("POS_SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POS_SERVER_PORT value: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Notifications.Buffer <= 0 {
		c.Notifications.Buffer = 256
	}
	if c.Restaurant.TaxRate == "" {
		c.Restaurant.TaxRate = "0"
	}
}

// TaxRate parses the configured tax rate into an exact decimal
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Restaurant.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid restaurant.tax_rate %q: %w", c.Restaurant.TaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("restaurant.tax_rate must not be negative, got %s", rate)
	}
	return rate, nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
