package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/analysis/regions"
	"github.com/jengzang/personal-context-builder/internal/analysis/routine"
	"github.com/jengzang/personal-context-builder/internal/analysis/staypoints"
	"github.com/jengzang/personal-context-builder/internal/mapping"
)

// DefaultJWTSecret is only meant for local development.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Config is the application configuration
type Config struct {
	Port        string     `yaml:"port"`
	DBPath      string     `yaml:"db_path"`
	JWTSecret   string     `yaml:"jwt_secret"`
	MappingFile string     `yaml:"region_mapping_file"`
	Workers     int        `yaml:"workers"`
	RateLimit   int        `yaml:"rate_limit_per_minute"`
	Thresholds  Thresholds `yaml:"thresholds"`
}

// Thresholds are the pipeline parameters
type Thresholds struct {
	TimeMinMs          int64   `yaml:"staypoints_time_min_ms"`
	TimeMaxMs          int64   `yaml:"staypoints_time_max_ms"`
	DistanceMaxM       float64 `yaml:"staypoints_distance_max_m"`
	RegionDistanceM    float64 `yaml:"stayregion_distance_threshold_m"`
	AccuracyAware      bool    `yaml:"stayregion_accuracy_aware"`
	RegionsPerDay      bool    `yaml:"stayregion_per_day"`
	RegionIncrementDeg float64 `yaml:"stayregion_inc_delta"`
	DayStart           string  `yaml:"day_start"`
	DayHours           float64 `yaml:"day_hours"`
	SlotFreq           string  `yaml:"slot_freq"`
	Timezone           string  `yaml:"timezone"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:      ":8080",
		DBPath:    "./data/pcb.db",
		JWTSecret: DefaultJWTSecret,
		Workers:   4,
		RateLimit: 120,
		Thresholds: Thresholds{
			TimeMinMs:          5 * 60 * 1000,
			TimeMaxMs:          4 * 60 * 60 * 1000,
			DistanceMaxM:       200,
			RegionDistanceM:    200,
			AccuracyAware:      true,
			RegionIncrementDeg: 1e-6,
			DayStart:           "00:00:00",
			DayHours:           23.5,
			SlotFreq:           "30T",
		},
	}
}

// Load builds the configuration from the defaults, the YAML file named by
// CONFIG_FILE when set, then environment variables.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with an explicit YAML path. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.MappingFile, "REGION_MAPPING_FILE")
	setString(&c.Thresholds.DayStart, "PCB_DAY_START")
	setString(&c.Thresholds.SlotFreq, "PCB_SLOT_FREQ")
	setString(&c.Thresholds.Timezone, "PCB_TIMEZONE")

	return errors.Join(
		setInt(&c.Workers, "WORKERS"),
		setInt(&c.RateLimit, "RATE_LIMIT_PER_MINUTE"),
		setInt64(&c.Thresholds.TimeMinMs, "PCB_STAYPOINTS_TIME_MIN_MS"),
		setInt64(&c.Thresholds.TimeMaxMs, "PCB_STAYPOINTS_TIME_MAX_MS"),
		setFloat(&c.Thresholds.DistanceMaxM, "PCB_STAYPOINTS_DISTANCE_MAX_M"),
		setFloat(&c.Thresholds.RegionDistanceM, "PCB_STAYREGION_DISTANCE_THRESHOLD_M"),
		setFloat(&c.Thresholds.RegionIncrementDeg, "PCB_STAYREGION_INC_DELTA"),
		setBool(&c.Thresholds.AccuracyAware, "PCB_STAYREGION_ACCURACY_AWARE"),
		setBool(&c.Thresholds.RegionsPerDay, "PCB_STAYREGION_PER_DAY"),
		setFloat(&c.Thresholds.DayHours, "PCB_DAY_HOURS"),
	)
}

// Pipeline builds the analysis pipeline parameters around table
func (c *Config) Pipeline(table *mapping.Table) (analysis.Pipeline, error) {
	t := c.Thresholds

	grid, err := routine.ParseDayGrid(t.DayStart, t.DayHours, t.SlotFreq)
	if err != nil {
		return analysis.Pipeline{}, fmt.Errorf("failed to build day grid: %w", err)
	}
	if t.Timezone != "" {
		loc, err := time.LoadLocation(t.Timezone)
		if err != nil {
			return analysis.Pipeline{}, fmt.Errorf("failed to load timezone: %w", err)
		}
		grid.Location = loc
	}

	rp := regions.DefaultParams()
	rp.DistanceThresholdM = t.RegionDistanceM
	rp.AccuracyAware = t.AccuracyAware
	if t.RegionIncrementDeg > 0 {
		rp.IncrementDeg = t.RegionIncrementDeg
	}

	return analysis.Pipeline{
		StayPoints: staypoints.Params{
			TimeMin:      time.Duration(t.TimeMinMs) * time.Millisecond,
			TimeMax:      time.Duration(t.TimeMaxMs) * time.Millisecond,
			DistanceMaxM: t.DistanceMaxM,
		},
		Regions: rp,
		PerDay:  t.RegionsPerDay,
		Grid:    grid,
		Table:   table,
	}, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
