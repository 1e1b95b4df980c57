// Package config loads the settings of the stoplight simulation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-yaml"

	"github.com/creachadair/stoplight"
)

const (
	DefaultVehicles   = 3
	DefaultMinArrival = 1 * time.Second
	DefaultMaxArrival = 3 * time.Second
)

// Config is the top-level configuration of a simulation.
type Config struct {
	Cycle    *CycleConfig   `yaml:"cycle"`
	Vehicles *VehicleConfig `yaml:"vehicles"`

	// Journal is the path of a SQLite database recording transitions and
	// crossings. If empty, nothing is recorded.
	Journal string `yaml:"journal"`
}

// CycleConfig configures the traffic light.
type CycleConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
	Tick        time.Duration `yaml:"tick"`

	// If non-zero, intervals are drawn from a PCG source with this seed.
	Seed uint64 `yaml:"seed"`
}

// VehicleConfig configures the vehicles queuing at the light.
type VehicleConfig struct {
	Count      int           `yaml:"count"`
	MinArrival time.Duration `yaml:"min_arrival"`
	MaxArrival time.Duration `yaml:"max_arrival"`
}

// Default returns a configuration with default values for all fields.
func Default() *Config {
	return &Config{
		Cycle: &CycleConfig{
			MinInterval: stoplight.DefaultMinInterval,
			MaxInterval: stoplight.DefaultMaxInterval,
			Tick:        stoplight.DefaultTick,
		},
		Vehicles: &VehicleConfig{
			Count:      DefaultVehicles,
			MinArrival: DefaultMinArrival,
			MaxArrival: DefaultMaxArrival,
		},
	}
}

// Load reads a configuration from src, which may be a file path or a file,
// http, https, or s3 URL. Fields not set by src keep their default values. If
// src is empty, Load returns the default configuration.
func Load(ctx context.Context, src string) (*Config, error) {
	cfg := Default()
	if src == "" {
		return cfg, nil
	}
	b, err := loadURL(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", src, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", src, err)
	}
	return cfg, nil
}

// Validate reports an error if c is not a usable configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Cycle == nil {
		errs = append(errs, errors.New("missing cycle settings"))
	} else {
		if c.Cycle.MinInterval <= 0 {
			errs = append(errs, fmt.Errorf("cycle.min_interval %v is not positive", c.Cycle.MinInterval))
		}
		if c.Cycle.MaxInterval < c.Cycle.MinInterval {
			errs = append(errs, fmt.Errorf("cycle.max_interval %v < min_interval %v",
				c.Cycle.MaxInterval, c.Cycle.MinInterval))
		}
		if c.Cycle.Tick < 0 {
			errs = append(errs, fmt.Errorf("cycle.tick %v is negative", c.Cycle.Tick))
		}
	}
	if c.Vehicles == nil {
		errs = append(errs, errors.New("missing vehicle settings"))
	} else {
		if c.Vehicles.Count < 0 {
			errs = append(errs, fmt.Errorf("vehicles.count %d is negative", c.Vehicles.Count))
		}
		if c.Vehicles.MinArrival < 0 || c.Vehicles.MaxArrival < c.Vehicles.MinArrival {
			errs = append(errs, fmt.Errorf("vehicles arrival range [%v, %v) is invalid",
				c.Vehicles.MinArrival, c.Vehicles.MaxArrival))
		}
	}
	return errors.Join(errs...)
}

func loadURL(ctx context.Context, s string) ([]byte, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", s, err)
	}
	switch u.Scheme {
	case "http", "https":
		return loadHTTP(ctx, u)
	case "file", "": // empty scheme is treated as file
		return os.ReadFile(u.Path)
	case "s3":
		return loadS3(ctx, u)
	default:
		return nil, fmt.Errorf("invalid url %s: scheme must be http, https, file, or s3", s)
	}
}

func loadHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http get %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func loadS3(ctx context.Context, u *url.URL) ([]byte, error) {
	awscfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	svc := s3.NewFromConfig(awscfg)
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	out, err := svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
