package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"patishie" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"patishie" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"panya" description:"Database name"`

	// Application configuration
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BakeryURL        string `long:"bakery-url" env:"BAKERY_URL" default:"http://localhost:8000" description:"Base URL of the bakery scraping service"`
	SourcesDir       string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source seed files"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Maximum number of concurrent source refreshes"`
	DefaultSleep     int64  `long:"default-sleep" env:"DEFAULT_SLEEP" default:"60000" description:"Scheduler sleep in ms when no source is due"`
	RefreshCooldown  int64  `long:"refresh-cooldown" env:"REFRESH_COOLDOWN" default:"1000" description:"Safety margin in ms added to the computed sleep"`
	DefaultItemLimit int    `long:"item-limit" env:"ITEM_LIMIT" default:"10" description:"Default number of articles returned per source"`
	RefreshFrequency int64  `long:"default-refresh-frequency" env:"DEFAULT_REFRESH_FREQUENCY" default:"300000" description:"Refresh cadence in ms assigned to newly discovered sources"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-fetch deadline in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Patishie/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:           raw.DBHost,
		DBPort:           raw.DBPort,
		DBUser:           raw.DBUser,
		DBPassword:       raw.DBPassword,
		DBName:           raw.DBName,
		Port:             raw.Port,
		BakeryURL:        raw.BakeryURL,
		SourcesDir:       raw.SourcesDir,
		WorkerCount:      raw.WorkerCount,
		DefaultSleep:     raw.DefaultSleep,
		RefreshCooldown:  raw.RefreshCooldown,
		DefaultItemLimit: raw.DefaultItemLimit,
		RefreshFrequency: raw.RefreshFrequency,
		FetchTimeout:     raw.FetchTimeout,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
