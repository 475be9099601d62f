// Package config provides functionality for managing configuration options
// for the application using a .env file, command-line flags, a JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultSupabaseURL hosts the remote catalog and the identity functions.
	DefaultSupabaseURL = "https://hrlwqnqqgcxxezagyfah.supabase.co"

	defaultAddr        = "localhost:8080"
	defaultConfigFile  = "config.json"
	defaultRedirectURI = "http://127.0.0.1:8080/morpheus/patreon/callback"
)

// Patreon holds the OAuth client settings.
type Patreon struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	CampaignID   string `json:"campaign_id"`
	// StateSecret signs the OAuth state token.
	StateSecret string `json:"state_secret"`
}

// S3 points at an S3-compatible bucket holding the remote catalog. When
// Endpoint is empty the catalog is fetched over plain HTTP instead.
type S3 struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	UseSSL    bool   `json:"use_ssl"`
	PathStyle bool   `json:"path_style"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string. When empty, OAuth
	// sessions are kept in a file under DataDir.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// DataDir is the root of catalogs, images and local state.
	DataDir string `json:"data_dir"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	SupabaseURL    string `json:"supabase_url"`
	CatalogJSONURL string `json:"catalog_json_url"`
	CatalogBaseURL string `json:"catalog_base_url"`

	// MinTierCents is the pledge that unlocks the remote catalog.
	MinTierCents int `json:"min_tier_cents"`
	// Creators bypass the tier requirement.
	Creators []string `json:"creators"`

	Patreon Patreon `json:"patreon"`
	S3      S3      `json:"s3"`
}

// FunctionsURL is the base URL of the identity service functions.
func (o *Options) FunctionsURL() string {
	return strings.TrimRight(o.SupabaseURL, "/") + "/functions/v1"
}

// Load builds Options from args (without the program name) and getenv.
//
// Sources are applied in order, later ones winning: defaults, flags, the
// JSON config file, environment variables. A missing config file is not an
// error.
func Load(args []string, getenv func(string) string) (*Options, error) {
	o := &Options{}

	flags := flag.NewFlagSet("talentkeeper", flag.ContinueOnError)
	flags.StringVar(&o.Port, "a", defaultAddr, "run on ip:port server")
	flags.StringVar(&o.DatabaseDSN, "d", "", "db address")
	flags.StringVar(&o.Config, "config", defaultConfigFile, "path to config file")
	flags.StringVar(&o.Config, "c", defaultConfigFile, "path to config file (shorthand)")
	flags.StringVar(&o.DataDir, "data", ".", "data directory")
	flags.StringVar(&o.LogLevel, "log-level", "info", "log level")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}
	if err := o.loadFile(); err != nil {
		return nil, err
	}
	if err := o.applyEnv(getenv); err != nil {
		return nil, err
	}
	o.fillDerived()
	return o, nil
}

func (o *Options) loadFile() error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func (o *Options) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":        &o.Port,
		"DATABASE_DSN":          &o.DatabaseDSN,
		"DATA_DIR":              &o.DataDir,
		"LOG_LEVEL":             &o.LogLevel,
		"LOG_FILE":              &o.LogFile,
		"TLS_CERT":              &o.TLSCert,
		"TLS_KEY":               &o.TLSKey,
		"SUPABASE_URL":          &o.SupabaseURL,
		"CATALOG_JSON_URL":      &o.CatalogJSONURL,
		"CATALOG_BASE_URL":      &o.CatalogBaseURL,
		"PATREON_CLIENT_ID":     &o.Patreon.ClientID,
		"PATREON_CLIENT_SECRET": &o.Patreon.ClientSecret,
		"PATREON_REDIRECT_URI":  &o.Patreon.RedirectURI,
		"PATREON_CAMPAIGN_ID":   &o.Patreon.CampaignID,
		"OAUTH_STATE_SECRET":    &o.Patreon.StateSecret,
		"S3_ENDPOINT":           &o.S3.Endpoint,
		"S3_ACCESS_KEY":         &o.S3.AccessKey,
		"S3_SECRET_KEY":         &o.S3.SecretKey,
		"S3_REGION":             &o.S3.Region,
		"S3_BUCKET":             &o.S3.Bucket,
		"S3_KEY":                &o.S3.Key,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"S3_USE_SSL":    &o.S3.UseSSL,
		"S3_PATH_STYLE": &o.S3.PathStyle,
	}
	for key, dst := range bools {
		v := getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = b
	}

	if v := getenv("MIN_TIER_CENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MIN_TIER_CENTS: %w", err)
		}
		o.MinTierCents = n
	}
	if v := getenv("CREATOR_NAMES"); v != "" {
		o.Creators = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				o.Creators = append(o.Creators, name)
			}
		}
	}
	return nil
}

// fillDerived fills the URLs that default to locations under SupabaseURL.
func (o *Options) fillDerived() {
	if o.SupabaseURL == "" {
		o.SupabaseURL = DefaultSupabaseURL
	}
	if o.CatalogBaseURL == "" {
		o.CatalogBaseURL = strings.TrimRight(o.SupabaseURL, "/") + "/storage/v1/object/public/morpheus-catalog"
	}
	if o.CatalogJSONURL == "" {
		o.CatalogJSONURL = strings.TrimRight(o.CatalogBaseURL, "/") + "/catalog.json"
	}
	if o.Patreon.RedirectURI == "" {
		o.Patreon.RedirectURI = defaultRedirectURI
	}
}

// Parse loads a .env file if present, then parses the process arguments and
// environment. It exits on invalid configuration.
func Parse() *Options {
	_ = godotenv.Load()

	o, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return o
}
