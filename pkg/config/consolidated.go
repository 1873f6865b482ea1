// Package config provides consolidated configuration structures and defaults for Shelfline.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

const (
	// EnvironmentProduction is the default runtime environment
	EnvironmentProduction = "production"

	// EnvironmentDevelopment relaxes caching and enables file watching
	EnvironmentDevelopment = "development"
)

// ShelflineConfig is the root configuration structure for the whole application
type ShelflineConfig struct {
	// Environment is either "production" or "development"
	Environment string `yaml:"environment" json:"environment" validate:"oneof=production development"`

	// Site contains site-wide settings such as the default language
	Site SiteConfig `yaml:"site" json:"site"`

	// Proxy configures the outbound HTTP proxy
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// HTTP contains defaults for outbound HTTP clients
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Social contains tagging and list settings
	Social SocialConfig `yaml:"social" json:"social"`

	// Content contains content enrichment settings
	Content ContentConfig `yaml:"content" json:"content"`

	// DPLA contains Digital Public Library of America API settings
	DPLA DPLAConfig `yaml:"dpla" json:"dpla"`

	// WorldCat contains WorldCat settings
	WorldCat WorldCatConfig `yaml:"worldcat" json:"worldcat"`

	// Facebook contains Facebook login settings
	Facebook FacebookConfig `yaml:"facebook" json:"facebook"`

	// Shibboleth contains Shibboleth login settings
	Shibboleth ShibbolethConfig `yaml:"shibboleth" json:"shibboleth"`

	// Auth selects and configures authentication strategies
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Catalog configures the ILS connection
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// SearchTabs lists the search tabs in display order
	SearchTabs []SearchTabConfig `yaml:"searchTabs" json:"searchTabs"`

	// SearchTabsFilters maps a tab id to the hidden filters it applies
	SearchTabsFilters map[string][]string `yaml:"searchTabsFilters" json:"searchTabsFilters"`

	// SearchTabsPermissions maps a tab id to the permission required to see it
	SearchTabsPermissions map[string]string `yaml:"searchTabsPermissions" json:"searchTabsPermissions"`

	// Facets contains facet sections used by the recommendation modules
	Facets FacetsConfig `yaml:"facets" json:"facets"`

	// MapSelection configures the map selection recommendation module
	MapSelection MapSelectionConfig `yaml:"mapSelection" json:"mapSelection"`

	// Recommendations maps a backend or tab id to the recommendation module
	// specs ("Name:settings") its searches run. Requests may only pick from these.
	Recommendations map[string][]string `yaml:"recommendations" json:"recommendations" validate:"dive,dive,required"`

	// Backends maps a backend identifier (e.g. "Solr", "Summon") to its connection settings
	Backends map[string]BackendConfig `yaml:"backends" json:"backends" validate:"dive"`

	// Cache configures the cache manager
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Database configures the database adapter
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Session configures session storage
	Session SessionConfig `yaml:"session" json:"session"`

	// Translator configures language file lookup
	Translator TranslatorConfig `yaml:"translator" json:"translator"`

	// Observability contains metrics, logging, and server configuration
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SiteConfig contains site-wide settings
type SiteConfig struct {
	// Title is the site title
	Title string `yaml:"title" json:"title"`

	// URL is the public base URL
	URL string `yaml:"url" json:"url"`

	// Language is the default locale
	Language string `yaml:"language" json:"language" validate:"required"`

	// ServerAddress is the address reported to services that want the server IP
	ServerAddress string `yaml:"serverAddress" json:"serverAddress"`
}

// ProxyConfig configures the outbound HTTP proxy. Port and type are only
// honoured when a host is set.
type ProxyConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	Type string `yaml:"type" json:"type" validate:"omitempty,oneof=http https socks5"`
}

// HTTPConfig contains defaults for outbound HTTP clients
type HTTPConfig struct {
	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`

	// UserAgent is sent with every request
	UserAgent string `yaml:"userAgent" json:"userAgent"`

	// RateLimit is the sustained requests per second per client (0 disables limiting)
	RateLimit float64 `yaml:"rateLimit" json:"rateLimit" validate:"gte=0"`

	// Burst is the rate limiter burst size
	Burst int `yaml:"burst" json:"burst" validate:"gte=0"`

	// MaxFailures is the number of consecutive failures that opens the circuit breaker
	MaxFailures uint32 `yaml:"maxFailures" json:"maxFailures"`

	// BreakerTimeout is how long an open breaker waits before probing again
	BreakerTimeout time.Duration `yaml:"breakerTimeout" json:"breakerTimeout" validate:"gte=0"`
}

// SocialConfig contains tagging and list settings
type SocialConfig struct {
	// MaxTagLength truncates user tags; 0 means use the default
	MaxTagLength int `yaml:"maxTagLength" json:"maxTagLength" validate:"gte=0"`

	// Tags is "enabled" or "disabled"
	Tags string `yaml:"tags" json:"tags" validate:"omitempty,oneof=enabled disabled"`

	// Lists is "enabled" or "disabled"
	Lists string `yaml:"lists" json:"lists" validate:"omitempty,oneof=enabled disabled"`
}

// ContentConfig contains content enrichment settings
type ContentConfig struct {
	// Authors lists the author biography sources (e.g. "Wikipedia")
	Authors string `yaml:"authors" json:"authors"`

	// EuropeanaAPI is the Europeana API key
	EuropeanaAPI string `yaml:"europeanaAPI" json:"europeanaAPI"`

	// EuropeanaURL is the Europeana search endpoint
	EuropeanaURL string `yaml:"europeanaURL" json:"europeanaURL"`

	// WikipediaURL is the Wikipedia REST API base, "{lang}" is replaced by the language
	WikipediaURL string `yaml:"wikipediaURL" json:"wikipediaURL"`
}

// DPLAConfig contains DPLA settings
type DPLAConfig struct {
	APIKey string `yaml:"apiKey" json:"apiKey"`
	URL    string `yaml:"url" json:"url"`
}

// WorldCatConfig contains WorldCat settings
type WorldCatConfig struct {
	// ID is the WorldCat API key
	ID string `yaml:"id" json:"id"`

	// IdentitiesURL is the base URL of the WorldCat Identities service
	IdentitiesURL string `yaml:"identitiesURL" json:"identitiesURL"`

	// LimitCodes restricts results to the given OCLC symbols
	LimitCodes string `yaml:"limitCodes" json:"limitCodes"`
}

// FacebookConfig contains Facebook login settings
type FacebookConfig struct {
	AppID       string `yaml:"appId" json:"appId"`
	Secret      string `yaml:"secret" json:"secret"`
	RedirectURL string `yaml:"redirectURL" json:"redirectURL"`
	GraphURL    string `yaml:"graphURL" json:"graphURL"`
}

// ShibbolethConfig contains Shibboleth login settings
type ShibbolethConfig struct {
	// UsernameHeader is the request header carrying the username
	UsernameHeader string `yaml:"usernameHeader" json:"usernameHeader"`

	// SessionIDHeader is the request header carrying the Shibboleth session id
	SessionIDHeader string `yaml:"sessionIDHeader" json:"sessionIDHeader"`

	// LoginURL is the Shibboleth session initiator
	LoginURL string `yaml:"loginURL" json:"loginURL"`

	// Attributes maps user fields (firstname, lastname, email, cat_username) to headers
	Attributes map[string]string `yaml:"attributes" json:"attributes"`
}

// AuthConfig selects and configures authentication strategies
type AuthConfig struct {
	// Method is the authentication plugin used by the auth manager
	Method string `yaml:"method" json:"method"`

	// MultiAuthOrder lists the strategies MultiAuth tries, in order
	MultiAuthOrder []string `yaml:"multiAuthOrder" json:"multiAuthOrder"`

	// ChoiceAuthOptions lists the strategies ChoiceAuth may delegate to
	ChoiceAuthOptions []string `yaml:"choiceAuthOptions" json:"choiceAuthOptions"`
}

// CatalogConfig configures the ILS connection
type CatalogConfig struct {
	// Driver is "NoILS" or "Demo"
	Driver string `yaml:"driver" json:"driver" validate:"oneof=NoILS Demo"`

	// LoginTargets lists the catalog login targets for multi-backend setups
	LoginTargets []string `yaml:"loginTargets" json:"loginTargets"`

	// DefaultLoginTarget is used when a login does not name a target
	DefaultLoginTarget string `yaml:"defaultLoginTarget" json:"defaultLoginTarget"`

	// Patrons are the accounts known to the Demo driver
	Patrons []PatronConfig `yaml:"patrons" json:"patrons"`
}

// PatronConfig is a Demo driver account
type PatronConfig struct {
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"password"`
	ID        string `yaml:"id" json:"id"`
	FirstName string `yaml:"firstname" json:"firstname"`
	LastName  string `yaml:"lastname" json:"lastname"`
	Email     string `yaml:"email" json:"email"`
}

// SearchTabConfig is a single search tab
type SearchTabConfig struct {
	// ID is the search class id, optionally with a ":filter" suffix
	ID    string `yaml:"id" json:"id" validate:"required"`
	Label string `yaml:"label" json:"label"`
}

// FacetField pairs an index field with its display label
type FacetField struct {
	Field string `yaml:"field" json:"field" validate:"required"`
	Label string `yaml:"label" json:"label"`
}

// FacetsConfig holds facet sections keyed by section name (e.g. "Results", "ResultsTop")
type FacetsConfig struct {
	Sections map[string][]FacetField `yaml:"sections" json:"sections"`

	// Hierarchical lists the fields holding hierarchical values
	Hierarchical []string `yaml:"hierarchical" json:"hierarchical"`

	// Visual lists the pivot fields for the visual facets module
	Visual []string `yaml:"visual" json:"visual"`

	// Limit is the maximum number of values requested per facet
	Limit int `yaml:"limit" json:"limit" validate:"gte=0"`
}

// Section returns the named facet section, or nil
func (f *FacetsConfig) Section(name string) []FacetField {
	if f.Sections == nil {
		return nil
	}
	return f.Sections[name]
}

// IsHierarchical reports whether field holds hierarchical values
func (f *FacetsConfig) IsHierarchical(field string) bool {
	for _, h := range f.Hierarchical {
		if h == field {
			return true
		}
	}
	return false
}

// MapSelectionConfig configures the map selection module
type MapSelectionConfig struct {
	// DefaultCoordinates is "west, east, north, south"
	DefaultCoordinates string `yaml:"defaultCoordinates" json:"defaultCoordinates"`

	// GeoField is the index field holding coordinates
	GeoField string `yaml:"geoField" json:"geoField"`

	// Height is the map height in pixels
	Height int `yaml:"height" json:"height"`
}

// BackendConfig configures a search backend
type BackendConfig struct {
	// Type is the response dialect: "solr" or "summon"
	Type string `yaml:"type" json:"type" validate:"oneof=solr summon"`

	// URL is the backend base URL
	URL string `yaml:"url" json:"url" validate:"required,url"`
}

// CacheConfig configures the cache manager
type CacheConfig struct {
	// Dir is the root cache directory
	Dir string `yaml:"dir" json:"dir" validate:"required"`

	// TTL is the default lifetime of cached entries
	TTL time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`

	// PurgeSchedule is a 5-field cron expression for expired entry cleanup (empty disables)
	PurgeSchedule string `yaml:"purgeSchedule" json:"purgeSchedule"`
}

// DatabaseConfig configures the database adapter
type DatabaseConfig struct {
	// Driver is the database/sql driver name
	Driver string `yaml:"driver" json:"driver" validate:"oneof=sqlite3"`

	// DSN is the data source name
	DSN string `yaml:"dsn" json:"dsn" validate:"required"`

	// MaxOpenConns limits open connections (0 means unlimited)
	MaxOpenConns int `yaml:"maxOpenConns" json:"maxOpenConns" validate:"gte=0"`
}

// SessionConfig configures session storage
type SessionConfig struct {
	// Type is "memory" or "database"
	Type string `yaml:"type" json:"type" validate:"oneof=memory database"`

	// CookieName is the session cookie name
	CookieName string `yaml:"cookieName" json:"cookieName" validate:"required"`

	// Lifetime is the idle lifetime of a session
	Lifetime time.Duration `yaml:"lifetime" json:"lifetime" validate:"gt=0"`
}

// TranslatorConfig configures language file lookup
type TranslatorConfig struct {
	// ApplicationDir holds the bundled languages/ directory
	ApplicationDir string `yaml:"applicationDir" json:"applicationDir"`

	// LocalDir holds the local override languages/ directory
	LocalDir string `yaml:"localDir" json:"localDir"`

	// Watch reloads language files when they change
	Watch bool `yaml:"watch" json:"watch"`
}

// ObservabilityConfig contains metrics, logging, and server configuration
type ObservabilityConfig struct {
	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Server configuration for the admin HTTP surface
	Server ServerConfig `yaml:"server" json:"server"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	// Enabled enables/disables metrics collection
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn warning error"`

	// Format is the log format (json, console)
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`

	// AddCaller adds caller information to logs
	AddCaller bool `yaml:"addCaller" json:"addCaller"`

	// Development enables development mode (pretty printing, etc.)
	Development bool `yaml:"development" json:"development"`
}

// ServerConfig configures the admin HTTP server
type ServerConfig struct {
	// Enabled enables/disables the server
	Enabled bool `yaml:"enabled" json:"enabled"`

	// BindAddress is the address to bind the server
	BindAddress string `yaml:"bindAddress" json:"bindAddress"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" validate:"gte=0"`
}

// DefaultConfig returns the default Shelfline configuration
func DefaultConfig() *ShelflineConfig {
	return &ShelflineConfig{
		Environment: EnvironmentProduction,
		Site: SiteConfig{
			Title:    "Library Catalog",
			URL:      "http://localhost:8080",
			Language: "en",
		},
		HTTP: HTTPConfig{
			Timeout:        30 * time.Second,
			UserAgent:      "Shelfline",
			RateLimit:      10,
			Burst:          20,
			MaxFailures:    5,
			BreakerTimeout: 60 * time.Second,
		},
		Social: SocialConfig{
			Tags:  "enabled",
			Lists: "enabled",
		},
		Content: ContentConfig{
			EuropeanaURL: "https://api.europeana.eu/record/v2/search.json",
			WikipediaURL: "https://{lang}.wikipedia.org/api/rest_v1",
		},
		DPLA: DPLAConfig{
			URL: "https://api.dp.la/v2/items",
		},
		WorldCat: WorldCatConfig{
			IdentitiesURL: "http://worldcat.org/identities/search/PersonalIdentities",
		},
		Facebook: FacebookConfig{
			GraphURL: "https://graph.facebook.com",
		},
		Shibboleth: ShibbolethConfig{
			UsernameHeader:  "Remote-User",
			SessionIDHeader: "Shib-Session-Id",
		},
		Auth: AuthConfig{
			Method:         "ILS",
			MultiAuthOrder: []string{"ILS"},
		},
		Catalog: CatalogConfig{
			Driver: "NoILS",
		},
		SearchTabs: []SearchTabConfig{
			{ID: "Solr", Label: "Catalog"},
		},
		SearchTabsFilters:     map[string][]string{},
		SearchTabsPermissions: map[string]string{},
		Facets: FacetsConfig{
			Sections: map[string][]FacetField{
				"Results": {
					{Field: "format", Label: "Format"},
					{Field: "author_facet", Label: "Author"},
					{Field: "language", Label: "Language"},
				},
				"ResultsTop": {
					{Field: "topic_facet", Label: "Suggested Topics"},
				},
			},
			Hierarchical: []string{"building"},
			Visual:       []string{"callnumber-first", "topic_facet"},
			Limit:        30,
		},
		MapSelection: MapSelectionConfig{
			DefaultCoordinates: "-95, 30, 72, 15",
			GeoField:           "long_lat",
			Height:             320,
		},
		Recommendations: map[string][]string{
			"Solr": {"TopFacets:ResultsTop", "SideFacets:Results", "SwitchQuery"},
		},
		Backends: map[string]BackendConfig{
			"Solr": {Type: "solr", URL: "http://localhost:8983/solr/biblio"},
		},
		Cache: CacheConfig{
			Dir:           "/tmp/shelfline/cache",
			TTL:           24 * time.Hour,
			PurgeSchedule: "0 3 * * *",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "file:/tmp/shelfline/shelfline.db",
		},
		Session: SessionConfig{
			Type:       "memory",
			CookieName: "SHELFLINE_SESSION",
			Lifetime:   time.Hour,
		},
		Translator: TranslatorConfig{
			ApplicationDir: ".",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
			Logging: LoggingConfig{
				Level:     "info",
				Format:    "json",
				AddCaller: true,
			},
			Server: ServerConfig{
				Enabled:         true,
				BindAddress:     ":8080",
				ShutdownTimeout: 10 * time.Second,
			},
		},
	}
}

var structValidator = newValidator()

// newValidator reports field paths using the yaml names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration
func (c *ShelflineConfig) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s: failed %q validation (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	if _, err := language.Parse(c.Site.Language); err != nil {
		return fmt.Errorf("site.language %q: %w", c.Site.Language, err)
	}

	if c.Cache.PurgeSchedule != "" {
		if _, err := ParseSchedule(c.Cache.PurgeSchedule); err != nil {
			return fmt.Errorf("cache.purgeSchedule: %w", err)
		}
	}

	return nil
}

// ParseSchedule parses a 5-field cron expression
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// IsDevelopment reports whether the development environment is active
func (c *ShelflineConfig) IsDevelopment() bool {
	return c.Environment == EnvironmentDevelopment
}

// fieldPath turns "ShelflineConfig.cache.dir" into "cache.dir"
func fieldPath(namespace string) string {
	if _, rest, found := strings.Cut(namespace, "."); found {
		return rest
	}
	return namespace
}

// AccountCapabilities derives which account features are available
type AccountCapabilities struct {
	config *ShelflineConfig
}

// NewAccountCapabilities creates the capability view over cfg
func NewAccountCapabilities(cfg *ShelflineConfig) *AccountCapabilities {
	return &AccountCapabilities{config: cfg}
}

// IsAccountAvailable reports whether users can log in at all
func (a *AccountCapabilities) IsAccountAvailable() bool {
	method := strings.ToLower(a.config.Auth.Method)
	return method != "" && method != "none"
}

// TagSetting returns "enabled" or "disabled"
func (a *AccountCapabilities) TagSetting() string {
	if !a.IsAccountAvailable() {
		return "disabled"
	}
	if a.config.Social.Tags == "" {
		return "enabled"
	}
	return a.config.Social.Tags
}

// ListSetting returns "enabled" or "disabled"
func (a *AccountCapabilities) ListSetting() string {
	if !a.IsAccountAvailable() {
		return "disabled"
	}
	if a.config.Social.Lists == "" {
		return "enabled"
	}
	return a.config.Social.Lists
}
