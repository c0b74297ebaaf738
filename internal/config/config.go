package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"RegSonar/internal/domain"
	"RegSonar/internal/relevance"
)

const (
	configPathEnv = "REGSONAR_CONFIG"
	databaseEnv   = "REGSONAR_DB"
	logLevelEnv   = "REGSONAR_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Database DatabaseConfig  `yaml:"database"`
	HTTP     HTTPConfig      `yaml:"http"`
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Extract  ExtractConfig   `yaml:"extract"`
	LawWatch LawWatchConfig  `yaml:"lawWatch"`
	Sources  []SourceConfig  `yaml:"sources"`
	Keywords []KeywordConfig `yaml:"keywords"`
	Laws     []LawConfig     `yaml:"laws"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig points at the SQLite file backing the dedup store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig is shared by every fetcher and the document extractor.
type HTTPConfig struct {
	UserAgent      string `yaml:"userAgent"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	RetryMax       int    `yaml:"retryMax"`
}

// Timeout resolves the per-request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// PipelineConfig bounds one batch run.
type PipelineConfig struct {
	Concurrency       int     `yaml:"concurrency"`
	BudgetSeconds     int     `yaml:"budgetSeconds"`
	MinScore          float64 `yaml:"minScore"`
	MaxScore          float64 `yaml:"maxScore"`
	MaxItemsPerSource int     `yaml:"maxItemsPerSource"`
}

// Budget resolves the batch wall-clock budget; zero disables it.
func (p PipelineConfig) Budget() time.Duration {
	return time.Duration(p.BudgetSeconds) * time.Second
}

// ExtractConfig caps document downloads.
type ExtractConfig struct {
	MaxBytes int64 `yaml:"maxBytes"`
	MaxPages int   `yaml:"maxPages"`
}

// LawWatchConfig tunes the statute change radar.
type LawWatchConfig struct {
	ChangeThresholdPercent float64 `yaml:"changeThresholdPercent"`
}

// SourceConfig describes one upstream endpoint.
type SourceConfig struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel"`
	Kind    string            `yaml:"kind"`
	Bias    float64           `yaml:"bias"`
	Options map[string]string `yaml:"options"`
}

// KeywordConfig is one weighted phrase of the relevance model.
type KeywordConfig struct {
	Term     string  `yaml:"term"`
	Weight   float64 `yaml:"weight"`
	Category string  `yaml:"category"`
}

// LawConfig is one statute page monitored for text drift.
type LawConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (path argument, falling back to the
// REGSONAR_CONFIG env var), applies environment overrides and validates.
// Validation failures surface as *domain.ConfigError.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.NewConfigError("cannot read %s: %v", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, domain.NewConfigError("cannot parse %s: %v", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return domain.NewConfigError("database path is empty")
	}
	if len(c.Sources) == 0 {
		return domain.NewConfigError("no sources configured")
	}
	if len(c.Keywords) == 0 {
		return domain.NewConfigError("no keywords configured")
	}

	ids := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return domain.NewConfigError("source %q has empty id", src.Name)
		}
		if _, dup := ids[src.ID]; dup {
			return domain.NewConfigError("duplicate source id %q", src.ID)
		}
		ids[src.ID] = struct{}{}

		if src.URL == "" {
			return domain.NewConfigError("source %q has empty url", src.ID)
		}
		if !domain.KnownChannel(domain.Channel(src.Channel)) {
			return domain.NewConfigError("source %q has unknown channel %q", src.ID, src.Channel)
		}
		if !domain.KnownFetchKind(domain.FetchKind(src.Kind)) {
			return domain.NewConfigError("source %q has unknown kind %q", src.ID, src.Kind)
		}
		if src.Bias < 0 {
			return domain.NewConfigError("source %q has negative bias", src.ID)
		}
	}

	for _, kw := range c.Keywords {
		if kw.Term == "" {
			return domain.NewConfigError("keyword with empty term")
		}
		if kw.Weight <= 0 {
			return domain.NewConfigError("keyword %q has non-positive weight", kw.Term)
		}
	}

	for _, law := range c.Laws {
		if law.Name == "" || law.URL == "" {
			return domain.NewConfigError("law entry %q needs both name and url", law.Name)
		}
	}

	return nil
}

// DomainSources converts the configured sources into domain values, in
// configured order.
func (c *Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		out = append(out, domain.Source{
			ID:      src.ID,
			Name:    src.Name,
			URL:     src.URL,
			Channel: domain.Channel(src.Channel),
			Kind:    domain.FetchKind(src.Kind),
			Bias:    src.Bias,
			Options: src.Options,
		})
	}
	return out
}

// KeywordTable converts configured keywords for the scorer.
func (c *Config) KeywordTable() []relevance.Keyword {
	out := make([]relevance.Keyword, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		out = append(out, relevance.Keyword{Term: kw.Term, Weight: kw.Weight, Category: kw.Category})
	}
	return out
}

// DomainLaws converts the monitored statute pages.
func (c *Config) DomainLaws() []domain.Law {
	out := make([]domain.Law, 0, len(c.Laws))
	for _, law := range c.Laws {
		out = append(out, domain.Law{Name: law.Name, URL: law.URL})
	}
	return out
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "regsonar.db"},
		HTTP: HTTPConfig{
			UserAgent:      "RegSonar/1.0 (regulatory monitoring)",
			TimeoutSeconds: 30,
			RetryMax:       2,
		},
		Pipeline: PipelineConfig{
			Concurrency:       4,
			BudgetSeconds:     300,
			MinScore:          15,
			MaxScore:          100,
			MaxItemsPerSource: 25,
		},
		Extract: ExtractConfig{
			MaxBytes: 10 << 20,
			MaxPages: 10,
		},
		LawWatch: LawWatchConfig{ChangeThresholdPercent: 0.5},
		Sources: []SourceConfig{
			{
				ID:      "stortinget-saker",
				Name:    "Stortinget saker og horinger",
				URL:     "https://data.stortinget.no/eksport/saker?sesjonid={sesjon}",
				Channel: string(domain.ChannelParliament),
				Kind:    string(domain.KindAPI),
			},
			{
				ID:      "regjeringen-klima",
				Name:    "Regjeringen horinger: klima og miljo",
				URL:     "https://www.regjeringen.no/no/dokument/hoyringar/id1763/?ownerid=668",
				Channel: string(domain.ChannelGovernment),
				Kind:    string(domain.KindListing),
				Options: map[string]string{"selector": "a[href*='/hoeringer/']"},
			},
			{
				ID:      "forbrukertilsynet",
				Name:    "Forbrukertilsynet",
				URL:     "https://www.forbrukertilsynet.no/feed",
				Channel: string(domain.ChannelIndustry),
				Kind:    string(domain.KindFeed),
			},
			{
				ID:      "efta-eea",
				Name:    "EFTA/EEA notices",
				URL:     "https://www.efta.int/rss.xml",
				Channel: string(domain.ChannelEUEEA),
				Kind:    string(domain.KindFeed),
			},
		},
		Keywords: defaultKeywords(),
		Laws: []LawConfig{
			{Name: "Apenhetsloven", URL: "https://lovdata.no/dokument/NL/lov/2021-06-18-99"},
			{Name: "Produktkontrolloven", URL: "https://lovdata.no/dokument/NL/lov/1976-06-11-79"},
			{Name: "Byggevareforskriften (DOK)", URL: "https://lovdata.no/dokument/SF/forskrift/2013-12-17-1579"},
			{Name: "TEK17", URL: "https://lovdata.no/dokument/SF/forskrift/2017-06-19-840"},
		},
	}
}

func defaultKeywords() []KeywordConfig {
	return []KeywordConfig{
		{Term: "byggevare", Weight: 10, Category: "core"},
		{Term: "trelast", Weight: 8, Category: "core"},
		{Term: "detaljhandel", Weight: 5, Category: "retail"},
		{Term: "varehandel", Weight: 5, Category: "retail"},
		{Term: "espr", Weight: 15, Category: "eu-core"},
		{Term: "ecodesign", Weight: 12, Category: "eu-core"},
		{Term: "digitalt produktpass", Weight: 15, Category: "traceability"},
		{Term: "produktpass", Weight: 12, Category: "traceability"},
		{Term: "csrd", Weight: 15, Category: "reporting"},
		{Term: "csddd", Weight: 15, Category: "due-diligence"},
		{Term: "barekraftsrapportering", Weight: 12, Category: "reporting"},
		{Term: "green claims", Weight: 15, Category: "marketing"},
		{Term: "gronnvasking", Weight: 12, Category: "marketing"},
		{Term: "ppwr", Weight: 12, Category: "packaging"},
		{Term: "emballasje", Weight: 10, Category: "packaging"},
		{Term: "engangsplast", Weight: 10, Category: "packaging"},
		{Term: "produsentansvar", Weight: 10, Category: "packaging"},
		{Term: "eudr", Weight: 12, Category: "deforestation"},
		{Term: "avskoging", Weight: 10, Category: "deforestation"},
		{Term: "sporbarhet", Weight: 10, Category: "traceability"},
		{Term: "miljodeklarasjon", Weight: 10, Category: "sustainability"},
		{Term: "epd", Weight: 10, Category: "sustainability"},
		{Term: "sirkular okonomi", Weight: 8, Category: "circular-economy"},
		{Term: "ombruk", Weight: 8, Category: "circular-economy"},
		{Term: "reach", Weight: 10, Category: "chemicals"},
		{Term: "pfas", Weight: 12, Category: "chemicals"},
		{Term: "mikroplast", Weight: 10, Category: "chemicals"},
		{Term: "apenhetsloven", Weight: 12, Category: "compliance"},
		{Term: "aktsomhetsvurdering", Weight: 10, Category: "compliance"},
		{Term: "tek17", Weight: 10, Category: "building"},
		{Term: "byggteknisk", Weight: 8, Category: "building"},
		{Term: "horingsfrist", Weight: 15, Category: "deadline"},
		{Term: "ikrafttredelse", Weight: 12, Category: "deadline"},
		{Term: "trer i kraft", Weight: 12, Category: "deadline"},
		{Term: "forbud", Weight: 12, Category: "legal"},
		{Term: "overtredelsesgebyr", Weight: 10, Category: "legal"},
	}
}
