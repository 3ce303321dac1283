package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/audimetria/audimetria/pkg/dates"
	"github.com/audimetria/audimetria/pkg/store"
	"github.com/audimetria/audimetria/pkg/whttp"
	"github.com/spf13/viper"
)

// ErrMissing is wrapped when required settings are absent.
var ErrMissing = errors.New("missing required configuration")

// Viper keys.
const (
	KeyGitHubToken   = "github.token"
	KeyGitHubRepo    = "github.repo"
	KeyGitHubPath    = "github.path"
	KeyGitHubBranch  = "github.branch"
	KeyGitHubAPIURL  = "github.api-url"
	KeyCommitMessage = "github.commit-message"

	KeySourceURL  = "source.url"
	KeyStartDate  = "source.start-date"
	KeyWeekdays   = "source.weekdays"
	KeyUserAgent  = "source.user-agent"
	KeyTimeout    = "source.timeout"
	KeyRetries    = "source.retries"
	KeyRate       = "source.rate"
	KeyProxy      = "source.proxy"
	KeyMatchLR    = "match.la-revuelta"
	KeyMatchEH    = "match.el-hormiguero"
	KeyFirstWins  = "match.first-wins"
	KeyLocalPath  = "storage.local-path"
	KeyMirrorPath = "mirror.path"
)

// envNames keeps the variable names the job has always been configured with.
var envNames = map[string]string{
	KeyGitHubToken:   "GITHUB_TOKEN",
	KeyGitHubRepo:    "REPO_NAME",
	KeyGitHubPath:    "FILE_PATH",
	KeyGitHubBranch:  "GITHUB_BRANCH",
	KeyGitHubAPIURL:  "GITHUB_API_URL",
	KeyCommitMessage: "COMMIT_MESSAGE",
	KeySourceURL:     "DATA_SOURCE_URL",
	KeyStartDate:     "START_DATE",
	KeyWeekdays:      "SOURCE_WEEKDAYS",
	KeyUserAgent:     "USER_AGENT",
	KeyTimeout:       "HTTP_TIMEOUT",
	KeyRetries:       "HTTP_RETRIES",
	KeyRate:          "HTTP_RATE",
	KeyMatchLR:       "MATCH_LA_REVUELTA",
	KeyMatchEH:       "MATCH_EL_HORMIGUERO",
	KeyFirstWins:     "MATCH_FIRST_WINS",
	KeyLocalPath:     "LOCAL_DATASET",
	KeyMirrorPath:    "MIRROR_DB",
}

// Bind registers defaults and environment names on v.
func Bind(v *viper.Viper) {
	v.SetDefault(KeyGitHubPath, "tv_ratings.json")
	v.SetDefault(KeyGitHubAPIURL, store.DefaultAPIURL)
	v.SetDefault(KeyCommitMessage, store.DefaultCommitMessage)
	v.SetDefault(KeyStartDate, "2024-09-09")
	v.SetDefault(KeyWeekdays, "mon,tue,wed,thu")
	v.SetDefault(KeyUserAgent, whttp.DefaultUserAgent)
	v.SetDefault(KeyTimeout, "30s")
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyRate, 1.0)
	v.SetDefault(KeyMatchLR, "la revuelta")
	v.SetDefault(KeyMatchEH, "el hormiguero")
	v.SetDefault(KeyFirstWins, false)

	for key, env := range envNames {
		v.BindEnv(key, env)
	}
}

type GitHub struct {
	Token         string
	Repo          string
	Path          string
	Branch        string
	APIURL        string
	CommitMessage string
}

type Source struct {
	URL       string
	StartDate time.Time
	Weekdays  []time.Weekday
	UserAgent string
	Timeout   time.Duration
	Retries   int
	Rate      float64
	Proxy     string
}

type Match struct {
	LaRevuelta     string
	ElHormiguero   string
	FirstMatchWins bool
}

// Config is read once at start-up and handed to every component.
type Config struct {
	GitHub GitHub
	Source Source
	Match  Match
	// LocalPath, when set, keeps the dataset in a local file instead of GitHub.
	LocalPath  string
	MirrorPath string
}

// Load builds a Config from v. Every missing required key is reported at once.
func Load(v *viper.Viper) (Config, error) {
	return load(v, true)
}

// LoadSource is Load for commands that never touch the dataset: GitHub
// settings are read but not required.
func LoadSource(v *viper.Viper) (Config, error) {
	return load(v, false)
}

func load(v *viper.Viper, needStore bool) (Config, error) {
	cfg := Config{
		GitHub: GitHub{
			Token:         strings.TrimSpace(v.GetString(KeyGitHubToken)),
			Repo:          strings.TrimSpace(v.GetString(KeyGitHubRepo)),
			Path:          v.GetString(KeyGitHubPath),
			Branch:        v.GetString(KeyGitHubBranch),
			APIURL:        v.GetString(KeyGitHubAPIURL),
			CommitMessage: v.GetString(KeyCommitMessage),
		},
		Source: Source{
			URL:       strings.TrimSpace(v.GetString(KeySourceURL)),
			UserAgent: v.GetString(KeyUserAgent),
			Retries:   v.GetInt(KeyRetries),
			Rate:      v.GetFloat64(KeyRate),
			Proxy:     v.GetString(KeyProxy),
		},
		Match: Match{
			LaRevuelta:     v.GetString(KeyMatchLR),
			ElHormiguero:   v.GetString(KeyMatchEH),
			FirstMatchWins: v.GetBool(KeyFirstWins),
		},
		LocalPath:  v.GetString(KeyLocalPath),
		MirrorPath: v.GetString(KeyMirrorPath),
	}

	var missing []string
	if needStore && cfg.LocalPath == "" {
		if cfg.GitHub.Token == "" {
			missing = append(missing, envNames[KeyGitHubToken])
		}
		if cfg.GitHub.Repo == "" {
			missing = append(missing, envNames[KeyGitHubRepo])
		}
	}
	if cfg.Source.URL == "" {
		missing = append(missing, envNames[KeySourceURL])
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	var err error
	if cfg.Source.StartDate, err = dates.ParseISO(v.GetString(KeyStartDate)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", envNames[KeyStartDate], err)
	}
	if cfg.Source.Weekdays, err = dates.ParseWeekdays(v.GetString(KeyWeekdays)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", envNames[KeyWeekdays], err)
	}
	if cfg.Source.Timeout, err = time.ParseDuration(v.GetString(KeyTimeout)); err != nil || cfg.Source.Timeout <= 0 {
		return Config{}, fmt.Errorf("%s: invalid duration %q", envNames[KeyTimeout], v.GetString(KeyTimeout))
	}
	if cfg.Source.Retries < 0 || cfg.Source.Rate < 0 {
		return Config{}, fmt.Errorf("%s and %s must not be negative", envNames[KeyRetries], envNames[KeyRate])
	}
	return cfg, nil
}
