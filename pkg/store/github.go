package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	DefaultAPIURL        = "https://api.github.com"
	DefaultCommitMessage = "Actualización de datos - %s"

	mediaJSON = "application/vnd.github+json"
	mediaRaw  = "application/vnd.github.raw"
)

// GitHubConfig locates a dataset file in a repository.
type GitHubConfig struct {
	Token string
	// Repo is "owner/name".
	Repo   string
	Path   string
	Branch string
	APIURL string
	// CommitMessage is a format string receiving the current date.
	CommitMessage string
	Timeout       time.Duration
	Now           func() time.Time
}

// GitHub keeps the dataset in a repository through the contents API. The
// blob SHA of the file is used as the Version.
type GitHub struct {
	cfg    GitHubConfig
	client *resty.Client
}

func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, errors.New("github token is required")
	}
	owner, name, ok := strings.Cut(cfg.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", cfg.Repo)
	}
	if cfg.Path == "" {
		return nil, errors.New("dataset path is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = DefaultCommitMessage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthScheme("Bearer").
		SetAuthToken(cfg.Token).
		SetHeader("X-GitHub-Api-Version", "2022-11-28").
		SetHeader("User-Agent", "audimetria")

	return &GitHub{cfg: cfg, client: client}, nil
}

func (g *GitHub) Location() string {
	if g.cfg.Branch != "" {
		return fmt.Sprintf("%s@%s:%s", g.cfg.Repo, g.cfg.Branch, g.cfg.Path)
	}
	return g.cfg.Repo + ":" + g.cfg.Path
}

func (g *GitHub) contentsPath() string {
	segments := strings.Split(strings.Trim(g.cfg.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/repos/" + g.cfg.Repo + "/contents/" + strings.Join(segments, "/")
}

func (g *GitHub) request(ctx context.Context, accept string) *resty.Request {
	req := g.client.R().SetContext(ctx).SetHeader("Accept", accept)
	if g.cfg.Branch != "" {
		req.SetQueryParam("ref", g.cfg.Branch)
	}
	return req
}

func (g *GitHub) Load(ctx context.Context) (*ratings.Dataset, Version, error) {
	res, err := g.request(ctx, mediaJSON).Get(g.contentsPath())
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", g.Location(), err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if !res.IsSuccess() {
		return nil, "", apiError(res)
	}

	meta := gjson.ParseBytes(res.Body())
	if t := meta.Get("type").String(); t != "" && t != "file" {
		return nil, "", fmt.Errorf("%s is a %s, not a file", g.Location(), t)
	}
	sha := meta.Get("sha").String()
	if sha == "" {
		return nil, "", fmt.Errorf("no sha in contents response for %s", g.Location())
	}

	var raw []byte
	if meta.Get("encoding").String() == "base64" && meta.Get("content").String() != "" {
		// The API wraps base64 content at 60 columns.
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(meta.Get("content").String(), "\n", ""))
		if err != nil {
			return nil, "", fmt.Errorf("decoding %s: %w", g.Location(), err)
		}
	} else {
		// Files over 1MB come back without inline content.
		rawRes, err := g.request(ctx, mediaRaw).Get(g.contentsPath())
		if err != nil {
			return nil, "", fmt.Errorf("fetching raw %s: %w", g.Location(), err)
		}
		if !rawRes.IsSuccess() {
			return nil, "", apiError(rawRes)
		}
		raw = rawRes.Body()
	}

	d, err := ratings.Decode(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", g.Location(), err)
	}
	return d, Version(sha), nil
}

type putContents struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

func (g *GitHub) Save(ctx context.Context, d *ratings.Dataset, v Version) error {
	data, err := ratings.Encode(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}

	body := putContents{
		Message: fmt.Sprintf(g.cfg.CommitMessage, g.cfg.Now().Format("2006-01-02")),
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     string(v),
		Branch:  g.cfg.Branch,
	}
	res, err := g.client.R().
		SetContext(ctx).
		SetHeader("Accept", mediaJSON).
		SetBody(body).
		Put(g.contentsPath())
	if err != nil {
		return fmt.Errorf("writing %s: %w", g.Location(), err)
	}

	switch res.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 for a stale sha, 422 when creating a file that already exists.
		return fmt.Errorf("%w: %s", ErrConflict, apiError(res))
	}
	return apiError(res)
}

func apiError(res *resty.Response) error {
	msg := gjson.GetBytes(res.Body(), "message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(res.Body()))
	}
	return fmt.Errorf("github API %s %s: %d %s", res.Request.Method, res.Request.URL, res.StatusCode(), msg)
}
