package store

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/stretchr/testify/require"
)

// fakeContents emulates the subset of the GitHub contents API the store uses.
type fakeContents struct {
	mu       sync.Mutex
	content  []byte
	sha      string
	inline   bool
	commits  []putContents
	refs     []string
	authSeen string
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authSeen = r.Header.Get("Authorization")
	if r.URL.Path != "/repos/acme/audiencias/contents/data/tv_ratings.json" {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f.refs = append(f.refs, r.URL.Query().Get("ref"))
		if f.content == nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		if r.Header.Get("Accept") == mediaRaw {
			w.Write(f.content)
			return
		}
		resp := map[string]any{"type": "file", "sha": f.sha, "encoding": "none", "content": ""}
		if f.inline {
			enc := base64.StdEncoding.EncodeToString(f.content)
			var wrapped []string
			for len(enc) > 60 {
				wrapped = append(wrapped, enc[:60])
				enc = enc[60:]
			}
			resp["encoding"] = "base64"
			resp["content"] = strings.Join(append(wrapped, enc), "\n")
		}
		json.NewEncoder(w).Encode(resp)

	case http.MethodPut:
		var body putContents
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		if f.content != nil && body.SHA == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"Invalid request. \"sha\" wasn't supplied."}`))
			return
		}
		if f.content != nil && body.SHA != f.sha {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"data/tv_ratings.json does not match"}`))
			return
		}
		data, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			http.Error(w, `{"message":"bad content"}`, http.StatusBadRequest)
			return
		}
		status := http.StatusOK
		if f.content == nil {
			status = http.StatusCreated
		}
		sum := sha1.Sum(data)
		f.content, f.sha = data, hex.EncodeToString(sum[:])
		f.commits = append(f.commits, body)
		w.WriteHeader(status)
		w.Write([]byte(`{"content":{"sha":"` + f.sha + `"}}`))
	}
}

// state returns copies of what the fake recorded, under its lock.
func (f *fakeContents) state() (sha, auth string, commits []putContents, refs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sha, f.authSeen, append([]putContents(nil), f.commits...), append([]string(nil), f.refs...)
}

func newTestGitHub(t *testing.T, fake *fakeContents, branch string) *GitHub {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	g, err := NewGitHub(GitHubConfig{
		Token:  "s3cret",
		Repo:   "acme/audiencias",
		Path:   "data/tv_ratings.json",
		Branch: branch,
		APIURL: srv.URL,
		Now:    func() time.Time { return time.Date(2024, 9, 12, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return g
}

func TestGitHubCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	fake := &fakeContents{inline: true}
	g := newTestGitHub(t, fake, "")

	_, v, err := g.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, v)

	d := ratings.NewDataset()
	d.DailyData = append(d.DailyData, ratings.DailyRecord{
		Date:       "2024-09-11",
		LaRevuelta: ratings.Figures{Viewers: 1234567, Share: 12.5},
	})
	require.NoError(t, g.Save(ctx, d, ""))
	sha, auth, commits, _ := fake.state()
	require.Equal(t, "Bearer s3cret", auth)
	require.Len(t, commits, 1)
	require.Empty(t, commits[0].SHA)
	require.Equal(t, "Actualización de datos - 2024-09-12", commits[0].Message)

	loaded, v, err := g.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Version(sha), v)
	require.Equal(t, d.DailyData, loaded.DailyData)

	loaded.DailyData = append(loaded.DailyData, ratings.DailyRecord{Date: "2024-09-10"})
	require.NoError(t, g.Save(ctx, loaded, v))
	_, _, commits, _ = fake.state()
	require.Len(t, commits, 2)
	require.Equal(t, string(v), commits[1].SHA)
}

func TestGitHubConflicts(t *testing.T) {
	ctx := context.Background()
	fake := &fakeContents{inline: true, content: []byte(`{"dailyData":[]}`), sha: "abc"}
	g := newTestGitHub(t, fake, "")

	// Creating over an existing file.
	require.ErrorIs(t, g.Save(ctx, ratings.NewDataset(), ""), ErrConflict)
	// Updating from a stale version.
	require.ErrorIs(t, g.Save(ctx, ratings.NewDataset(), "stale"), ErrConflict)
	_, _, commits, _ := fake.state()
	require.Empty(t, commits)
}

func TestGitHubLargeFileFallsBackToRaw(t *testing.T) {
	fake := &fakeContents{
		content: []byte(`{"dailyData":[{"date":"2024-09-09","laRevuelta":{"viewers":1,"share":1},"elHormiguero":{"viewers":2,"share":2}}]}`),
		sha:     "def",
	}
	g := newTestGitHub(t, fake, "data")

	d, v, err := g.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Version("def"), v)
	require.Len(t, d.DailyData, 1)
	require.Equal(t, int64(2), d.DailyData[0].ElHormiguero.Viewers)
	_, _, _, refs := fake.state()
	require.Equal(t, []string{"data", "data"}, refs)
}

func TestGitHubServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	g, err := NewGitHub(GitHubConfig{Token: "t", Repo: "acme/audiencias", Path: "tv_ratings.json", APIURL: srv.URL})
	require.NoError(t, err)

	_, _, err = g.Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "boom")

	err = g.Save(context.Background(), ratings.NewDataset(), "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConflict)
}

func TestNewGitHubValidates(t *testing.T) {
	for _, cfg := range []GitHubConfig{
		{Repo: "acme/audiencias", Path: "x.json"},
		{Token: "t", Repo: "audiencias", Path: "x.json"},
		{Token: "t", Repo: "acme/a/b", Path: "x.json"},
		{Token: "t", Repo: "acme/audiencias"},
	} {
		_, err := NewGitHub(cfg)
		require.Error(t, err, "%+v", cfg)
	}
}
