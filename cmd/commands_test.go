package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
	"github.com/aday913/notion-letterboxd-sync/internal/shared"
	tu "github.com/aday913/notion-letterboxd-sync/internal/testing"
	"github.com/aday913/notion-letterboxd-sync/internal/ui"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Notion.APIKey = "secret"
	config.Notion.DatabaseID = "1234-abcd"
	config.Letterboxd.Username = "filmfan"
	config.Letterboxd.PageDelay = shared.Duration{}
	config.Letterboxd.ItemDelay = shared.Duration{}
	config.Letterboxd.RenderServices = false
	config.History.Path = filepath.Join(t.TempDir(), "history.db")
	return config
}

type testDeps struct {
	listing *tu.FakeListing
	details *tu.FakeDetails
	store   *tu.FakeStore
	opened  []string
}

func newTestRunner(t *testing.T, config *shared.Config, deps *testDeps) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	opts := RunnerOpts{
		Config:  config,
		Logger:  shared.NewLogger(io.Discard),
		Output:  output,
		Palette: ui.PlainPalette(),
		OpenURL: func(u string) error {
			deps.opened = append(deps.opened, u)
			return nil
		},
	}
	// leave unset fakes nil so the configured services are built
	if deps.listing != nil {
		opts.Listing = deps.listing
	}
	if deps.details != nil {
		opts.Details = deps.details
	}
	if deps.store != nil {
		opts.Store = deps.store
	}
	return NewRunner(opts), output
}

func newDeps(t *testing.T, pairs ...string) *testDeps {
	return &testDeps{
		listing: &tu.FakeListing{Collection: tu.NewWatchlist(t, pairs...)},
		details: &tu.FakeDetails{
			Genres:   map[string][]string{"heat": {"Crime", "Drama"}},
			Services: map[string][]string{"heat": {"Netflix", "Kanopy"}},
		},
		store: &tu.FakeStore{},
	}
}

func TestSyncCommand(t *testing.T) {
	t.Run("missing credentials stop before any request", func(t *testing.T) {
		config := testConfig(t)
		config.Notion.APIKey = ""
		deps := newDeps(t, "heat", "Heat")
		runner, _ := newTestRunner(t, config, deps)

		err := runApp(t, runner, "sync", "--quiet")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Fatalf("expected ErrMissingConfig, got %v", err)
		}
		if len(deps.listing.Calls) != 0 {
			t.Errorf("expected no watchlist request, got %v", deps.listing.Calls)
		}
	})

	t.Run("writes new films and records the run", func(t *testing.T) {
		deps := newDeps(t, "heat", "Heat", "alien", "Alien")
		deps.store.Titles = []string{"Alien"}
		runner, output := newTestRunner(t, testConfig(t), deps)

		if err := runApp(t, runner, "sync", "--quiet"); err != nil {
			t.Fatalf("sync error = %v", err)
		}
		if len(deps.store.Created) != 1 || deps.store.Created[0].Title != "Heat" {
			t.Fatalf("expected only Heat to be created, got %+v", deps.store.Created)
		}
		if got := deps.store.Created[0].Sources; len(got) != 1 || got[0] != "Netflix" {
			t.Errorf("expected sources limited to the allow-list, got %v", got)
		}
		if !strings.Contains(output.String(), "Sync complete") {
			t.Errorf("expected summary, got:\n%s", output.String())
		}
		if want := "https://letterboxd.com/filmfan/watchlist/"; deps.listing.Calls[0] != want {
			t.Errorf("profile URL = %q, want %q", deps.listing.Calls[0], want)
		}

		output.Reset()
		if err := runApp(t, runner, "history", "show", "--json", "latest"); err != nil {
			t.Fatalf("history show error = %v", err)
		}
		var view runView
		if err := json.Unmarshal(output.Bytes(), &view); err != nil {
			t.Fatalf("decode history: %v\n%s", err, output.String())
		}
		if view.Status != models.RunSucceeded || view.Created != 1 || view.Sequence != 1 {
			t.Errorf("unexpected run %+v", view)
		}
		if len(view.Items) != 1 || view.Items[0].Slug != "heat" || view.Items[0].PageID != "page-Heat" {
			t.Errorf("unexpected items %+v", view.Items)
		}

		output.Reset()
		if err := runApp(t, runner, "sync", "--quiet"); err != nil {
			t.Fatalf("second sync error = %v", err)
		}
		if len(deps.store.Created) != 1 {
			t.Errorf("expected the second run to write nothing, got %d records", len(deps.store.Created))
		}

		output.Reset()
		if err := runApp(t, runner, "history", "list"); err != nil {
			t.Fatalf("history list error = %v", err)
		}
		if strings.Count(output.String(), "succeeded") != 2 {
			t.Errorf("expected two runs listed:\n%s", output.String())
		}
	})

	t.Run("dry run prints planned records", func(t *testing.T) {
		deps := newDeps(t, "heat", "Heat")
		runner, output := newTestRunner(t, testConfig(t), deps)

		if err := runApp(t, runner, "sync", "--dry-run", "--quiet", "--format", "json"); err != nil {
			t.Fatalf("sync error = %v", err)
		}
		if len(deps.store.Created) != 0 {
			t.Errorf("expected no writes, got %d", len(deps.store.Created))
		}
		out := output.String()
		if !strings.Contains(out, "Dry run complete") || !strings.Contains(out, `"title": "Heat"`) {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("strict mode reports write failures", func(t *testing.T) {
		deps := newDeps(t, "heat", "Heat")
		deps.store.CreateErrs = map[string]error{"Heat": errors.New("HTTP 400")}

		runner, _ := newTestRunner(t, testConfig(t), deps)
		if err := runApp(t, runner, "sync", "--quiet"); err != nil {
			t.Errorf("expected a lenient run to succeed, got %v", err)
		}

		runner, output := newTestRunner(t, testConfig(t), deps)
		err := runApp(t, runner, "sync", "--quiet", "--strict")
		if !errors.Is(err, shared.ErrPartialFailure) {
			t.Errorf("expected ErrPartialFailure, got %v", err)
		}
		if !strings.Contains(output.String(), "Heat (heat) [create]") {
			t.Errorf("expected the failure in the summary:\n%s", output.String())
		}
	})

	t.Run("open launches the database URL", func(t *testing.T) {
		deps := newDeps(t)
		runner, _ := newTestRunner(t, testConfig(t), deps)

		if err := runApp(t, runner, "sync", "--quiet", "--open"); err != nil {
			t.Fatalf("sync error = %v", err)
		}
		if len(deps.opened) != 1 || deps.opened[0] != "https://www.notion.so/1234abcd" {
			t.Errorf("opened = %v", deps.opened)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), newDeps(t))
		if err := runApp(t, runner, "sync", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func letterboxdServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/filmfan/watchlist/":
			w.Write([]byte(`<ul>
				<li class="poster-container"><div data-film-slug="heat"><img alt="Heat"></div></li>
				<li class="poster-container"><div data-film-slug="past-lives"><img alt="Past Lives"></div></li>
			</ul>`))
		case "/film/heat/":
			w.Write([]byte(`<div id="tab-genres"><h3><span>Genres</span></h3>
				<div class="text-sluglist"><p><a class="text-slug">Crime</a><a class="text-slug">Drama</a></p></div></div>`))
		case "/film/past-lives/":
			w.Write([]byte(`<div id="tab-genres"><h3><span>Genre</span></h3>
				<div class="text-sluglist"><p><a class="text-slug">Romance</a></p></div></div>`))
		default:
			w.Write([]byte(`<ul></ul>`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWatchlistCommand(t *testing.T) {
	t.Run("scrapes and enriches the watchlist", func(t *testing.T) {
		config := testConfig(t)
		config.Letterboxd.BaseURL = letterboxdServer(t).URL
		runner, output := newTestRunner(t, config, &testDeps{})

		if err := runApp(t, runner, "watchlist", "--enrich", "--skip-services", "--format", "csv"); err != nil {
			t.Fatalf("watchlist error = %v", err)
		}
		out := output.String()
		for _, want := range []string{"heat", "Crime; Drama", "past-lives", "Romance"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("writes to a file", func(t *testing.T) {
		deps := newDeps(t, "heat", "Heat")
		runner, output := newTestRunner(t, testConfig(t), deps)
		path := filepath.Join(t.TempDir(), "watchlist.md")

		if err := runApp(t, runner, "watchlist", "--format", "markdown", "--output", path); err != nil {
			t.Fatalf("watchlist error = %v", err)
		}
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "# filmfan's watchlist") || !strings.Contains(content, "**Heat**") {
			t.Errorf("unexpected file content:\n%s", content)
		}
		if !strings.Contains(output.String(), "Saved 1 films") {
			t.Errorf("unexpected output %q", output.String())
		}
		if len(deps.details.GenreCalls) != 0 {
			t.Error("expected no lookups without --enrich")
		}
	})

	t.Run("save writes to the working directory", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustChdir(t, dir)
		runner, _ := newTestRunner(t, testConfig(t), newDeps(t, "heat", "Heat"))

		if err := runApp(t, runner, "watchlist", "--save", "--format", "json"); err != nil {
			t.Fatalf("watchlist error = %v", err)
		}
		content := tu.MustReadFile(t, filepath.Join(dir, "watchlist.json"))
		if !strings.Contains(content, `"slug": "heat"`) {
			t.Errorf("unexpected file content:\n%s", content)
		}
	})

	t.Run("needs only a username", func(t *testing.T) {
		config := testConfig(t)
		config.Notion.APIKey = ""
		config.Letterboxd.Username = ""
		runner, _ := newTestRunner(t, config, newDeps(t))

		if err := runApp(t, runner, "watchlist"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestExistingCommand(t *testing.T) {
	t.Run("prints titles as JSON", func(t *testing.T) {
		deps := newDeps(t)
		deps.store.Titles = []string{"Alien", "Heat"}
		runner, output := newTestRunner(t, testConfig(t), deps)

		if err := runApp(t, runner, "existing", "--json"); err != nil {
			t.Fatalf("existing error = %v", err)
		}
		if got := output.String(); got != `["Alien","Heat"]`+"\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		deps := newDeps(t)
		deps.store.ExistingErr = shared.ErrUnexpectedStatus
		runner, _ := newTestRunner(t, testConfig(t), deps)

		if err := runApp(t, runner, "existing"); !errors.Is(err, shared.ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		runner, output := newTestRunner(t, testConfig(t), newDeps(t))

		if err := runApp(t, runner, "history", "list"); err != nil {
			t.Fatalf("history list error = %v", err)
		}
		if !strings.Contains(output.String(), "No sync runs recorded yet.") {
			t.Errorf("got %q", output.String())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), newDeps(t))

		for _, ref := range []string{"99", "no-such-id", "latest"} {
			if err := runApp(t, runner, "history", "show", ref); !errors.Is(err, shared.ErrRunNotFound) {
				t.Errorf("show %s: expected ErrRunNotFound, got %v", ref, err)
			}
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, output := newTestRunner(t, nil, &testDeps{})

		if err := runApp(t, runner, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("setup config error = %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Configuration written") {
			t.Errorf("got %q", output.String())
		}

		if err := runApp(t, runner, "--config", path, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for an existing file, got %v", err)
		}
		if err := runApp(t, runner, "--config", path, "setup", "config", "--force"); err != nil {
			t.Errorf("expected --force to overwrite, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		config := testConfig(t)
		runner, _ := newTestRunner(t, config, &testDeps{})

		if err := runApp(t, runner, "setup", "database"); err != nil {
			t.Fatalf("setup database error = %v", err)
		}
		tu.AssertFileExists(t, config.History.Path)
	})

	t.Run("letterboxd", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "auth", "letterboxd.json")
		runner, output := newTestRunner(t, testConfig(t), &testDeps{})

		curl := `curl 'https://letterboxd.com/filmfan/watchlist/' -H 'accept: text/html' -b 'cf_clearance=abc'`
		if err := runApp(t, runner, "setup", "letterboxd", "--curl", curl, "--output", path); err != nil {
			t.Fatalf("setup letterboxd error = %v", err)
		}

		headers, err := shared.LoadBrowserHeaders(path)
		if err != nil {
			t.Fatalf("LoadBrowserHeaders() error = %v", err)
		}
		if headers.Cookie != "cf_clearance=abc" || headers.Headers["accept"] != "text/html" {
			t.Errorf("unexpected headers %+v", headers)
		}
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}
		if !strings.Contains(output.String(), "and cookies") {
			t.Errorf("got %q", output.String())
		}
	})

	t.Run("letterboxd needs a source", func(t *testing.T) {
		runner, _ := newTestRunner(t, testConfig(t), &testDeps{})

		if err := runApp(t, runner, "setup", "letterboxd"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runApp(t, runner, "setup", "letterboxd", "--curl", "curl x", "--curl-file", "x.sh"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
