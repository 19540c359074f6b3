package gallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/teamsfx/tfx/internal/config"
)

const treeJSON = `{"tree":[
	{"path":"hello-world-bot","type":"tree"},
	{"path":"hello-world-bot/README.md","type":"blob"},
	{"path":"hello-world-bot/src/index.js","type":"blob"},
	{"path":"hello-world-bot/node_modules/x/index.js","type":"blob"},
	{"path":"other/README.md","type":"blob"}
]}`

const catalogJSON = `{"samples":[
	{"id":"hello-world-bot","title":"Hello World Bot","shortDescription":"A bot"},
	{"id":"external","title":"External","downloadUrlInfo":{"owner":"acme","repository":"samples","ref":"main","dir":"ext"}}
]}`

type fakeGitHub struct {
	*httptest.Server
	rawHits    atomic.Int32
	configHits atomic.Int32
	failOnce   atomic.Bool
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/repos/OfficeDev/TeamsFx-Samples/git/trees/dev", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "1" {
			t.Errorf("expected recursive=1, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, treeJSON)
	})
	mux.HandleFunc("/config.json", func(w http.ResponseWriter, r *http.Request) {
		f.configHits.Add(1)
		fmt.Fprint(w, catalogJSON)
	})
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		f.rawHits.Add(1)
		if f.failOnce.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "content of %s", strings.TrimPrefix(r.URL.Path, "/raw/"))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGitHub) client() *Client {
	return NewClient(config.SamplesConfig{
		ConfigURL:   f.URL + "/config.json",
		GitHubAPI:   f.URL + "/api",
		RawBaseURL:  f.URL + "/raw",
		Retries:     2,
		Concurrency: 4,
		Ignore:      []string{"**/node_modules/**"},
	}, f.Client())
}

func TestFileInfo(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client()

	info := SampleURLInfo{Owner: "OfficeDev", Repository: "TeamsFx-Samples", Ref: "dev", Dir: "hello-world-bot"}
	paths, prefix, err := c.FileInfo(context.Background(), info, 1)
	if err != nil {
		t.Fatalf("FileInfo: %v", err)
	}
	want := []string{"hello-world-bot/README.md", "hello-world-bot/src/index.js"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, paths)
	}
	if prefix != gh.URL+"/raw/OfficeDev/TeamsFx-Samples/dev/" {
		t.Errorf("unexpected prefix %q", prefix)
	}
}

func TestBuildFileTree_DownloadsWithRetry(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.failOnce.Store(true)
	c := gh.client()

	dst := t.TempDir()
	paths := []string{"hello-world-bot/README.md", "hello-world-bot/src/index.js"}
	prefix := gh.URL + "/raw/OfficeDev/TeamsFx-Samples/dev/"

	tree, err := c.BuildFileTree(context.Background(), prefix, paths, dst, "hello-world-bot", 2, 2)
	if err != nil {
		t.Fatalf("BuildFileTree: %v", err)
	}
	if gh.rawHits.Load() != 3 {
		t.Errorf("expected one retried download (3 hits), got %d", gh.rawHits.Load())
	}

	data, err := os.ReadFile(filepath.Join(dst, "hello-world-bot", "src", "index.js"))
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "content of OfficeDev/TeamsFx-Samples/dev/hello-world-bot/src/index.js" {
		t.Errorf("unexpected content %q", data)
	}

	if len(tree) != 2 || tree[0].Name != "README.md" || tree[1].Name != "src" {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if len(tree[1].Children) != 1 || tree[1].Children[0].Name != "index.js" {
		t.Errorf("unexpected src children %+v", tree[1].Children)
	}
}

func TestDownload_PathOutsideDir(t *testing.T) {
	c := NewClient(config.SamplesConfig{}, nil)
	err := c.Download(context.Background(), "http://unused/", []string{"other/x"}, t.TempDir(), "bot", 0, 1)
	if err == nil {
		t.Error("expected error for a path outside the relative dir")
	}
}

func TestDownloadURLInfo(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client()
	ctx := context.Background()

	info, err := c.DownloadURLInfo(ctx, "hello-world-bot")
	if err != nil {
		t.Fatalf("DownloadURLInfo: %v", err)
	}
	if info != (SampleURLInfo{Owner: "OfficeDev", Repository: "TeamsFx-Samples", Ref: "dev", Dir: "hello-world-bot"}) {
		t.Errorf("unexpected default info %+v", info)
	}

	info, err = c.DownloadURLInfo(ctx, "external")
	if err != nil {
		t.Fatalf("DownloadURLInfo: %v", err)
	}
	if info.Owner != "acme" || info.Dir != "ext" {
		t.Errorf("expected override, got %+v", info)
	}

	info, err = c.DownloadURLInfo(ctx, "missing")
	if err != nil {
		t.Fatalf("DownloadURLInfo for a sample outside the catalog: %v", err)
	}
	if info != (SampleURLInfo{Owner: "OfficeDev", Repository: "TeamsFx-Samples", Ref: "dev", Dir: "missing"}) {
		t.Errorf("expected default location, got %+v", info)
	}
}

func TestFileTree(t *testing.T) {
	tree := FileTree([]string{"b/z.txt", "a.txt", "b/c/d.txt"}, "")
	if len(tree) != 2 || tree[0].Name != "a.txt" || tree[1].Name != "b" {
		t.Fatalf("unexpected tree %+v", tree)
	}
	b := tree[1]
	if len(b.Children) != 2 || b.Children[0].Name != "c" || b.Children[1].Name != "z.txt" {
		t.Errorf("unexpected children %+v", b.Children)
	}
}

func TestDownloadTo(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client()

	dst := filepath.Join(t.TempDir(), "out")
	info := SampleURLInfo{Owner: "OfficeDev", Repository: "TeamsFx-Samples", Ref: "dev", Dir: "hello-world-bot"}
	if err := c.DownloadTo(context.Background(), info, dst); err != nil {
		t.Fatalf("DownloadTo: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "src", "index.js")); err != nil {
		t.Errorf("expected sample content at top of dst: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "node_modules")); !os.IsNotExist(err) {
		t.Error("ignored files must not be downloaded")
	}
}

func TestDownloadURLInfo_CatalogUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(config.SamplesConfig{ConfigURL: srv.URL + "/config.json"}, nil)

	if _, err := c.DownloadURLInfo(context.Background(), "hello-world-bot"); err == nil {
		t.Fatal("expected an error when the catalog cannot be fetched")
	} else if errors.Is(err, ErrSampleNotFound) {
		t.Errorf("expected a fetch error, got %v", err)
	}
}

func TestFetchSampleConfig_ConcurrentCallersShareDownload(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := c.FetchSampleConfig(context.Background())
			if err != nil {
				t.Errorf("FetchSampleConfig: %v", err)
				return
			}
			if len(cfg.Samples) != 2 {
				t.Errorf("expected 2 samples, got %d", len(cfg.Samples))
			}
		}()
	}
	wg.Wait()

	if n := gh.configHits.Load(); n != 1 {
		t.Errorf("expected one catalog download, got %d", n)
	}
}
