package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/teamsfx/tfx/internal/chat"
)

type gitTree struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// FileInfo lists the files under info.Dir using the git trees API and
// returns their repository paths plus the raw-content URL prefix to fetch
// them from.
func (c *Client) FileInfo(ctx context.Context, info SampleURLInfo, retries int) (paths []string, fileURLPrefix string, err error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.githubAPI, info.Owner, info.Repository, info.Ref)
	body, err := c.get(ctx, url, retries)
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", info, err)
	}

	var tree gitTree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, "", fmt.Errorf("parse tree %s: %w", info, err)
	}
	if tree.Truncated {
		slog.Warn("git tree truncated", "repo", info.Owner+"/"+info.Repository)
	}

	prefix := strings.Trim(info.Dir, "/")
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if prefix != "" && !strings.HasPrefix(entry.Path, prefix+"/") {
			continue
		}
		if c.ignored(entry.Path) {
			continue
		}
		paths = append(paths, entry.Path)
	}
	sort.Strings(paths)

	fileURLPrefix = fmt.Sprintf("%s/%s/%s/%s/", c.rawBase, info.Owner, info.Repository, info.Ref)
	return paths, fileURLPrefix, nil
}

func (c *Client) ignored(p string) bool {
	for _, pattern := range c.ignore {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// Download fetches every path from fileURLPrefix into dst, keeping the
// repository layout, with at most concurrency requests in flight.
// relativeDir must prefix every path.
func (c *Client) Download(ctx context.Context, fileURLPrefix string, paths []string, dst, relativeDir string, retries, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	rel := strings.Trim(relativeDir, "/")
	for _, p := range paths {
		if rel != "" && !strings.HasPrefix(p, rel+"/") {
			return fmt.Errorf("path %s is outside %s", p, rel)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, p := range paths {
		g.Go(func() error {
			body, err := c.get(ctx, fileURLPrefix+p, retries)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, filepath.FromSlash(p))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create dir for %s: %w", p, err)
			}
			if err := os.WriteFile(target, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	slog.Debug("download complete", "files", len(paths), "dst", dst)
	return nil
}

// BuildFileTree downloads the files and returns them as a tree rooted at
// relativeDir.
func (c *Client) BuildFileTree(ctx context.Context, fileURLPrefix string, paths []string, dst, relativeDir string, retries, concurrency int) ([]chat.FileTreeNode, error) {
	if err := c.Download(ctx, fileURLPrefix, paths, dst, relativeDir, retries, concurrency); err != nil {
		return nil, err
	}
	return FileTree(paths, relativeDir), nil
}

// FileTree nests slash-separated paths, relative to relativeDir. Siblings
// are sorted by name.
func FileTree(paths []string, relativeDir string) []chat.FileTreeNode {
	rel := strings.Trim(relativeDir, "/")
	root := &treeBuilder{children: map[string]*treeBuilder{}}
	for _, p := range paths {
		if rel != "" {
			p = strings.TrimPrefix(p, rel+"/")
		}
		node := root
		for _, seg := range strings.Split(path.Clean(p), "/") {
			child, ok := node.children[seg]
			if !ok {
				child = &treeBuilder{name: seg, children: map[string]*treeBuilder{}}
				node.children[seg] = child
			}
			node = child
		}
	}
	return root.nodes()
}

type treeBuilder struct {
	name     string
	children map[string]*treeBuilder
}

func (b *treeBuilder) nodes() []chat.FileTreeNode {
	names := make([]string, 0, len(b.children))
	for n := range b.children {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]chat.FileTreeNode, 0, len(names))
	for _, n := range names {
		child := b.children[n]
		out = append(out, chat.FileTreeNode{Name: n, Children: child.nodes()})
	}
	return out
}

// FetchInto downloads the directory described by info into a fresh
// directory under parent and returns the local folder holding it plus the
// file tree.
func (c *Client) FetchInto(ctx context.Context, info SampleURLInfo, parent string) (folder string, tree []chat.FileTreeNode, err error) {
	paths, prefix, err := c.FileInfo(ctx, info, c.retries)
	if err != nil {
		return "", nil, err
	}
	tmp, err := os.MkdirTemp(parent, "tfx-sample-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	tree, err = c.BuildFileTree(ctx, prefix, paths, tmp, info.Dir, c.retries, c.concurrency)
	if err != nil {
		os.RemoveAll(tmp)
		return "", nil, err
	}
	return filepath.Join(tmp, filepath.FromSlash(info.Dir)), tree, nil
}

// DownloadTo fetches the directory described by info straight into dst,
// dropping the repository path so info.Dir's content lands at the top.
func (c *Client) DownloadTo(ctx context.Context, info SampleURLInfo, dst string) error {
	paths, prefix, err := c.FileInfo(ctx, info, c.retries)
	if err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "tfx-sample-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := c.Download(ctx, prefix, paths, tmp, info.Dir, c.retries, c.concurrency); err != nil {
		return err
	}
	return CopyDir(filepath.Join(tmp, filepath.FromSlash(info.Dir)), dst)
}
