package core

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/Digital-Shane/treeview"
	"github.com/jordanlambrecht/sports-media-organizer/internal/config"
	"github.com/jordanlambrecht/sports-media-organizer/internal/media"
)

const (
	scanMaxDepth     = 32
	scanTraversalCap = 2000000
)

// treeBuilderFunc matches treeview.NewTreeFromFileSystem so tests can swap it.
type treeBuilderFunc func(context.Context, string, bool, ...treeview.Option[treeview.FileInfo]) (*treeview.Tree[treeview.FileInfo], error)

var scanTreeBuilder treeBuilderFunc = treeview.NewTreeFromFileSystem

// ScanOptions tunes the source walk.
type ScanOptions struct {
	// Progress is called for every accepted file.
	Progress func(path string)
}

// Scan walks root and returns the regular files whose extension passes the
// allowed and blocked lists. Hidden entries and sample clips are skipped.
// The result is sorted.
func Scan(ctx context.Context, root string, cfg *config.Config, opts ScanOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory: %s is not a directory", root)
	}

	accept := func(fi treeview.FileInfo) bool {
		name := fi.Name()
		if media.IsHidden(name) || media.IsSample(name) {
			return false
		}
		if fi.IsDir() {
			return true
		}
		if !fi.FileInfo.Mode().IsRegular() {
			return false
		}
		return media.ExtensionAllowed(media.ExtensionOf(name), cfg.AllowedExtensions, cfg.BlockedExtensions)
	}

	tree, err := scanTreeBuilder(ctx, root, false,
		treeview.WithMaxDepth[treeview.FileInfo](scanMaxDepth),
		treeview.WithTraversalCap[treeview.FileInfo](scanTraversalCap),
		treeview.WithFilterFunc(accept),
		treeview.WithProgressCallback[treeview.FileInfo](func(_ int, n *treeview.Node[treeview.FileInfo]) {
			if opts.Progress != nil && !n.Data().IsDir() {
				opts.Progress(n.Data().Path)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	var files []string
	for ni := range tree.BreadthFirst(ctx) {
		data := ni.Node.Data()
		if data.IsDir() {
			continue
		}
		files = append(files, data.Path)
	}
	if err := ctx.Err(); err != nil {
		return files, err
	}
	sort.Strings(files)
	return files, nil
}
