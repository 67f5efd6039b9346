package refresh

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/contextstore"
	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/template"
)

// ListSeparator joins asset names in a list.
const ListSeparator = "|"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MissingDirectory is the list stored for an agent without a directory.
func MissingDirectory(agent string) string {
	return agent + template.AssetSuffix + "目录不存在"
}

// ListFailed is the list stored when a directory cannot be read.
func ListFailed(agent string) string {
	return agent + template.AssetSuffix + "列表生成失败"
}

// ListFile is the persisted file name for an agent's list.
func ListFile(agent string) string {
	return agent + template.AssetSuffix + ".txt"
}

// Assets regenerates per-agent asset lists from an image root whose
// subdirectories are named "<agent>表情包".
type Assets struct {
	root    string
	store   *contextstore.Store
	persist contextstore.Persister
	logger  observe.Logger
}

// NewAssets returns an Assets refresher over root.
func NewAssets(root string, store *contextstore.Store, persist contextstore.Persister, logger observe.Logger) *Assets {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Assets{
		root:    root,
		store:   store,
		persist: persist,
		logger:  logger.With(observe.Op{Component: "assets"}),
	}
}

// Root returns the image root.
func (a *Assets) Root() string {
	return a.root
}

// Dir returns the directory holding agent's assets.
func (a *Assets) Dir(agent string) string {
	return filepath.Join(a.root, agent+template.AssetSuffix)
}

// Refresh lists dir, keeps image files in scan order, joins them with
// ListSeparator, then stores and persists the list. A missing directory
// yields MissingDirectory. Other read errors fall back to the previously
// persisted list when there is one, else ListFailed.
func (a *Assets) Refresh(ctx context.Context, agent, dir string) string {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		diag := MissingDirectory(agent)
		a.logger.Warn(ctx, "asset directory missing", observe.F("agent", agent), observe.F("dir", dir))
		a.publish(ctx, agent, diag)
		return diag

	case err != nil:
		diag := ListFailed(agent)
		a.logger.Error(ctx, "asset directory unreadable", observe.F("agent", agent), observe.F("error", err))
		prev, lerr := a.persist.Load(ctx, ListFile(agent))
		if lerr == nil && prev != "" && prev != diag {
			a.store.SetAssetList(agent, prev)
			return prev
		}
		a.publish(ctx, agent, diag)
		return diag
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	list := strings.Join(names, ListSeparator)
	a.publish(ctx, agent, list)
	a.logger.Debug(ctx, "asset list refreshed", observe.F("agent", agent), observe.F("count", len(names)))
	return list
}

// RefreshAll refreshes every agent directory under the root and returns the
// agent names in directory order.
func (a *Assets) RefreshAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, errors.Wrapf(err, "read image root %s", a.root)
	}

	var agents []string
	for _, e := range entries {
		agent, ok := AgentOf(e)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return agents, err
		}
		a.Refresh(ctx, agent, filepath.Join(a.root, e.Name()))
		agents = append(agents, agent)
	}
	return agents, nil
}

// AgentOf returns the agent name for an asset directory entry.
func AgentOf(e fs.DirEntry) (string, bool) {
	if !e.IsDir() {
		return "", false
	}
	return agentName(e.Name())
}

func agentName(dirName string) (string, bool) {
	agent, ok := strings.CutSuffix(dirName, template.AssetSuffix)
	if !ok || agent == "" {
		return "", false
	}
	return agent, true
}

func (a *Assets) publish(ctx context.Context, agent, list string) {
	a.store.SetAssetList(agent, list)
	if err := a.persist.Save(ctx, ListFile(agent), list); err != nil {
		a.logger.Error(ctx, "asset list write failed", observe.F("agent", agent), observe.F("error", err))
	}
}
