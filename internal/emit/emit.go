// Package emit renders the compiled rule set into the Beacon evaluator's
// source project: one file per partitioned group, one coordinator file,
// and a manifest — spec.md §4.6. Every artifact is staged into a
// temporary directory and only moved into the final output path once
// every group and coordinator file has been written successfully, so a
// mid-emission failure never leaves a partial, incoherent artifact set.
package emit

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/manifest"
	"github.com/betracehq/pulsar/internal/partition"
)

const (
	stagingDirName = ".pulsar-staging"
	filePerm       = 0o644
	dirPerm        = 0o755
)

// Emit writes groups, a coordinator, and manifestDoc to outputDir using
// fs. manifestDoc already carries its generation timestamp; Emit only
// serializes it.
func Emit(groups []*partition.Group, manifestDoc *manifest.Document, outputDir string, fs FileSystem, logger *slog.Logger) *compileerr.List {
	if logger == nil {
		logger = slog.Default()
	}
	issues := &compileerr.List{}

	staging := filepath.Join(outputDir, stagingDirName)
	if err := fs.MkdirAll(staging, dirPerm); err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to create staging directory: %v", err)
		return issues
	}

	sortGroupsForCoordinator(groups)

	for _, g := range groups {
		view := buildGroupView(g)
		var buf bytes.Buffer
		if err := groupTemplate.Execute(&buf, view); err != nil {
			issues.Errorf(compileerr.KindIO, "", 0, "", "failed to render group %d: %v", g.Index, err)
			return issues
		}
		path := filepath.Join(staging, groupFileName(g.Index))
		if err := fs.WriteFile(path, buf.Bytes(), filePerm); err != nil {
			issues.Errorf(compileerr.KindIO, "", 0, "", "failed to write group %d: %v", g.Index, err)
			return issues
		}
	}

	coordView := buildCoordinatorView(groups)
	var coordBuf bytes.Buffer
	if err := coordinatorTemplate.Execute(&coordBuf, coordView); err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to render coordinator: %v", err)
		return issues
	}
	if err := fs.WriteFile(filepath.Join(staging, "coordinator.py"), coordBuf.Bytes(), filePerm); err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to write coordinator: %v", err)
		return issues
	}

	// The manifest is written last and only after every code file has
	// succeeded, per spec.md §4.6's emission-failure contract.
	manifestBytes, err := manifestDoc.Marshal()
	if err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to render manifest: %v", err)
		return issues
	}
	if err := fs.WriteFile(filepath.Join(staging, "manifest.yaml"), manifestBytes, filePerm); err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to write manifest: %v", err)
		return issues
	}

	if err := promoteStaging(fs, staging, outputDir); err != nil {
		issues.Errorf(compileerr.KindIO, "", 0, "", "failed to promote staged output: %v", err)
		return issues
	}

	logger.Info("emission complete", "groups", len(groups), "outputDir", outputDir)
	return issues
}

// promoteStaging moves every file out of the staging directory into
// outputDir, then removes the now-empty staging directory. Individual
// renames rather than a single directory rename keep this FileSystem
// seam simple for the in-memory mock.
func promoteStaging(fs FileSystem, staging, outputDir string) error {
	entries, err := stagedFileNames(fs, staging)
	if err != nil {
		return err
	}
	for _, name := range entries {
		if err := fs.Rename(filepath.Join(staging, name), filepath.Join(outputDir, name)); err != nil {
			return err
		}
	}
	return fs.RemoveAll(staging)
}

// stagedFileNames lists the fixed set of files Emit writes into the
// staging directory, since FileSystem exposes no directory-listing
// operation of its own.
func stagedFileNames(fs FileSystem, staging string) ([]string, error) {
	var names []string
	for i := 0; ; i++ {
		name := groupFileName(i)
		if _, err := fs.Stat(filepath.Join(staging, name)); err != nil {
			if os.IsNotExist(err) {
				break
			}
			return nil, err
		}
		names = append(names, name)
	}
	names = append(names, "coordinator.py", "manifest.yaml")
	return names, nil
}

func groupFileName(index int) string {
	return fmt.Sprintf("group_%d.py", index)
}

func sortGroupsForCoordinator(groups []*partition.Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].MinLayer != groups[j].MinLayer {
			return groups[i].MinLayer < groups[j].MinLayer
		}
		return groups[i].Index < groups[j].Index
	})
}

func buildGroupView(g *partition.Group) GroupView {
	view := GroupView{Index: g.Index, MinLayer: g.MinLayer, MaxLayer: g.MaxLayer}
	seenFiles := make(map[string]struct{})
	for _, r := range g.Rules {
		if _, ok := seenFiles[r.Location.File]; !ok {
			seenFiles[r.Location.File] = struct{}{}
			view.SourceFiles = append(view.SourceFiles, r.Location.File)
		}
		view.Rules = append(view.Rules, RuleView{
			Name:          r.Name,
			SourceFile:    r.Location.File,
			SourceLine:    r.Location.Line,
			ConditionExpr: translateConditionGroup(r.Conditions),
			Actions:       translateActions(r.Actions),
		})
	}
	return view
}

func translateActions(actions []ast.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = translateAction(a)
	}
	return out
}

func buildCoordinatorView(groups []*partition.Group) CoordinatorView {
	view := CoordinatorView{}
	for _, g := range groups {
		view.Groups = append(view.Groups, GroupView{Index: g.Index, MinLayer: g.MinLayer, MaxLayer: g.MaxLayer})
	}
	return view
}
