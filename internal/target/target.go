// internal/target/target.go
//
// An image target is one entry in the ordered set of images a run builds.
// The order matters: each image layers on the previous one, so base-deps
// must come before ray-deps, which must come before ray, and so on.
// The active set defaults to just "ray" (the other layers are normally
// published out-of-band) but the full lineage can be selected with a
// YAML target file.

package target

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"rayimg/internal/config"
)

// Kind decides which build args a target receives and what gets staged
// into its context.
type Kind string

const (
	// KindBase is the bottom of the lineage; it receives BASE_IMAGE and
	// PYTHON_VERSION and needs no staged files.
	KindBase Kind = "base"
	// KindWheel layers on the channel tag and installs the staged wheel.
	KindWheel Kind = "wheel"
	// KindML is a wheel image that additionally stages the ML requirement
	// manifests.
	KindML Kind = "ml"
)

// Target names one image to build.
type Target struct {
	Name string
	Kind Kind
}

// catalog is the closed set of buildable images, keyed by name.
var catalog = map[string]Kind{
	"base-deps": KindBase,
	"ray-deps":  KindWheel,
	"ray":       KindWheel,
	"ray-ml":    KindML,
}

// fullOrder is the lineage order used when validating YAML target files.
var fullOrder = []string{"base-deps", "ray-deps", "ray", "ray-ml"}

// MLRequirements are the manifests staged into the ray-ml context, relative
// to the python/ directory of the source tree.
var MLRequirements = []string{
	"requirements.txt",
	"requirements_dl.txt",
	"requirements_ml_docker.txt",
	"requirements_rllib.txt",
	"requirements_train.txt",
	"requirements_tune.txt",
	"requirements_upstream.txt",
}

// Defaults is the reduced active set built when no target file is given.
func Defaults() []Target {
	return []Target{{Name: "ray", Kind: KindWheel}}
}

// Full returns the complete lineage in build order.
func Full() []Target {
	out := make([]Target, 0, len(fullOrder))
	for _, name := range fullOrder {
		out = append(out, Target{Name: name, Kind: catalog[name]})
	}
	return out
}

// Load reads an ordered YAML list of image names and resolves each against
// the catalog. Unknown names and empty lists fail loudly.
func Load(path string) ([]Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("target.Load: %w", err)
	}
	var names []string
	if err := yaml.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("target.Load: invalid YAML in %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("target.Load: %s names no image targets", path)
	}
	out := make([]Target, 0, len(names))
	for _, name := range names {
		kind, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("target.Load: unknown image target %q in %s", name, path)
		}
		out = append(out, Target{Name: name, Kind: kind})
	}
	return out, nil
}

// ContextDir is the build-context directory handed to the build tool.
func (t Target) ContextDir(opts config.BuildOptions) string {
	return filepath.Join(opts.DockerDir, t.Name)
}

// Ref is the fully-qualified repo:tag this target is built under.
func (t Target) Ref(opts config.BuildOptions) string {
	return opts.ImageRef(t.Name)
}

// BuildArgs derives the build-arg set for this target. The base image is
// parameterized directly; every downstream image instead receives the
// channel tag of the layer below it plus the wheel filename (not the full
// path — the wheel is staged into the context, so the path is relative).
func (t Target) BuildArgs(opts config.BuildOptions, wheelName string) [][2]string {
	if t.Kind == KindBase {
		return [][2]string{
			{"BASE_IMAGE", opts.EffectiveBaseImage()},
			{"PYTHON_VERSION", opts.PythonVersion},
		}
	}
	return [][2]string{
		{"BASE_IMAGE_TAG", opts.ChannelTag()},
		{"WHEEL_PATH", wheelName},
	}
}

// StagedFiles lists the source files to copy into this target's context
// before building, relative to the source-tree root. The staged wheel is
// handled separately by the orchestrator.
func (t Target) StagedFiles(srcRoot string) []string {
	if t.Kind != KindML {
		return nil
	}
	out := make([]string, 0, len(MLRequirements))
	for _, name := range MLRequirements {
		out = append(out, filepath.Join(srcRoot, "python", name))
	}
	return out
}
