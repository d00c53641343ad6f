// internal/config/options.go
package config

import (
	"fmt"
	"strings"
)

// WheelSource selects where the wheel artifact comes from.
type WheelSource string

const (
	WheelLocal  WheelSource = "LOCAL"
	WheelRemote WheelSource = "REMOTE"
)

// ParseWheelSource validates the --wheel-to-use value.
func ParseWheelSource(s string) (WheelSource, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(WheelLocal):
		return WheelLocal, nil
	case string(WheelRemote):
		return WheelRemote, nil
	default:
		return "", fmt.Errorf("invalid wheel source %q: must be LOCAL or REMOTE", s)
	}
}

// BuildOptions is the single immutable input to an orchestration run.
// It is populated once (flags over env defaults) and passed explicitly
// to every stage; nothing mutates it afterwards.
type BuildOptions struct {
	GPU            bool
	BaseImage      string // override for the base-deps BASE_IMAGE build arg
	NoCache        bool
	BuildDevImage  bool
	BuildExamples  bool
	ShasOnly       bool
	WheelSource    WheelSource
	WheelURL       string
	PythonVersion  string
	SkipWheelBuild bool
	TargetsFile    string // optional YAML list overriding the active image set
	DryRun         bool

	// Env-derived defaults (see FromEnv)
	Repo      string // registry namespace, e.g. "rayproject"
	Tag       string // channel tag, e.g. "nightly"
	DockerDir string // root of the per-image build-context directories
}

// Validate enforces cross-field constraints before any work starts.
func (o BuildOptions) Validate() error {
	if o.WheelSource == WheelRemote && strings.TrimSpace(o.WheelURL) == "" {
		return fmt.Errorf("--wheel-to-use REMOTE requires --wheel-url")
	}
	if o.Repo == "" || o.Tag == "" {
		return fmt.Errorf("image repo and tag must be non-empty")
	}
	return nil
}

// ChannelTag is the tag every image in one run is built under. GPU builds
// get their own suffix so the CPU and GPU lineages never collide.
func (o BuildOptions) ChannelTag() string {
	if o.GPU {
		return o.Tag + "-gpu"
	}
	return o.Tag
}

// ImageRef builds the fully-qualified repo:tag for one image name.
func (o BuildOptions) ImageRef(name string) string {
	return fmt.Sprintf("%s/%s:%s", o.Repo, name, o.ChannelTag())
}

// EffectiveBaseImage resolves the BASE_IMAGE build arg for base-deps:
// an explicit --base-image wins, otherwise GPU selects the CUDA base.
func (o BuildOptions) EffectiveBaseImage() string {
	if strings.TrimSpace(o.BaseImage) != "" {
		return o.BaseImage
	}
	if o.GPU {
		return "nvidia/cuda:11.2.0-cudnn8-devel-ubuntu20.04"
	}
	return "ubuntu:focal"
}
