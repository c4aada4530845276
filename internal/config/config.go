// Package config loads model configurations from YAML files.
//
// This is the boundary where loosely-typed external configuration becomes
// the strongly-typed immutable nn.Config: names are parsed into closed
// enums and the combination is validated once, before any component is
// built. Core components never see raw configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yzhhr/TransformerLens/internal/nn"
)

// fileSchema mirrors the YAML document. Field names follow the
// conventional hyperparameter spellings.
type fileSchema struct {
	DModel  int `yaml:"d_model"`
	NHeads  int `yaml:"n_heads"`
	DHead   int `yaml:"d_head"`
	DMLP    int `yaml:"d_mlp"`
	NCtx    int `yaml:"n_ctx"`
	DVocab  int `yaml:"d_vocab"`
	NLayers int `yaml:"n_layers"`

	Eps float32 `yaml:"eps"`

	AttentionDir      string   `yaml:"attention_dir"`
	NormalizationType string   `yaml:"normalization_type"`
	ActFn             string   `yaml:"act_fn"`
	UseLocalAttn      bool     `yaml:"use_local_attn"`
	AttnTypes         []string `yaml:"attn_types"`
	WindowSize        int      `yaml:"window_size"`
	UseAttnScale      *bool    `yaml:"use_attn_scale"`
	UseAttnResult     bool     `yaml:"use_attn_result"`
	AttnOnly          bool     `yaml:"attn_only"`
}

// Load reads and parses a YAML model configuration from disk.
func Load(path string) (nn.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nn.Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nn.Config{}, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse converts a YAML document into a validated nn.Config.
//
// Defaults when omitted: eps 1e-5, attention_dir causal, act_fn gelu,
// use_attn_scale true.
func Parse(data []byte) (nn.Config, error) {
	file := fileSchema{
		Eps:          1e-5,
		AttentionDir: "causal",
		ActFn:        "gelu",
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nn.Config{}, fmt.Errorf("invalid YAML: %w", err)
	}

	attnDir, err := nn.ParseAttentionDir(file.AttentionDir)
	if err != nil {
		return nn.Config{}, err
	}
	norm, err := nn.ParseNormKind(file.NormalizationType)
	if err != nil {
		return nn.Config{}, err
	}
	act, err := nn.ParseActivation(file.ActFn)
	if err != nil {
		return nn.Config{}, err
	}

	var attnKinds []nn.AttnKind
	for _, name := range file.AttnTypes {
		switch name {
		case "global":
			attnKinds = append(attnKinds, nn.AttnGlobal)
		case "local":
			attnKinds = append(attnKinds, nn.AttnLocal)
		default:
			return nn.Config{}, fmt.Errorf("unknown attention type %q", name)
		}
	}

	useAttnScale := true
	if file.UseAttnScale != nil {
		useAttnScale = *file.UseAttnScale
	}

	cfg := nn.Config{
		DModel:        file.DModel,
		NHeads:        file.NHeads,
		DHead:         file.DHead,
		DMLP:          file.DMLP,
		NCtx:          file.NCtx,
		DVocab:        file.DVocab,
		NLayers:       file.NLayers,
		Eps:           file.Eps,
		AttnDir:       attnDir,
		Norm:          norm,
		Act:           act,
		UseLocalAttn:  file.UseLocalAttn,
		AttnKinds:     attnKinds,
		WindowSize:    file.WindowSize,
		UseAttnScale:  useAttnScale,
		UseAttnResult: file.UseAttnResult,
		AttnOnly:      file.AttnOnly,
	}
	if err := cfg.Validate(); err != nil {
		return nn.Config{}, err
	}
	return cfg, nil
}
