// Package main provides the TransformerLens demo CLI.
//
// It builds a randomly initialized hooked transformer from a YAML
// configuration, runs a greedy decode over a tokenized prompt, and can
// list the model's hook points.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/yzhhr/TransformerLens/internal/config"
	"github.com/yzhhr/TransformerLens/internal/nn"
	"github.com/yzhhr/TransformerLens/internal/tokenizer"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML model configuration")
		prompt     = flag.String("prompt", "Hello, world", "prompt to decode from")
		steps      = flag.Int("steps", 16, "number of greedy decode steps")
		seed       = flag.Int64("seed", 42, "seed for random parameter initialization")
		encoding   = flag.String("encoding", "r50k_base", "tiktoken encoding name")
		listHooks  = flag.Bool("hooks", false, "list hook point names and exit")
	)
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: lens -config model.yaml [-prompt ...] [-steps N]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	model, err := nn.NewTransformer(cfg)
	if err != nil {
		log.Fatalf("build model: %v", err)
	}
	initParameters(model, *seed)

	if *listHooks {
		for _, name := range model.HookNames() {
			fmt.Println(name)
		}
		return
	}

	tok, err := tokenizer.NewTikToken(*encoding)
	if err != nil {
		log.Fatalf("tokenizer: %v", err)
	}

	tokens, err := tok.Encode(*prompt)
	if err != nil {
		log.Fatalf("encode prompt: %v", err)
	}
	tokens = clampTokens(tokens, cfg.DVocab)
	if len(tokens) == 0 {
		log.Fatal("prompt produced no tokens")
	}

	bar := progressbar.NewOptions(*steps,
		progressbar.OptionSetDescription("Decoding"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)

	for i := 0; i < *steps; i++ {
		window := tokens
		if len(window) > cfg.NCtx {
			window = window[len(window)-cfg.NCtx:]
		}
		logits := model.Forward([][]int{window})
		next := argmaxLast(logits.Data(), len(window), cfg.DVocab)
		tokens = append(tokens, next)
		_ = bar.Add(1)
	}
	fmt.Println()

	text, err := tok.Decode(tokens)
	if err != nil {
		log.Fatalf("decode tokens: %v", err)
	}
	fmt.Println(strings.TrimRight(text, "\n"))
}

// initParameters fills the weight matrices with small deterministic random
// values. Biases stay zero and LayerNorm scales stay one, as constructed.
func initParameters(model *nn.Transformer, seed int64) {
	for i, p := range model.Parameters() {
		base := p.Name()[strings.LastIndex(p.Name(), ".")+1:]
		if strings.HasPrefix(base, "W_") {
			p.FillNormal(seed+int64(i), 0.02)
		}
	}
}

// argmaxLast returns the index of the largest logit at the final
// position of a [1, positions, vocab] tensor laid out row-major.
func argmaxLast(data []float32, positions, vocab int) int {
	row := data[(positions-1)*vocab : positions*vocab]
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

// clampTokens drops tokens outside the model vocabulary. A demo
// configuration often has a vocabulary far smaller than the encoding's.
func clampTokens(tokens []int, vocab int) []int {
	out := tokens[:0]
	for _, t := range tokens {
		if t < vocab {
			out = append(out, t)
		}
	}
	return out
}
