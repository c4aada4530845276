// Copyright 2025 the TransformerLens Go authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers of a hooked decoder transformer.
//
// # Overview
//
// This package contains:
//   - Normalization: LayerNorm, LayerNormPre
//   - Attention: multi-head self-attention with causal and windowed masks
//   - Feed-forward: MLP with relu, gelu, gelu_new, silu and solu_ln
//   - Blocks: TransformerBlock, AttnOnlyBlock
//   - Embeddings: Embed, PosEmbed, Unembed
//   - The full model: Transformer
//
// Every layer exposes named hook points at its intermediate activations.
// A forward pass with no hooks attached computes the plain transformer
// function; attached hooks observe or replace the value flowing through.
//
// # Basic Usage
//
//	import (
//	    "github.com/yzhhr/TransformerLens/nn"
//	)
//
//	func main() {
//	    cfg := nn.Config{
//	        DModel: 64, NHeads: 4, DHead: 16, DMLP: 256,
//	        NCtx: 128, DVocab: 50257, NLayers: 2,
//	        Eps: 1e-5, UseAttnScale: true,
//	    }
//	    model, err := nn.NewTransformer(cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Run and capture every intermediate activation.
//	    logits, cache := model.RunWithCache([][]int{{1, 2, 3}})
//	    _, _ = logits, cache
//	}
//
// # Hook Names
//
// Hook points carry dotted names mirroring the module tree, for example
// "blocks.0.attn.hook_q" or "blocks.1.hook_resid_post". Transformer.HookNames
// lists them all.
package nn
