// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors used by rectflow.
//
// # Overview
//
// A Tensor is a row-major buffer plus a Shape. Axis 0 is the batch axis:
// a batch of B examples of shape S has Shape{B, S...}. Operations return
// fresh tensors and never write into their inputs.
//
// # Basic Usage
//
//	x := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	z := tensor.Randn(x.Shape(), tensor.NewSource(42))
//	mid := tensor.AddScaled(tensor.Scale(x, 0.5), 0.5, z)
//
// # Per-example scalars
//
// Times and other per-example values are plain []float64 of length B.
// BroadcastBatch expands them to a full tensor and ScaleRows multiplies
// every element of example i by values[i]:
//
//	t := []float64{0.25, 0.75}
//	scaled := tensor.ScaleRows(x, t)
//
// # Randomness
//
// Random tensors draw from an explicit rand.Source. NewSource(seed) is
// deterministic for seed >= 0 and random for negative seeds.
package tensor
