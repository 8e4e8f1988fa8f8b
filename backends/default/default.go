// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default includes the default backends, namely Ascend and Tops.
//
// To use it simply include:
//
//	import _ "github.com/gomlx/fxlower/backends/default"
//
// Ascend is registered first, so it is the default backend when no configuration is given.
// If you add the tag `notops` it will not include Tops.
package _default

import (
	_ "github.com/gomlx/fxlower/backends/ascend"
)
