// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/abakirov/mektep/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
