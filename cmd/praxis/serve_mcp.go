// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jllopis/praxis/pkg/mcp"
)

// runServeMCP exposes the assembled tool registry as an MCP stdio server,
// so other MCP hosts can call the same file, command, and git tools the
// agent uses. Configured remote servers are re-exported too, which makes
// praxis usable as an aggregator.
func runServeMCP(ctx context.Context, global globalFlags, args []string) {
	ensureNoArgs(args)

	cfg, err := loadConfig(global)
	if err != nil {
		exitError(global.JSON, WrapConfigError(err))
	}

	// stdout carries the protocol; telemetry export would corrupt it.
	rt, err := newRuntime(cfg, false)
	if err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	if err := rt.Start(ctx); err != nil {
		exitError(global.JSON, WrapRuntimeError(err))
	}
	defer func() {
		_ = rt.Stop(context.Background())
	}()

	server := mcp.NewServer("praxis", version)
	server.RegisterRegistry(rt.Registry())

	fmt.Fprintf(os.Stderr, "praxis mcp server: %d tools on stdio\n", len(rt.Registry().Names()))
	if err := server.ServeStdio(); err != nil {
		exitError(global.JSON, err)
	}
}
