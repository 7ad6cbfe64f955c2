// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/jllopis/praxis/pkg/connectors"
	"github.com/jllopis/praxis/pkg/core"
	"github.com/jllopis/praxis/pkg/mcp"
	"github.com/jllopis/praxis/pkg/skills"
)

type toolInfo struct {
	Source      string `json:"source"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func runTools(ctx context.Context, global globalFlags, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(fmt.Errorf("usage: praxis tools list"))
	}
	ensureNoArgs(args[1:])

	cfg, err := loadConfig(global)
	if err != nil {
		exitError(global.JSON, WrapConfigError(err))
	}

	// Unlike the store commands this one does dial configured MCP servers;
	// seeing their tools is the point.
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

	infos := collectToolInfo(rt.Registry().Tools())
	if global.JSON {
		printJSON(infos)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "SOURCE", "TOOL", "DESCRIPTION")
	for _, info := range infos {
		writeRow(writer, info.Source, info.Name, truncateMessage(info.Description, 70))
	}
	_ = writer.Flush()
}

// collectToolInfo labels every registry tool with its origin: local for the
// built-in workspace tools, the server name for MCP-adapted ones, the
// connector name for generated API operations.
func collectToolInfo(registered []core.Tool) []toolInfo {
	infos := make([]toolInfo, 0, len(registered))
	for _, tool := range registered {
		source := "local"
		switch t := tool.(type) {
		case *mcp.ToolAdapter:
			source = t.Server()
			if source == "" {
				source = "mcp"
			}
		case *skills.SkillTool:
			source = "skill"
		case *connectors.DatabaseTool:
			source = "connector"
		default:
			if named, ok := tool.(interface{ Connector() string }); ok {
				source = named.Connector()
			}
		}
		infos = append(infos, toolInfo{
			Source:      source,
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Source != infos[j].Source {
			if infos[i].Source == "local" {
				return true
			}
			if infos[j].Source == "local" {
				return false
			}
			return infos[i].Source < infos[j].Source
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}
