// Command omnibridge runs the task-management bridge as an MCP server over
// stdio.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"omnibridge"
	"omnibridge/internal/bridge"
	"omnibridge/internal/cache"
	"omnibridge/internal/mcpserver"
	"omnibridge/internal/tools"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "omnibridge",
		Short: "Expose a task-management application's data model as MCP tools",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")

	root.AddCommand(serveCmd(), toolsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeCache, err := buildRuntime()
			if err != nil {
				return err
			}
			defer closeCache()

			log.SetOutput(os.Stderr) // stdout carries the protocol
			log.Printf("omnibridge %s serving on stdio", mcpserver.Version)
			return mcpserver.ServeStdio(rt)
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools and their operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, closeCache, err := buildRuntime()
			if err != nil {
				return err
			}
			defer closeCache()

			for _, name := range rt.ListTools() {
				tool, err := rt.GetToolByName(name)
				if err != nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n  operations: %s\n",
					tool.Name(), tool.Description(), strings.Join(tool.Operations(), ", "))
			}
			return nil
		},
	}
}

func buildRuntime() (*omnibridge.Server, func(), error) {
	cfg := omnibridge.DefaultConfig()
	if configPath != "" {
		loaded, err := omnibridge.LoadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	osa := bridge.NewOSABridge(cfg.OsascriptPath, cfg.ScriptTimeout)
	store := cache.NewManager(cfg)

	rt, err := omnibridge.New(
		omnibridge.WithConfig(cfg),
		omnibridge.WithBridge(osa),
		omnibridge.WithCache(store),
		omnibridge.WithTools(tools.Setup(osa, store, cfg)),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return rt, store.Close, nil
}
