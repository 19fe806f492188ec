// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/solguard/solguard/pkg/audit"
	"github.com/solguard/solguard/pkg/bus"
	"github.com/solguard/solguard/pkg/config"
	"github.com/solguard/solguard/pkg/health"
	"github.com/solguard/solguard/pkg/logger"
	"github.com/solguard/solguard/pkg/mcp"
	"github.com/solguard/solguard/pkg/observability"
	"github.com/solguard/solguard/pkg/server"
	"github.com/solguard/solguard/pkg/tools"
)

// ------------------------------------------------------------------
// Global flags
// ------------------------------------------------------------------

var (
	flagDebug  bool
	flagConfig string
	flagJSON   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "solguard",
		Short: "SolGuard - Solidity compile & security-audit MCP server",
		Long: `SolGuard exposes Solidity analysis tools over the Model Context Protocol:
compile_solidity (solc), security_audit (Slither), and the combined
compile_and_audit workflow. Transports: HTTP + SSE/WebSocket, or stdio.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				logger.SetLevel(logger.DEBUG)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")

	root.AddCommand(
		newServeCmd(),
		newStdioCmd(),
		newToolsCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

// ------------------------------------------------------------------
// Stack assembly
// ------------------------------------------------------------------

type stack struct {
	cfg        *config.Config
	registry   *tools.ToolRegistry
	notifier   *bus.NotificationBus
	metrics    *observability.MetricsRegistry
	store      audit.Store
	dispatcher *mcp.Dispatcher
}

// buildStack wires the registry, notification bus, audit store, metrics,
// and dispatcher from configuration.
func buildStack(cfg *config.Config) (*stack, error) {
	compile := tools.NewCompileTool(cfg.SolcPath, cfg.CompileTimeout())
	compile.SetAllowPaths(cfg.AllowPaths)
	auditTool := tools.NewAuditTool(cfg.SlitherPath, cfg.AuditTimeout())

	registry := tools.NewToolRegistry()
	registry.Register(compile)
	registry.Register(auditTool)
	registry.Register(tools.NewWorkflowTool(compile, auditTool))

	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	notifier := bus.NewNotificationBus(cfg.NotifyBuffer)
	metrics := observability.NewMetricsRegistry()

	dispatcher := mcp.NewDispatcher(registry, mcp.DispatcherConfig{
		StrictSession: cfg.StrictSession,
		Notifier:      notifier,
		Audit:         audit.NewLogger(store),
		Metrics:       metrics,
	})

	return &stack{
		cfg:        cfg,
		registry:   registry,
		notifier:   notifier,
		metrics:    metrics,
		store:      store,
		dispatcher: dispatcher,
	}, nil
}

func (s *stack) close() {
	s.notifier.Close()
	if s.store != nil {
		_ = s.store.Close()
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// ------------------------------------------------------------------
// serve
// ------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP MCP server (JSON-RPC + SSE/WebSocket streams)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			h := health.NewServer(cfg.Host, cfg.Port)
			h.RegisterCheck("solc", binaryCheck(cfg.SolcPath))
			h.RegisterCheck("slither", binaryCheck(cfg.SlitherPath))
			h.SetReady(true)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			auditLog := audit.NewLogger(st.store)
			_ = auditLog.LogServerStart(ctx, cfg.Addr())

			srv := server.New(server.Config{Host: cfg.Host, Port: cfg.Port},
				st.dispatcher, mcp.NewSessionManager(), st.notifier, st.metrics, h)

			logger.InfoCF("cli", "Starting SolGuard",
				map[string]any{"addr": cfg.Addr(), "tools": st.registry.Names()})
			return srv.Start(ctx)
		},
	}
}

func binaryCheck(path string) health.CheckFunc {
	return func() (bool, string) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return false, fmt.Sprintf("%s not found in PATH", path)
		}
		return true, resolved
	}
}

// ------------------------------------------------------------------
// stdio
// ------------------------------------------------------------------

func newStdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Run the MCP server over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return mcp.NewServer(st.dispatcher).Serve(ctx)
		},
	}
}

// ------------------------------------------------------------------
// tools
// ------------------------------------------------------------------

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if flagJSON {
				type entry struct {
					Name        string         `json:"name"`
					Description string         `json:"description"`
					InputSchema map[string]any `json:"inputSchema"`
				}
				var catalog []entry
				for _, t := range st.registry.List() {
					catalog = append(catalog, entry{t.Name(), t.Description(), t.Parameters()})
				}
				return json.NewEncoder(os.Stdout).Encode(catalog)
			}

			for _, t := range st.registry.List() {
				fmt.Printf("%-20s %s\n", t.Name(), t.Description())
			}
			return nil
		},
	}
}

// ------------------------------------------------------------------
// history
// ------------------------------------------------------------------

func newHistoryCmd() *cobra.Command {
	var (
		flagTool  string
		flagSince string
		flagLimit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the audit trail of tool invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := audit.NewStore(cfg.Audit)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("auditing is disabled (backend: none)")
			}
			defer store.Close()

			opts := audit.QueryOptions{Tool: flagTool, Limit: flagLimit}
			if flagSince != "" {
				dur, err := time.ParseDuration(flagSince)
				if err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
				opts.Since = time.Now().Add(-dur)
			}

			events, err := store.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(events)
			}
			for _, e := range events {
				status := "-"
				if e.Result != nil {
					status = e.Result.Status
				}
				fmt.Printf("%s  %-14s %-18s %s\n",
					e.Timestamp.Format(time.RFC3339), e.Type, e.Tool, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagTool, "tool", "", "Filter by tool name")
	cmd.Flags().StringVar(&flagSince, "since", "", "Only events newer than this duration (e.g. 24h)")
	cmd.Flags().IntVar(&flagLimit, "limit", 100, "Maximum events to return")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
