// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/galvano/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Galvano MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, store contract.RunStore) *server.MCPServer {
	s := server.NewMCPServer(
		"Galvano Cycle Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
	}

	// --- 1. Tool: analyze_cycles ---
	s.AddTool(mcp.NewTool("analyze_cycles",
		mcp.WithDescription("Segment a charge/discharge trace (CSV or Parquet) into cycles and report capacity, energy and efficiencies per cycle."),
		mcp.WithString("path", mcp.Description("Path to the trace file."), mcp.Required()),
		mcp.WithString("classifier", mcp.Description("How phases are decided. Defaults to 'current'."), mcp.Enum("current", "tagged")),
		mcp.WithNumber("noise_threshold", mcp.Description("Current magnitude in A at or below which a sample counts as rest.")),
		mcp.WithNumber("dwell", mcp.Description("Persistence required to confirm a transition.")),
		mcp.WithString("dwell_unit", mcp.Description("Unit of dwell."), mcp.Enum("samples", "seconds")),
		mcp.WithNumber("rest_timeout", mcp.Description("Seconds of quiet current before rest is confirmed.")),
		mcp.WithString("polarity", mcp.Description("Sign of charge current."), mcp.Enum("charge_positive", "charge_negative")),
		mcp.WithString("malformed_policy", mcp.Description("What to do with malformed samples."), mcp.Enum("abort", "skip")),
		mcp.WithString("rest_mode", mcp.Description("Fold rest integrals into the preceding phase or exclude them."), mcp.Enum("fold", "exclude")),
		mcp.WithNumber("mass", mcp.Description("Active material mass in grams for specific metrics.")),
		mcp.WithString("phase_col", mcp.Description("Step marker column for the tagged classifier.")),
		mcp.WithBoolean("summary", mcp.Description("Include the run summary.")),
	), h.handleAnalyzeCycles)

	// --- 2. Tool: get_run_status ---
	s.AddTool(mcp.NewTool("get_run_status",
		mcp.WithDescription("Report the run history store: backend, run and cycle counts."),
	), h.handleGetRunStatus)

	return s
}

// StartMCPServer starts the Galvano MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.RunStore) error {
	s := NewMCPServer(baseCfg, store)
	return server.ServeStdio(s)
}
