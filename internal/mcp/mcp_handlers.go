package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/galvano/core"
	"github.com/huangsam/galvano/internal/contract"
	"github.com/huangsam/galvano/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.RunStore
}

// analyzeResult is the JSON document returned by analyze_cycles.
type analyzeResult struct {
	Source  string                       `json:"source"`
	RunID   int64                        `json:"run_id,omitempty"`
	Cycles  []schema.EnrichedCycleRecord `json:"cycles"`
	Stats   schema.RunStats              `json:"stats"`
	Summary *schema.RunSummary           `json:"summary,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

// applyEngineOverrides copies the optional tool arguments onto cfg.
func applyEngineOverrides(cfg *contract.Config, request mcp.CallToolRequest) {
	ec := &cfg.Engine
	if v := request.GetString("classifier", ""); v != "" {
		ec.Classifier = schema.ClassifierKind(strings.ToLower(v))
	}
	if v := request.GetFloat("noise_threshold", -1); v >= 0 {
		ec.NoiseThreshold = v
	}
	if v := request.GetFloat("dwell", -1); v >= 0 {
		ec.Dwell = v
	}
	if v := request.GetString("dwell_unit", ""); v != "" {
		ec.DwellUnit = schema.DwellUnit(strings.ToLower(v))
	}
	if v := request.GetFloat("rest_timeout", -1); v >= 0 {
		ec.RestTimeout = v
	}
	if v := request.GetString("polarity", ""); v != "" {
		ec.Polarity = schema.Polarity(strings.ToLower(v))
	}
	if v := request.GetString("malformed_policy", ""); v != "" {
		ec.MalformedPolicy = schema.MalformedPolicy(strings.ToLower(v))
	}
	if v := request.GetString("rest_mode", ""); v != "" {
		ec.RestMode = schema.RestMode(strings.ToLower(v))
	}
	if v := request.GetFloat("mass", -1); v >= 0 {
		ec.MassGrams = v
	}
	if v := request.GetString("phase_col", ""); v != "" {
		cfg.Columns.Phase = strings.TrimSpace(v)
	}
}

func (h *toolHandler) handleAnalyzeCycles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyEngineOverrides(cfg, request)

	if err := contract.RevalidateAnalyze(cfg, request.GetString("path", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid analysis parameters: %v", err)), nil
	}

	output, _, err := core.GetAnalysisResults(core.WithSuppressHeader(ctx), cfg, h.store)
	if output == nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	result := analyzeResult{
		Source: output.SourcePath,
		RunID:  output.RunID,
		Cycles: schema.EnrichCycles(output.Records),
		Stats:  output.Stats,
	}
	if request.GetBool("summary", cfg.Summary) {
		result.Summary = &output.Summary
	}
	if err != nil {
		result.Error = fmt.Sprintf("analysis failed: %v", err)
	}
	jsonData, _ := json.MarshalIndent(result, "", "  ")
	res := mcp.NewToolResultText(string(jsonData))
	res.IsError = err != nil
	return res, nil
}

func (h *toolHandler) handleGetRunStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.store == nil {
		return mcp.NewToolResultError("run history is not configured"), nil
	}
	status, err := h.store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
