package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/sweepgen/internal/config"
	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/export"
	"github.com/nvandessel/sweepgen/internal/pathutil"
	"github.com/nvandessel/sweepgen/internal/stitch"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

// registerTools registers the sweep tools with the MCP server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_generate",
		Description: "Sweep one or two model parameters, run an evaluator at every point and write one stitched JSON document per combination and replica",
	}, s.handleSweepGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_evaluators",
		Description: "List the registered evaluators and the parameters they read",
	}, s.handleSweepEvaluators)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_inspect",
		Description: "Summarize a stitched document: its test bed, swept keys and artifact count",
	}, s.handleSweepInspect)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_export",
		Description: "Export a stitched document to an Arrow IPC file for columnar analysis",
	}, s.handleSweepExport)
}

// handleSweepGenerate implements the sweep_generate tool.
func (s *Server) handleSweepGenerate(ctx context.Context, req *sdk.CallToolRequest, args SweepGenerateInput) (_ *sdk.CallToolResult, _ SweepGenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_generate", start, retErr, sanitizeToolParams(map[string]any{
			"evaluator":        args.Evaluator,
			"datasets":         args.Datasets,
			"double_sweep":     args.DoubleSweep,
			"training":         args.Training,
			"generate_input":   args.GenerateInput,
			"input_policy":     args.InputPolicy,
			"seed":             args.Seed,
			"output":           args.Output,
			"parameters":       len(args.Parameters) > 0,
			"evaluator_params": len(args.EvaluatorParams) > 0,
			"bindings":         len(args.Bindings) > 0,
			"defaults":         len(args.Defaults) > 0,
		}))
	}()

	if err := s.limiters.Check("sweep_generate"); err != nil {
		return nil, SweepGenerateOutput{}, err
	}

	request, err := generateRequest(args)
	if err != nil {
		return nil, SweepGenerateOutput{}, err
	}
	opts, err := request.Options(s.settings)
	if err != nil {
		return nil, SweepGenerateOutput{}, err
	}
	if err := pathutil.Confine(opts.OutputDir, s.roots); err != nil {
		return nil, SweepGenerateOutput{}, fmt.Errorf("output path rejected: %w", err)
	}

	summary, err := s.runner.Run(ctx, opts)
	if err != nil {
		return nil, SweepGenerateOutput{}, fmt.Errorf("sweep failed: %w", err)
	}

	out := SweepGenerateOutput{
		RunID:     summary.RunID,
		Dir:       summary.Dir,
		Seeds:     summary.Seeds,
		Documents: make([]GeneratedDocument, 0, len(summary.Documents)),
	}
	for _, d := range summary.Documents {
		out.Documents = append(out.Documents, GeneratedDocument{
			Combination: d.Combination,
			Replica:     d.Replica,
			Path:        d.Path,
			Steps:       d.Steps,
			Bytes:       d.Bytes,
		})
	}
	out.Message = fmt.Sprintf("Wrote %d documents for %s in %s", len(out.Documents), summary.Evaluator, summary.Finished.Sub(summary.Started).Round(time.Millisecond))
	return nil, out, nil
}

// generateRequest converts tool arguments into a sweep request.
func generateRequest(args SweepGenerateInput) (*config.Request, error) {
	r := &config.Request{
		Evaluator:     args.Evaluator,
		Datasets:      args.Datasets,
		Output:        args.Output,
		DoubleSweep:   args.DoubleSweep,
		Training:      args.Training,
		GenerateInput: args.GenerateInput,
		KeepBuildPath: args.KeepBuildPath,
		Seed:          args.Seed,
		InputPolicy:   args.InputPolicy,
		Bindings:      args.Bindings,
		Defaults:      args.Defaults,
	}
	if r.Datasets == 0 {
		r.Datasets = 1
	}
	for _, text := range args.Parameters {
		spec, err := sweep.ParseSpec(text)
		if err != nil {
			return nil, err
		}
		r.Parameters = append(r.Parameters, spec)
	}
	for _, text := range args.EvaluatorParams {
		p, err := evaluator.ParseParam(text)
		if err != nil {
			return nil, err
		}
		r.EvaluatorParams = append(r.EvaluatorParams, p)
	}
	return r, nil
}

// handleSweepEvaluators implements the sweep_evaluators tool.
func (s *Server) handleSweepEvaluators(ctx context.Context, req *sdk.CallToolRequest, args SweepEvaluatorsInput) (_ *sdk.CallToolResult, _ SweepEvaluatorsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_evaluators", start, retErr, sanitizeToolParams(map[string]any{}))
	}()

	if err := s.limiters.Check("sweep_evaluators"); err != nil {
		return nil, SweepEvaluatorsOutput{}, err
	}

	infos := s.registry.List()
	out := SweepEvaluatorsOutput{
		Evaluators: make([]EvaluatorSummary, 0, len(infos)),
		Count:      len(infos),
	}
	for _, info := range infos {
		out.Evaluators = append(out.Evaluators, EvaluatorSummary{
			Name:        info.Name,
			Description: info.Description,
			Params:      info.Params,
		})
	}
	return nil, out, nil
}

// handleSweepInspect implements the sweep_inspect tool.
func (s *Server) handleSweepInspect(ctx context.Context, req *sdk.CallToolRequest, args SweepInspectInput) (_ *sdk.CallToolResult, _ SweepInspectOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_inspect", start, retErr, sanitizeToolParams(map[string]any{
			"path":      args.Path,
			"artifacts": args.Artifacts,
		}))
	}()

	if err := s.limiters.Check("sweep_inspect"); err != nil {
		return nil, SweepInspectOutput{}, err
	}
	if args.Artifacts < 0 {
		return nil, SweepInspectOutput{}, fmt.Errorf("artifacts must be non-negative, got %d", args.Artifacts)
	}
	if err := pathutil.Confine(args.Path, s.roots); err != nil {
		return nil, SweepInspectOutput{}, fmt.Errorf("document path rejected: %w", err)
	}

	info, err := os.Stat(args.Path)
	if err != nil {
		return nil, SweepInspectOutput{}, fmt.Errorf("failed to stat document: %w", err)
	}
	doc, err := stitch.ReadDocument(args.Path)
	if err != nil {
		return nil, SweepInspectOutput{}, err
	}

	out := SweepInspectOutput{
		Path:      args.Path,
		Swept:     doc.Swept(),
		Count:     len(doc.Artifacts),
		SizeBytes: info.Size(),
	}
	if out.Swept == nil {
		out.Swept = []string{}
	}
	for _, key := range doc.TestBed.Keys() {
		v, _ := doc.TestBed.Get(key)
		decoded, err := decodeValue(v)
		if err != nil {
			return nil, SweepInspectOutput{}, fmt.Errorf("test bed entry %q: %w", key, err)
		}
		out.TestBed = append(out.TestBed, TestBedEntry{Key: key, Value: decoded})
	}
	for i := 0; i < args.Artifacts && i < len(doc.Artifacts); i++ {
		decoded, err := decodeValue(doc.Artifacts[i])
		if err != nil {
			return nil, SweepInspectOutput{}, fmt.Errorf("artifact %d: %w", i, err)
		}
		out.Artifacts = append(out.Artifacts, decoded)
	}
	return nil, out, nil
}

// decodeValue turns raw JSON into plain Go values; other values pass through.
func decodeValue(v any) (any, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		return v, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// handleSweepExport implements the sweep_export tool.
func (s *Server) handleSweepExport(ctx context.Context, req *sdk.CallToolRequest, args SweepExportInput) (_ *sdk.CallToolResult, _ SweepExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_export", start, retErr, sanitizeToolParams(map[string]any{
			"path":   args.Path,
			"output": args.Output,
		}))
	}()

	if err := s.limiters.Check("sweep_export"); err != nil {
		return nil, SweepExportOutput{}, err
	}
	if err := pathutil.Confine(args.Path, s.roots); err != nil {
		return nil, SweepExportOutput{}, fmt.Errorf("document path rejected: %w", err)
	}
	output := args.Output
	if output == "" {
		output = export.PathFor(args.Path)
	}
	if err := pathutil.Confine(output, s.roots); err != nil {
		return nil, SweepExportOutput{}, fmt.Errorf("export path rejected: %w", err)
	}

	doc, err := stitch.ReadDocument(args.Path)
	if err != nil {
		return nil, SweepExportOutput{}, err
	}
	result, err := export.WriteFile(doc, output)
	if err != nil {
		return nil, SweepExportOutput{}, fmt.Errorf("export failed: %w", err)
	}
	return nil, SweepExportOutput{
		Path:    result.Path,
		Rows:    result.Rows,
		Message: fmt.Sprintf("Exported %d rows to %s", result.Rows, result.Path),
	}, nil
}
