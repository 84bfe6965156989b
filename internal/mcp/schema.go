package mcp

// SweepGenerateInput defines the input for the sweep_generate tool.
type SweepGenerateInput struct {
	Evaluator       string             `json:"evaluator" jsonschema:"Registered evaluator name (see sweep_evaluators)"`
	Parameters      []string           `json:"parameters" jsonschema:"Swept parameters as name=start:stop:step, in sweep order"`
	Datasets        int                `json:"datasets,omitempty" jsonschema:"Number of replicas per combination (default: 1)"`
	Output          string             `json:"output,omitempty" jsonschema:"Output root; must lie inside an allowed root (default: configured output dir)"`
	DoubleSweep     bool               `json:"double_sweep,omitempty" jsonschema:"Sweep every unordered pair of parameters instead of each one alone"`
	Training        bool               `json:"training,omitempty" jsonschema:"Build subjects with a trainable readout"`
	GenerateInput   bool               `json:"generate_input,omitempty" jsonschema:"Synthesize a random input sequence for every step"`
	KeepBuildPath   *bool              `json:"keep_build_path,omitempty" jsonschema:"Keep per-step build directories after stitching"`
	Seed            *uint64            `json:"seed,omitempty" jsonschema:"Base seed; 0 draws random replica seeds"`
	InputPolicy     string             `json:"input_policy,omitempty" jsonschema:"per-step or per-replica"`
	EvaluatorParams []string           `json:"evaluator_params,omitempty" jsonschema:"Evaluator parameters as name=value, in order"`
	Bindings        map[string]string  `json:"bindings,omitempty" jsonschema:"Swept name to config:<key> or param:<name>"`
	Defaults        map[string]float64 `json:"defaults,omitempty" jsonschema:"Defaults table overrides for this run"`
}

// SweepGenerateOutput defines the output for the sweep_generate tool.
type SweepGenerateOutput struct {
	RunID     string              `json:"run_id" jsonschema:"Run identifier, also recorded in the trace"`
	Dir       string              `json:"dir" jsonschema:"Evaluator output directory"`
	Seeds     []uint64            `json:"seeds" jsonschema:"Replica seeds in replica order"`
	Documents []GeneratedDocument `json:"documents" jsonschema:"Stitched documents written by the run"`
	Message   string              `json:"message" jsonschema:"Human-readable result message"`
}

// GeneratedDocument describes one stitched replica.
type GeneratedDocument struct {
	Combination string `json:"combination"`
	Replica     int    `json:"replica"`
	Path        string `json:"path"`
	Steps       int    `json:"steps"`
	Bytes       int    `json:"bytes"`
}

// SweepEvaluatorsInput defines the input for the sweep_evaluators tool.
type SweepEvaluatorsInput struct{}

// SweepEvaluatorsOutput defines the output for the sweep_evaluators tool.
type SweepEvaluatorsOutput struct {
	Evaluators []EvaluatorSummary `json:"evaluators" jsonschema:"Registered evaluators sorted by name"`
	Count      int                `json:"count" jsonschema:"Number of evaluators"`
}

// EvaluatorSummary describes a registered evaluator.
type EvaluatorSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// SweepInspectInput defines the input for the sweep_inspect tool.
type SweepInspectInput struct {
	Path      string `json:"path" jsonschema:"Stitched document to inspect"`
	Artifacts int    `json:"artifacts,omitempty" jsonschema:"Number of leading artifacts to include (default: 0)"`
}

// SweepInspectOutput defines the output for the sweep_inspect tool.
type SweepInspectOutput struct {
	Path      string         `json:"path"`
	TestBed   []TestBedEntry `json:"test_bed" jsonschema:"Test bed entries in document order"`
	Swept     []string       `json:"swept" jsonschema:"Keys holding a [start, stop, step] bound"`
	Count     int            `json:"count" jsonschema:"Number of artifacts in the document"`
	SizeBytes int64          `json:"size_bytes"`
	Artifacts []any          `json:"artifacts,omitempty" jsonschema:"Leading artifacts when requested"`
}

// TestBedEntry is one key of a test bed.
type TestBedEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// SweepExportInput defines the input for the sweep_export tool.
type SweepExportInput struct {
	Path   string `json:"path" jsonschema:"Stitched document to export"`
	Output string `json:"output,omitempty" jsonschema:"Arrow IPC file to write (default: the document path with .arrow)"`
}

// SweepExportOutput defines the output for the sweep_export tool.
type SweepExportOutput struct {
	Path    string `json:"path"`
	Rows    int64  `json:"rows"`
	Message string `json:"message"`
}
