package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// decisionSchemaJSON is the JSON Schema fixed for every prompt/agent hook's
// output.
const decisionSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"ok": { "type": "boolean" },
		"reason": { "type": "string" }
	},
	"required": ["ok"]
}`

var decisionSchema = compileDecisionSchema()

func compileDecisionSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	var doc any
	if err := json.Unmarshal([]byte(decisionSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("hooks: invalid embedded decision schema: %v", err))
	}
	const resourceURL = "mem://collab/hooks/decision.json"
	if err := compiler.AddResource(resourceURL, doc); err != nil {
		panic(fmt.Sprintf("hooks: could not register decision schema: %v", err))
	}
	schema, err := compiler.Compile(resourceURL)
	if err != nil {
		panic(fmt.Sprintf("hooks: could not compile decision schema: %v", err))
	}
	return schema
}

// Decision is the `{ok, reason?}` shape every prompt/agent hook must
// produce. Any other shape is a parse error.
type Decision struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ParseDecision trims text, validates it against the fixed decision schema,
// and decodes it. A schema violation or malformed JSON is a parse error,
// surfaced as a hook error, never as a block.
func ParseDecision(text string) (Decision, error) {
	trimmed := strings.TrimSpace(text)
	var doc any
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if err := dec.Decode(&doc); err != nil {
		return Decision{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := decisionSchema.Validate(doc); err != nil {
		return Decision{}, fmt.Errorf("decision did not match schema: %w", err)
	}
	var decision Decision
	if err := json.Unmarshal([]byte(trimmed), &decision); err != nil {
		return Decision{}, fmt.Errorf("invalid decision: %w", err)
	}
	return decision, nil
}

// Outcome is what a dispatcher does in response to a decision or error.
type Outcome int

const (
	// OutcomeOK: `{ok: true}`.
	OutcomeOK Outcome = iota
	// OutcomeBlocked: `{ok: false, reason}`, normalized per trimReason.
	OutcomeBlocked
	// OutcomeError: parse failure, timeout, or spawn error — never a block.
	OutcomeError
)

// Result is the outcome of executing one hook.
type Result struct {
	Outcome Outcome
	Reason  string // set when Outcome == OutcomeBlocked
	Err     error  // set when Outcome == OutcomeError
}

// resultFromDecision coerces a decision: {ok: true} is success,
// {ok: false, reason} is a block.
func resultFromDecision(d Decision) Result {
	if d.OK {
		return Result{Outcome: OutcomeOK}
	}
	return Result{Outcome: OutcomeBlocked, Reason: trimReason(d.Reason)}
}
