package pointcfg

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/native-config-v1.json
var nativeSchemaJSON string

//go:embed schema/gateway-config-v1.json
var gatewaySchemaJSON string

// ValidationResult is returned for documents that pass validation. Dialect
// mismatches and structural failures raise instead of reporting is_valid=false.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type Validator struct {
	native  *jsonschema.Schema
	gateway *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("native-config-v1.json",
		strings.NewReader(nativeSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add native schema resource: %w", err)
	}
	if err := compiler.AddResource("gateway-config-v1.json",
		strings.NewReader(gatewaySchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add gateway schema resource: %w", err)
	}

	native, err := compiler.Compile("native-config-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile native schema: %w", err)
	}
	gateway, err := compiler.Compile("gateway-config-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile gateway schema: %w", err)
	}

	return &Validator{native: native, gateway: gateway}, nil
}

// Validate checks raw against the declared dialect and, on success, returns
// the typed document. Checks run in order: dialect fingerprint first (a
// document in the other dialect is rejected before any required-field
// check), then the structural schema, then dialect-specific constraints.
func (v *Validator) Validate(raw []byte, dialect Dialect) (*Document, *ValidationResult, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, nil, newFormatError(dialect, "invalid JSON: %v", err)
	}

	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, nil, newFormatError(dialect, "document root must be a JSON object")
	}

	switch dialect {
	case DialectNative:
		return v.validateNative(raw, generic, obj)
	case DialectGateway:
		return v.validateGateway(raw, generic, obj)
	default:
		return nil, nil, newFormatError(dialect, "unsupported configuration format %q", string(dialect))
	}
}

func (v *Validator) validateNative(raw []byte, generic any, obj map[string]any) (*Document, *ValidationResult, error) {
	if hasGatewayFingerprint(obj) {
		return nil, nil, &ConfigFormatError{
			Expected: DialectNative,
			Detected: DialectGateway,
			Reason:   "found master.slaves section; select the gateway format for this file",
		}
	}

	// Legacy multi-controller exports are not importable.
	if _, ok := obj["controllers"]; ok {
		return nil, nil, &DuplicateError{
			Constraint: "only single controller import is supported, document contains a controllers list",
		}
	}

	if err := v.native.Validate(generic); err != nil {
		return nil, nil, newFormatError(DialectNative, "%v", err)
	}

	var doc NativeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, newFormatError(DialectNative, "malformed document: %v", err)
	}

	for i, p := range doc.Points {
		if _, err := types.ParsePointKind(p.Type); err != nil {
			return nil, nil, newFormatError(DialectNative, "point %d: %v", i, err)
		}
	}

	return &Document{Dialect: DialectNative, Native: &doc}, okResult(), nil
}

func (v *Validator) validateGateway(raw []byte, generic any, obj map[string]any) (*Document, *ValidationResult, error) {
	if hasNativeFingerprint(obj) {
		return nil, nil, &ConfigFormatError{
			Expected: DialectGateway,
			Detected: DialectNative,
			Reason:   "found controller/points sections; select the native format for this file",
		}
	}

	if err := v.gateway.Validate(generic); err != nil {
		return nil, nil, newFormatError(DialectGateway, "%v", err)
	}

	var doc GatewayDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, newFormatError(DialectGateway, "malformed document: %v", err)
	}

	switch n := len(doc.Master.Slaves); {
	case n == 0:
		return nil, nil, newFormatError(DialectGateway, "no slaves found in master section")
	case n > 1:
		return nil, nil, &DuplicateError{
			Constraint: fmt.Sprintf("only single controller import is supported, found %d slaves", n),
		}
	}

	return &Document{Dialect: DialectGateway, Gateway: &doc}, okResult(), nil
}

func hasNativeFingerprint(obj map[string]any) bool {
	if _, ok := obj["controllers"]; ok {
		return true
	}
	_, hasController := obj["controller"]
	_, hasPoints := obj["points"]
	return hasController && hasPoints
}

func hasGatewayFingerprint(obj map[string]any) bool {
	master, ok := obj["master"].(map[string]any)
	if !ok {
		return false
	}
	_, hasSlaves := master["slaves"]
	return hasSlaves
}

func okResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}
