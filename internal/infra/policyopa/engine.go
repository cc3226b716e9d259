package policyopa

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/open-policy-agent/opa/util"
)

const (
	resultQuery     = "data.artemis.usage.result"
	DefaultBundleID = "artemis-usage-default"
)

//go:embed policy/*.rego
var defaultPolicy embed.FS

// Engine evaluates the usage policy for one content hash at a time. The
// prepared query is safe for concurrent use.
type Engine struct {
	query       rego.PreparedEvalQuery
	fingerprint string
	bundleID    string
}

// NewEngine compiles the policy directory at dir, or the embedded usage
// policy when dir is empty.
func NewEngine(ctx context.Context, dir, bundleID string) (*Engine, error) {
	if dir == "" {
		return NewDefaultEngine(ctx)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("usage policy: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("usage policy %s is not a directory", dir)
	}
	files, err := readPolicy(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	if bundleID == "" {
		bundleID = dir
	}
	return compile(ctx, files, bundleID)
}

func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	files, err := readPolicy(defaultPolicy, "policy")
	if err != nil {
		return nil, err
	}
	return compile(ctx, files, DefaultBundleID)
}

// compile parses every module against the restricted capabilities, so a
// policy calling a nondeterministic builtin fails here rather than at
// evaluation time.
func compile(ctx context.Context, files []policyFile, bundleID string) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)

	modules := make(map[string]*ast.Module, len(files))
	options := []func(*rego.Rego){rego.Query(resultQuery), rego.StrictBuiltinErrors(true)}
	for _, f := range files {
		if path.Base(f.name) == dataFile {
			if f.name != dataFile {
				return nil, fmt.Errorf("usage policy: %s must sit at the policy root", f.name)
			}
			var data map[string]any
			if err := util.UnmarshalJSON(f.src, &data); err != nil {
				return nil, fmt.Errorf("parse %s: %w", dataFile, err)
			}
			options = append(options, rego.Store(inmem.NewFromObject(data)))
			continue
		}
		module, err := ast.ParseModuleWithOpts(f.name, string(f.src), ast.ParserOptions{Capabilities: capabilities})
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
		modules[f.name] = module
	}
	if len(modules) == 0 {
		return nil, errors.New("usage policy has no rego modules")
	}

	compiler := ast.NewCompiler().WithCapabilities(capabilities)
	if compiler.Compile(modules); compiler.Failed() {
		return nil, fmt.Errorf("compile usage policy: %w", compiler.Errors)
	}
	options = append(options, rego.Compiler(compiler))

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare usage policy: %w", err)
	}
	return &Engine{query: prepared, fingerprint: fingerprint(files), bundleID: bundleID}, nil
}

func (e *Engine) BundleHash() string { return e.fingerprint }

func (e *Engine) BundleID() string { return e.bundleID }

func (e *Engine) Evaluate(ctx context.Context, input domain.UsageInput) (domain.PolicyEvaluation, error) {
	if e == nil {
		return domain.PolicyEvaluation{}, errors.New("policy engine is nil")
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyEvaluation{}, fmt.Errorf("evaluate usage policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return domain.PolicyEvaluation{}, fmt.Errorf("usage policy: %s is undefined", resultQuery)
	}
	result, err := toPolicyResult(rs[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyEvaluation{}, err
	}
	return domain.PolicyEvaluation{
		BundleID:   e.bundleID,
		BundleHash: e.fingerprint,
		Result:     result,
	}, nil
}

// toPolicyResult reads {"allow": bool, "deny": [{"code", "message"}]}. Denies
// are ordered by code then message, and any deny forces allow to false.
func toPolicyResult(value any) (domain.PolicyResult, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return domain.PolicyResult{}, fmt.Errorf("usage policy result is %T, want object", value)
	}
	var result domain.PolicyResult
	if allow, ok := obj["allow"].(bool); ok {
		result.Allow = allow
	}
	denies, _ := obj["deny"].([]any)
	for _, raw := range denies {
		item, ok := raw.(map[string]any)
		if !ok {
			return domain.PolicyResult{}, fmt.Errorf("usage policy deny entry is %T, want object", raw)
		}
		code, _ := item["code"].(string)
		if code == "" {
			return domain.PolicyResult{}, errors.New("usage policy deny entry has no code")
		}
		message, _ := item["message"].(string)
		result.Deny = append(result.Deny, domain.PolicyDeny{Code: code, Message: message})
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code != result.Deny[j].Code {
			return result.Deny[i].Code < result.Deny[j].Code
		}
		return result.Deny[i].Message < result.Deny[j].Message
	})
	if len(result.Deny) > 0 {
		result.Allow = false
	}
	return result, nil
}

var _ usecase.PolicyEngine = (*Engine)(nil)
