package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
)

type UsageDecision struct {
	Allowed bool                 `json:"allowed"`
	Deny    []domain.PolicyDeny  `json:"deny,omitempty"`
	Status  domain.LicenseStatus `json:"status"`
}

type UsageReport struct {
	Purpose    string                   `json:"purpose"`
	BundleID   string                   `json:"bundle_id,omitempty"`
	BundleHash string                   `json:"bundle_hash"`
	Allowed    []string                 `json:"allowed"`
	Excluded   []string                 `json:"excluded"`
	Decisions  map[string]UsageDecision `json:"decisions"`
}

// UsageEvaluator decides, per content hash, whether a purpose such as
// training may use the content. Statuses are resolved fresh for every call.
type UsageEvaluator struct {
	Oracle *Oracle
	Policy PolicyEngine
}

func (e *UsageEvaluator) Evaluate(ctx context.Context, purpose string, inputs []string) (UsageReport, error) {
	if e == nil || e.Oracle == nil || e.Policy == nil {
		return UsageReport{}, errors.New("usage evaluator requires oracle and policy engine")
	}
	if purpose == "" {
		purpose = domain.PurposeTraining
	}
	statuses, err := e.Oracle.ResolveMany(ctx, HexInputs(inputs))
	if err != nil {
		return UsageReport{}, err
	}

	keys := make([]string, 0, len(statuses))
	for key := range statuses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	report := UsageReport{
		Purpose:   purpose,
		Allowed:   []string{},
		Excluded:  []string{},
		Decisions: make(map[string]UsageDecision, len(keys)),
	}
	for _, key := range keys {
		status := statuses[key]
		eval, err := e.Policy.Evaluate(ctx, domain.UsageInput{
			Purpose:     purpose,
			ContentHash: key,
			Status:      status,
		})
		if err != nil {
			return UsageReport{}, fmt.Errorf("evaluate usage policy for %s: %w", key, err)
		}
		report.BundleID = eval.BundleID
		report.BundleHash = eval.BundleHash
		report.Decisions[key] = UsageDecision{
			Allowed: eval.Result.Allow,
			Deny:    eval.Result.Deny,
			Status:  status,
		}
		if eval.Result.Allow {
			report.Allowed = append(report.Allowed, key)
		} else {
			report.Excluded = append(report.Excluded, key)
		}
	}
	return report, nil
}
