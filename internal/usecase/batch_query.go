package usecase

import (
	"context"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	"golang.org/x/sync/errgroup"
)

// ResolveMany resolves every input and keys the result by canonical hex.
// Inputs may mix any form domain.Normalize accepts. All inputs are
// normalized before the first registry call, so a malformed input aborts the
// batch without touching the registry. Duplicate inputs collapse into one
// entry.
func (o *Oracle) ResolveMany(ctx context.Context, inputs []any) (map[string]domain.LicenseStatus, error) {
	hashes := make([]domain.ContentHash, 0, len(inputs))
	for _, input := range inputs {
		hash, err := domain.Normalize(input)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return o.ResolveHashes(ctx, hashes)
}

func (o *Oracle) ResolveHashes(ctx context.Context, hashes []domain.ContentHash) (map[string]domain.LicenseStatus, error) {
	unique := dedupeHashes(hashes)
	if o.batchObserver != nil {
		o.batchObserver.ObserveBatch(len(unique))
	}
	results := make([]domain.LicenseStatus, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, hash := range unique {
		i, hash := i, hash
		g.Go(func() error {
			status, err := o.ResolveHash(gctx, hash)
			if err != nil {
				return err
			}
			results[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.LicenseStatus, len(unique))
	for i, hash := range unique {
		out[hash.Hex()] = results[i]
	}
	return out, nil
}

// HexInputs adapts a list of hex strings for ResolveMany.
func HexInputs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func dedupeHashes(hashes []domain.ContentHash) []domain.ContentHash {
	seen := make(map[domain.ContentHash]struct{}, len(hashes))
	out := make([]domain.ContentHash, 0, len(hashes))
	for _, hash := range hashes {
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		out = append(out, hash)
	}
	return out
}
