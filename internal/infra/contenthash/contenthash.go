// Package contenthash derives registry content hashes from files and
// converts them to and from IPFS CIDs.
package contenthash

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"

	cid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/sync/errgroup"
)

// ImageExtensions are the file types HashDir picks up.
var ImageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

type FileHash struct {
	Path string             `json:"path"`
	Hash domain.ContentHash `json:"content_hash"`
	CID  string             `json:"cid"`
}

// HashReader returns the SHA-256 of everything read from r.
func HashReader(r io.Reader) (domain.ContentHash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return domain.ContentHash{}, err
	}
	return domain.FromBytes(h.Sum(nil))
}

func HashFile(path string) (domain.ContentHash, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ContentHash{}, err
	}
	defer f.Close()
	hash, err := HashReader(f)
	if err != nil {
		return domain.ContentHash{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return hash, nil
}

// HashDir hashes every image file below root with up to jobs concurrent
// readers. Results are ordered by path.
func HashDir(ctx context.Context, root string, jobs int) ([]FileHash, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := ImageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	if jobs <= 0 {
		jobs = 1
	}
	out := make([]FileHash, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hash, err := HashFile(path)
			if err != nil {
				return err
			}
			out[i] = FileHash{Path: path, Hash: hash, CID: CID(hash)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CID renders hash as a CIDv1 with the raw codec and a sha2-256 multihash,
// the identifier IPFS assigns to a single-block file with the same digest.
func CID(hash domain.ContentHash) string {
	mh, err := multihash.Encode(hash.Bytes(), multihash.SHA2_256)
	if err != nil {
		// Encode only fails for unknown codes or mismatched lengths.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, mh).String()
}

// FromCID extracts the digest of a sha2-256 CID.
func FromCID(s string) (domain.ContentHash, error) {
	c, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return domain.ContentHash{}, fmt.Errorf("%w: %w", domain.ErrInvalidHashFormat, err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return domain.ContentHash{}, fmt.Errorf("%w: %w", domain.ErrInvalidHashFormat, err)
	}
	if decoded.Code != multihash.SHA2_256 {
		return domain.ContentHash{}, fmt.Errorf("%w: cid uses %s, want sha2-256", domain.ErrInvalidHashFormat, multihash.Codes[decoded.Code])
	}
	return domain.FromBytes(decoded.Digest)
}

// Parse accepts a hex content hash or a sha2-256 CID.
func Parse(s string) (domain.ContentHash, error) {
	trimmed := strings.TrimSpace(s)
	if hash, err := domain.ParseHex(trimmed); err == nil {
		return hash, nil
	} else if !looksLikeCID(trimmed) {
		return domain.ContentHash{}, err
	}
	return FromCID(trimmed)
}

func looksLikeCID(s string) bool {
	return strings.HasPrefix(s, "b") || strings.HasPrefix(s, "Qm") || strings.HasPrefix(s, "z")
}
