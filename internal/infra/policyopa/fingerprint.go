package policyopa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const dataFile = "data.json"

// policyFile is one normative file of a usage policy bundle.
type policyFile struct {
	name string
	src  []byte
}

// readPolicy collects the rego modules and data.json below root, sorted by
// root-relative path. Tests, hidden entries and vendored code are skipped.
func readPolicy(fsys fs.FS, root string) ([]policyFile, error) {
	var files []policyFile
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		base := d.Name()
		if d.IsDir() {
			if p != root && (strings.HasPrefix(base, ".") || base == "vendor") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") || !isPolicyFile(base) {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := p
		if root != "." {
			name = strings.TrimPrefix(p, path.Clean(root)+"/")
		}
		files = append(files, policyFile{name: name, src: src})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read usage policy: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func isPolicyFile(base string) bool {
	if base == dataFile {
		return true
	}
	return strings.HasSuffix(base, ".rego") && !strings.HasSuffix(base, "_test.rego")
}

// fingerprint is the SHA-256 over "name\x00sha256(src)\n" for every file in
// order. It changes whenever a rule or the policy data changes and is stable
// across checkouts.
func fingerprint(files []policyFile) string {
	h := sha256.New()
	for _, f := range files {
		sum := sha256.Sum256(f.src)
		_, _ = io.WriteString(h, f.name+"\x00"+hex.EncodeToString(sum[:])+"\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the usage policy stored below root in fsys.
func Fingerprint(fsys fs.FS, root string) (string, error) {
	files, err := readPolicy(fsys, root)
	if err != nil {
		return "", err
	}
	return fingerprint(files), nil
}
