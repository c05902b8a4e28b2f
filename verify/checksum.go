// Package verify builds and checks the sha1 checksum file of a dataset
// package.
package verify

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func hashReader(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileSHA1 is the hex sha1 of a file's contents.
func FileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashReader(f)
}

// PackageChecksum collects file hashes incrementally, so each file can be
// hashed just after it is written.
type PackageChecksum struct {
	hashes map[string]string
}

func NewPackageChecksum() *PackageChecksum {
	return &PackageChecksum{hashes: make(map[string]string)}
}

// AddFile hashes a file, or every file below a directory.
func (p *PackageChecksum) AddFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return filepath.Walk(path, func(sub string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return err
			}
			return p.AddFile(sub)
		})
	}

	hash, err := FileSHA1(path)
	if err != nil {
		return err
	}
	return p.set(path, hash)
}

// Add hashes data read from r and records it under path.
func (p *PackageChecksum) Add(r io.Reader, path string) error {
	if path == "" {
		return fmt.Errorf("no usable name for checksummed data")
	}
	hash, err := hashReader(r)
	if err != nil {
		return err
	}
	return p.set(path, hash)
}

func (p *PackageChecksum) set(path, hash string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	p.hashes[abs] = hash
	return nil
}

func (p *PackageChecksum) Len() int {
	return len(p.hashes)
}

// Paths returns the absolute paths of the hashed files, sorted.
func (p *PackageChecksum) Paths() []string {
	paths := make([]string, 0, len(p.hashes))
	for path := range p.hashes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (p *PackageChecksum) Hash(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	h, ok := p.hashes[abs]
	return h, ok
}

// Write saves the checksums as "<sha1>\t<path>" lines, with paths relative
// to the directory of the checksum file.
func (p *PackageChecksum) Write(checksumPath string) error {
	dir, err := filepath.Abs(filepath.Dir(checksumPath))
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, path := range p.Paths() {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%s is outside of the package %s", path, dir)
		}
		fmt.Fprintf(&b, "%s\t%s\n", p.hashes[path], filepath.ToSlash(rel))
	}
	return ioutil.WriteFile(checksumPath, []byte(b.String()), 0644)
}

// Read loads the checksums of a checksum file written by Write.
func (p *PackageChecksum) Read(checksumPath string) error {
	f, err := os.Open(checksumPath)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(checksumPath)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, "\t", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%s:%d: expected '<hash>\\t<path>'", checksumPath, line)
		}
		if err := p.set(filepath.Join(dir, filepath.FromSlash(parts[1])), parts[0]); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Result is the outcome of checking one file.
type Result struct {
	Path string
	OK   bool
	Err  error
}

// Verify re-hashes every recorded file. Missing or unreadable files are
// reported with their error.
func (p *PackageChecksum) Verify() []Result {
	paths := p.Paths()
	results := make([]Result, len(paths))
	for i, path := range paths {
		hash, err := FileSHA1(path)
		results[i] = Result{Path: path, OK: err == nil && hash == p.hashes[path], Err: err}
	}
	return results
}

// Equal reports whether both hold the same files and hashes.
func (p *PackageChecksum) Equal(o *PackageChecksum) bool {
	if len(p.hashes) != len(o.hashes) {
		return false
	}
	for path, hash := range p.hashes {
		if o.hashes[path] != hash {
			return false
		}
	}
	return true
}

// VerifyFile checks every file listed in a checksum file, returning the
// failures.
func VerifyFile(checksumPath string) ([]Result, error) {
	p := NewPackageChecksum()
	if err := p.Read(checksumPath); err != nil {
		return nil, err
	}
	var failed []Result
	for _, r := range p.Verify() {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed, nil
}
