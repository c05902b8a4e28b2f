package verify

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSHA1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "abc")
	hash, err := FileSHA1(path)
	if err != nil {
		t.Fatal(err)
	}
	if hash != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("unexpected sha1 %s", hash)
	}
}

func TestWriteReadVerify(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.tif"), "band")
	writeFile(t, filepath.Join(dir, "a.yaml"), "doc")
	writeFile(t, filepath.Join(dir, "sub", "c.jpg"), "thumb")

	p := NewPackageChecksum()
	for _, name := range []string{"b.tif", "a.yaml", "sub"} {
		if err := p.AddFile(filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 files, got %d", p.Len())
	}

	sums := filepath.Join(dir, "package.sha1")
	if err := p.Write(sums); err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadFile(sums)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"a.yaml", "b.tif", "sub/c.jpg"}
	if len(lines) != len(want) {
		t.Fatalf("unexpected checksum file:\n%s", data)
	}
	for i, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) != 2 || len(parts[0]) != 40 || parts[1] != want[i] {
			t.Errorf("unexpected line %q", line)
		}
	}

	read := NewPackageChecksum()
	if err := read.Read(sums); err != nil {
		t.Fatal(err)
	}
	if !read.Equal(p) {
		t.Error("checksums read back differ from those written")
	}

	failed, err := VerifyFile(sums)
	if err != nil || len(failed) != 0 {
		t.Errorf("expected a clean package, got %v (%v)", failed, err)
	}

	writeFile(t, filepath.Join(dir, "b.tif"), "changed")
	os.Remove(filepath.Join(dir, "sub", "c.jpg"))
	failed, err = VerifyFile(sums)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 2 || filepath.Base(failed[0].Path) != "b.tif" || failed[0].Err != nil || failed[1].Err == nil {
		t.Errorf("unexpected failures %+v", failed)
	}
}

func TestAddReader(t *testing.T) {
	dir := t.TempDir()
	p := NewPackageChecksum()
	if err := p.Add(strings.NewReader("abc"), filepath.Join(dir, "x.txt")); err != nil {
		t.Fatal(err)
	}
	if h, ok := p.Hash(filepath.Join(dir, "x.txt")); !ok || h != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("unexpected hash %q", h)
	}
	if err := p.Add(strings.NewReader("abc"), ""); err == nil {
		t.Error("expected an error without a name")
	}
}

func TestOutsidePackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "outside.txt"), "x")
	p := NewPackageChecksum()
	if err := p.AddFile(filepath.Join(dir, "outside.txt")); err != nil {
		t.Fatal(err)
	}
	if err := p.Write(filepath.Join(dir, "pkg", "package.sha1")); err == nil {
		t.Error("expected an error for a file outside the package")
	}
}

func TestBadChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sha1")
	writeFile(t, path, "no tab here\n")
	if _, err := VerifyFile(path); err == nil {
		t.Error("expected a parse error")
	}
}
