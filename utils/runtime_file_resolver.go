package utils

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RuntimeFileResolver finds config files on a colon separated search
// path, then the working directory, then next to the executable.
type RuntimeFileResolver struct {
	DataDirs   []string
	fileLookup map[string]string
}

func NewRuntimeFileResolver(searchPath string) *RuntimeFileResolver {
	resolver := &RuntimeFileResolver{
		fileLookup: make(map[string]string),
	}

	for _, dataDir := range strings.Split(searchPath, ":") {
		dataDir = strings.TrimSpace(dataDir)
		if len(dataDir) == 0 {
			continue
		}
		resolver.DataDirs = append(resolver.DataDirs, dataDir)
	}

	cwd, err := os.Getwd()
	if err == nil {
		resolver.DataDirs = append(resolver.DataDirs, cwd)
	} else {
		log.Printf("Failed to get CWD: %v", err)
	}

	resolver.DataDirs = append(resolver.DataDirs, filepath.Dir(os.Args[0]))
	return resolver
}

func (r *RuntimeFileResolver) Resolve(filePath string) (string, error) {
	if filepath.IsAbs(filePath) {
		return filePath, checkFile(filePath)
	}

	for _, dataDir := range r.DataDirs {
		p := path.Clean(path.Join(dataDir, filePath))
		if checkFile(p) == nil {
			return p, nil
		}
	}

	return filePath, fmt.Errorf("Failed to resolve %v", filePath)
}

// Lookup is Resolve with the answers remembered.
func (r *RuntimeFileResolver) Lookup(filePath string) (string, error) {
	if p, found := r.fileLookup[filePath]; found {
		return p, nil
	}

	p, err := r.Resolve(filePath)
	if err != nil {
		return "", err
	}
	r.fileLookup[filePath] = p
	return p, nil
}

// FindConfigFile returns the first of "eo3.yaml" and "eo3.json" found on
// the search path EtcDir, or "" when there is none.
func FindConfigFile() string {
	resolver := NewRuntimeFileResolver(EtcDir)
	for _, name := range []string{"eo3.yaml", "eo3.json"} {
		if p, err := resolver.Lookup(name); err == nil {
			return p
		}
	}
	return ""
}

func checkFile(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filePath)
	}
	return nil
}
