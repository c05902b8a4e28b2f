package main

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/nci/eodatasets/properties"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// warner prints property warnings to the command's error output.
func warner(cmd *cobra.Command) properties.Warner {
	return func(format string, args ...interface{}) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
	}
}

// parseAssignments splits "key=value" arguments. Later keys win.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		idx := strings.Index(arg, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[strings.TrimSpace(arg[:idx])] = strings.TrimSpace(arg[idx+1:])
	}
	return out, nil
}

// readProperties reads a flat YAML mapping of properties, as written in
// the properties section of a dataset document.
func readProperties(path string) (map[string]interface{}, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("properties file %s: %v", path, err)
	}
	return raw, nil
}

// setProperties loads the properties file (if any) into store, then the
// assignments over it. Keys are set in sorted order so that errors are
// reported the same way on every run.
func setProperties(store *properties.Store, file string, assignments []string) error {
	if file != "" {
		raw, err := readProperties(file)
		if err != nil {
			return err
		}
		if err := setSorted(store, raw); err != nil {
			return err
		}
	}
	values, err := parseAssignments(assignments)
	if err != nil {
		return err
	}
	generic := make(map[string]interface{}, len(values))
	for k, v := range values {
		generic[k] = v
	}
	return setSorted(store, generic)
}

func setSorted(store *properties.Store, values map[string]interface{}) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := store.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}
