// Package catalog reads guideline rule catalogs from YAML files and serves
// them as a rule repository. One file holds one tenant's versions:
//
//	tenant: clinic-a
//	versions:
//	  - id: 2025-09
//	    default: true
//	    rules:
//	      - id: hypertension-aerobic
//	        priority: critical
//	        condition:
//	          all:
//	            - {tag: hypertension, op: eq, val: true}
//	        outputs:
//	          aerobic:
//	            duration_range: [20, 40]
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trainrx/internal/types"
)

// Version is a guideline version together with its rules.
type Version struct {
	types.Version `yaml:",inline"`
	Rules         []types.Rule `yaml:"rules"`
}

// File is the on-disk shape of a catalog file.
type File struct {
	Tenant   string    `yaml:"tenant"`
	Versions []Version `yaml:"versions"`
}

// RuleError reports a rule that failed validation. It matches
// types.ErrInvalidRule and *types.ValidationError.
type RuleError struct {
	Source    string
	VersionID string
	RuleID    string
	Err       *types.ValidationError
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: version %q rule %q: %v", e.Source, e.VersionID, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() []error { return []error{types.ErrInvalidRule, e.Err} }

// Parse decodes and validates one catalog file. Every invalid rule is
// reported; the returned error joins them.
func Parse(data []byte, source string) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty catalog file", source)
		}
		return nil, fmt.Errorf("%s: failed to parse catalog: %w", source, err)
	}
	if f.Tenant == "" {
		return nil, fmt.Errorf("%s: tenant is required", source)
	}

	var errs []error
	seenVersions := make(map[string]bool, len(f.Versions))
	defaults := 0
	for i := range f.Versions {
		v := &f.Versions[i]
		v.Tenant = f.Tenant
		if v.Status == "" {
			v.Status = types.StatusPublished
		}
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("%s: version %d has no id", source, i))
			continue
		}
		if v.ID == types.DefaultVersion {
			errs = append(errs, fmt.Errorf("%s: version id %q is reserved", source, v.ID))
		}
		if seenVersions[v.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate version %q", source, v.ID))
		}
		seenVersions[v.ID] = true
		if v.IsDefault {
			defaults++
		}

		seenRules := make(map[string]bool, len(v.Rules))
		for _, rule := range v.Rules {
			if rule.ID != "" && seenRules[rule.ID] {
				errs = append(errs, fmt.Errorf("%s: version %q has duplicate rule %q", source, v.ID, rule.ID))
			}
			seenRules[rule.ID] = true
			if verr := ValidateRule(rule); verr != nil {
				errs = append(errs, &RuleError{Source: source, VersionID: v.ID, RuleID: rule.ID, Err: verr})
			}
		}
	}
	if defaults > 1 {
		errs = append(errs, fmt.Errorf("%s: tenant %q has %d default versions", source, f.Tenant, defaults))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &f, nil
}

// ParseFile reads and parses path.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, path)
}

// IsCatalogFile reports whether name looks like a catalog file.
func IsCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Files lists the catalog files in dir in lexical order.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsCatalogFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Catalog is an immutable, validated set of tenants and versions.
type Catalog struct {
	tenants map[string][]*Version
	sources []string
}

// Load parses every catalog file in dir.
func Load(dir string) (*Catalog, error) {
	paths, err := Files(dir)
	if err != nil {
		return nil, err
	}

	var files []*File
	var errs []error
	for _, path := range paths {
		f, err := ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c, err := New(files...)
	if err != nil {
		return nil, err
	}
	c.sources = paths
	return c, nil
}

// New assembles a catalog from parsed files. A tenant may span several
// files but version IDs must stay unique within it. A tenant without
// versions is still listed.
func New(files ...*File) (*Catalog, error) {
	c := &Catalog{tenants: make(map[string][]*Version)}
	for _, f := range files {
		if _, ok := c.tenants[f.Tenant]; !ok {
			c.tenants[f.Tenant] = nil
		}
		for i := range f.Versions {
			v := &f.Versions[i]
			for _, existing := range c.tenants[f.Tenant] {
				if existing.ID == v.ID {
					return nil, fmt.Errorf("tenant %q declares version %q twice", f.Tenant, v.ID)
				}
				if existing.IsDefault && v.IsDefault {
					return nil, fmt.Errorf("tenant %q has more than one default version (%q, %q)", f.Tenant, existing.ID, v.ID)
				}
			}
			c.tenants[f.Tenant] = append(c.tenants[f.Tenant], v)
		}
	}
	return c, nil
}

// Tenants returns the tenant names in sorted order.
func (c *Catalog) Tenants() []string {
	names := make([]string, 0, len(c.tenants))
	for name := range c.tenants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns a tenant's versions in declaration order.
func (c *Catalog) Versions(tenant string) []Version {
	out := make([]Version, 0, len(c.tenants[tenant]))
	for _, v := range c.tenants[tenant] {
		out = append(out, *v)
	}
	return out
}

// Sources returns the files the catalog was loaded from.
func (c *Catalog) Sources() []string {
	return append([]string(nil), c.sources...)
}

// RuleCount returns the number of rules across all tenants.
func (c *Catalog) RuleCount() int {
	n := 0
	for _, versions := range c.tenants {
		for _, v := range versions {
			n += len(v.Rules)
		}
	}
	return n
}

func (c *Catalog) lookup(tenant, id string) (*Version, bool) {
	for _, v := range c.tenants[tenant] {
		if id == types.DefaultVersion && v.IsDefault {
			return v, true
		}
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}
