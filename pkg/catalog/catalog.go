// Package catalog loads the static service catalog and normalizes it into
// the lookup, dependency-closure, and install-order operations the
// lifecycle and installation layers need. The catalog never mutates once
// loaded; the only dynamic bit is the "is this already running" check,
// which is delegated to a ContainerProbe over the runtime client.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/noona-project/warden/pkg/types"
)

//go:embed catalog.yaml
var embeddedCatalog embed.FS

// bootOrder is the canonical tie-break for Closure's topological sort:
// addons first, then core services in this fixed order.
var bootOrder = []types.ServiceRole{
	types.RoleCache, types.RoleDatabase, types.RoleStore, types.RoleUI,
	types.RoleIntegration, types.RoleDownloader,
}

// ContainerProbe answers whether a named service's container already
// exists, consulted by List's includeInstalled filter.
type ContainerProbe interface {
	ContainerExists(ctx context.Context, name string) (bool, error)
}

// DependencyCycle is returned by Closure when the requested services'
// dependency graph (or the catalog itself) contains a cycle.
type DependencyCycle struct {
	Path []string
}

func (e *DependencyCycle) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Path)
}

// UnknownService is returned by Closure or Get when a name isn't in the
// catalog.
type UnknownService struct {
	Name string
}

func (e *UnknownService) Error() string {
	return fmt.Sprintf("unknown service %q", e.Name)
}

// Catalog is the normalized, in-memory view of every known service
// descriptor, keyed by name.
type Catalog struct {
	descriptors map[string]types.ServiceDescriptor
	order       []string // insertion order, for stable iteration
	probe       ContainerProbe
}

// catalogDocument is the shape of catalog.yaml.
type catalogDocument struct {
	Services []types.ServiceDescriptor `yaml:"services"`
}

// Load reads the embedded catalog.yaml, validates it (every dependency
// resolves, no cycles among all services), and returns a ready Catalog.
func Load(probe ContainerProbe) (*Catalog, error) {
	raw, err := embeddedCatalog.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}
	return LoadFromYAML(raw, probe)
}

// LoadFromYAML parses catalog YAML from an arbitrary source; exported so
// tests (and an eventual --catalog-file override) don't need the embed.
func LoadFromYAML(raw []byte, probe ContainerProbe) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		descriptors: make(map[string]types.ServiceDescriptor, len(doc.Services)),
		probe:       probe,
	}
	for _, svc := range doc.Services {
		c.descriptors[svc.Name] = svc
		c.order = append(c.order, svc.Name)
	}

	for _, svc := range doc.Services {
		for _, dep := range svc.Dependencies {
			if _, ok := c.descriptors[dep]; !ok {
				return nil, &UnknownService{Name: dep}
			}
		}
	}

	allNames := make([]string, len(c.order))
	copy(allNames, c.order)
	if _, err := c.closure(allNames); err != nil {
		return nil, err
	}

	return c, nil
}

// Get returns the descriptor for a service, or UnknownService.
func (c *Catalog) Get(name string) (types.ServiceDescriptor, error) {
	d, ok := c.descriptors[name]
	if !ok {
		return types.ServiceDescriptor{}, &UnknownService{Name: name}
	}
	return d, nil
}

// List returns every cataloged service, sorted alphabetically by display
// name. When includeInstalled is false, services whose container is
// already running (per the ContainerProbe) are excluded.
func (c *Catalog) List(includeInstalled bool) []types.DescriptorSummary {
	summaries := make([]types.DescriptorSummary, 0, len(c.order))

	for _, name := range c.order {
		d := c.descriptors[name]
		installed := c.isInstalled(name)
		if installed && !includeInstalled {
			continue
		}
		summaries = append(summaries, types.DescriptorSummary{
			Name:         d.Name,
			DisplayName:  d.DisplayName,
			Category:     d.Category,
			Image:        d.Image,
			Port:         d.Port,
			HealthURL:    d.HealthURL,
			EnvConfig:    d.EnvConfig,
			Dependencies: d.Dependencies,
			Installed:    installed,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DisplayName < summaries[j].DisplayName
	})

	return summaries
}

func (c *Catalog) isInstalled(name string) bool {
	if c.probe == nil {
		return false
	}
	exists, err := c.probe.ContainerExists(context.Background(), name)
	return err == nil && exists
}

// Closure returns a stable topological sort of the transitive dependency
// closure of names: every dependency before its dependents, ties broken by
// the fixed boot order (addons first, then bootOrder's canonical sequence).
func (c *Catalog) Closure(names []string) ([]string, error) {
	return c.closure(names)
}

func (c *Catalog) closure(names []string) ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return &DependencyCycle{Path: append(append([]string{}, path...), name)}
		}
		d, ok := c.descriptors[name]
		if !ok {
			return &UnknownService{Name: name}
		}

		visiting[name] = true
		deps := make([]string, len(d.Dependencies))
		copy(deps, d.Dependencies)
		sort.SliceStable(deps, func(i, j int) bool {
			return c.bootRank(deps[i]) < c.bootRank(deps[j])
		})
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	unique := dedupe(names)
	sort.SliceStable(unique, func(i, j int) bool {
		return c.bootRank(unique[i]) < c.bootRank(unique[j])
	})

	for _, name := range unique {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// Required reports whether name is a dependency of some other known
// service (i.e. it would be pulled in by some other service's closure).
func (c *Catalog) Required(name string) bool {
	for _, d := range c.descriptors {
		for _, dep := range d.Dependencies {
			if dep == name {
				return true
			}
		}
	}
	return false
}

// bootRank orders services by category (addon before core) then by the
// fixed super boot order of their role; unlisted/unknown names sort last,
// stably, among themselves.
func (c *Catalog) bootRank(name string) int {
	d, ok := c.descriptors[name]
	if !ok {
		return 2 * (len(bootOrder) + 1)
	}

	categoryRank := 1
	if d.Category == types.CategoryAddon {
		categoryRank = 0
	}

	roleRank := len(bootOrder)
	for i, role := range bootOrder {
		if role == d.Role {
			roleRank = i
			break
		}
	}

	return categoryRank*(len(bootOrder)+1) + roleRank
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
