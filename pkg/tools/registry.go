package tools

import (
	"fmt"
	"sort"
	"sync"
)

// immutableRegistry is the global, read-only tool registry. Registration
// happens at startup; the registry seals on first read.
type immutableRegistry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]Tool
}

//nolint:gochecknoglobals // registry pattern requires a package-level instance
var globalRegistry = &immutableRegistry{
	tools: make(map[string]Tool),
}

// Register adds a tool to the global registry.
// Panics if called after the registry is sealed.
func Register(tool Tool) error {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	name := tool.Definition().Name
	if globalRegistry.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}
	if _, exists := globalRegistry.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}

	globalRegistry.tools[name] = tool
	return nil
}

// Seal prevents further tool registrations. Called automatically on first
// provider use.
func Seal() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.sealed = true
}

// Get retrieves a registered tool by name.
func Get(name string) (Tool, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	tool, exists := globalRegistry.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}
	return tool, nil
}

// List returns definitions for all registered tools, sorted by name.
func List() []Definition {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make([]Definition, 0, len(globalRegistry.tools))
	for _, tool := range globalRegistry.tools {
		result = append(result, tool.Definition())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// RegistryProvider serves tool instances from the sealed global registry.
type RegistryProvider struct{}

// NewRegistryProvider seals the registry and returns a provider backed by it.
func NewRegistryProvider() *RegistryProvider {
	Seal()
	return &RegistryProvider{}
}

// Get implements Provider.
func (p *RegistryProvider) Get(name string) (Tool, error) {
	return Get(name)
}

// StaticProvider serves tool instances from an explicit set. Used by tests
// and anywhere fresh tool instances are needed per context.
type StaticProvider struct {
	tools map[string]Tool
}

// NewStaticProvider builds a provider over the given tools.
func NewStaticProvider(toolList ...Tool) *StaticProvider {
	m := make(map[string]Tool, len(toolList))
	for _, tool := range toolList {
		m[tool.Definition().Name] = tool
	}
	return &StaticProvider{tools: m}
}

// Get implements Provider.
func (p *StaticProvider) Get(name string) (Tool, error) {
	tool, exists := p.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool '%s' not in provider", name)
	}
	return tool, nil
}

// init registers the demo domain tools. Production deployments would register
// their own tool implementations the same way before first provider use.
//
//nolint:gochecknoinits // registry pattern requires init() for tool registration
func init() {
	for _, tool := range DemoTools() {
		if err := Register(tool); err != nil {
			panic(fmt.Sprintf("failed to register demo tool: %v", err))
		}
	}
}

// DemoTools returns fresh instances of the full demo tool set (wifi + video
// backends plus the client UI tools).
func DemoTools() []Tool {
	return []Tool{
		NewWifiDiagnosticTool(),
		NewRestartRouterTool(),
		NewSearchContentTool(),
		NewRentMovieTool(),
		NewPlayVideoTool(),
		NewConfirmationDialogTool(),
		NewErrorDisplayTool(),
		NewNetworkStatusDisplayTool(),
	}
}
