package tools

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	tools []Tool
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool Tool) *RegistryBuilder {
	b.tools = append(b.tools, tool)

	return b
}

// WithTools adds every tool in order.
func (b *RegistryBuilder) WithTools(ts ...Tool) *RegistryBuilder {
	b.tools = append(b.tools, ts...)

	return b
}

// Build produces an immutable Registry from the accumulated tools.
// Duplicate names are reported here, not when they are added.
func (b *RegistryBuilder) Build() (*Registry, error) {
	return NewRegistry(b.tools...)
}
