package taxonomy

import (
	_ "embed"

	"faulttriage/internal/domain/fault"
)

//go:embed default_taxonomy.yaml
var builtinYAML []byte

// Builtin returns the taxonomy shipped with the binary.
func Builtin() (fault.Taxonomy, error) {
	return Parse(builtinYAML, "yaml")
}

// BuiltinYAML returns the shipped taxonomy file, usable as a template.
func BuiltinYAML() []byte {
	out := make([]byte, len(builtinYAML))
	copy(out, builtinYAML)
	return out
}
