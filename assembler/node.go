package assembler

// NodeType defines the type of an assembly node.
type NodeType int

const (
	// NodeInstruction type.
	NodeInstruction NodeType = iota
	// NodeLabel type.
	NodeLabel
	// NodeDirective type.
	NodeDirective
)

// Node represents one parsed element from the assembly source.
type Node struct {
	Type     NodeType
	Line     int
	Label    string
	Mnemonic string
	Parts    []string // mnemonic or directive followed by its comma-separated operands
	Size     uint32   // instruction slots occupied
}
