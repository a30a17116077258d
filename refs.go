package formula

// ExtractRefs walks an AST and collects every cell and range reference,
// in source order. hosts use this to build dependency graphs and dirty
// sets without re-walking trees themselves. single cells come back as
// one-cell ranges so callers handle a single shape.
func ExtractRefs(node ASTNode) []CellRange {
	var refs []CellRange
	collectRefs(node, &refs)
	return refs
}

func collectRefs(node ASTNode, refs *[]CellRange) {
	switch n := node.(type) {
	case *ReferenceNode:
		*refs = append(*refs, CellRange{
			Start: n.Address,
			End:   n.Address,
			Kind:  RefKindCell,
			Sheet: n.Sheet,
		})
	case *RangeNode:
		*refs = append(*refs, n.Range)
	case *UnaryNode:
		collectRefs(n.Operand, refs)
	case *BinaryNode:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case *CompareNode:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case *FunctionNode:
		for _, arg := range n.Args {
			collectRefs(arg, refs)
		}
	case *ArrayNode:
		// array literal cells cannot contain references today, but a
		// walker should not depend on that
		for _, row := range n.Rows {
			for _, cell := range row {
				collectRefs(cell, refs)
			}
		}
	}
}

// RefersTo reports whether the formula reads the given cell on the
// given sheet, directly or through a range
func RefersTo(node ASTNode, sheet string, addr CellAddress) bool {
	for _, rng := range ExtractRefs(node) {
		if rng.Sheet != sheet {
			continue
		}
		if addr.Col >= rng.Start.Col && addr.Col <= rng.End.Col &&
			addr.Row >= rng.Start.Row && addr.Row <= rng.End.Row {
			return true
		}
	}
	return false
}
