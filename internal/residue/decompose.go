package residue

// Decompose enumerates every multiset of at most maxResidues residues
// whose summed mass matches gap within tol. Each composition is
// returned once, as tokens ascending by mass; the caller is
// responsible for generating permutations. A nil result means the gap
// cannot be explained by the table.
func (t *Table) Decompose(gap, tol float64, maxResidues int) [][]rune {
	if len(t.sorted) == 0 || maxResidues <= 0 || gap < t.sorted[0].Mass-tol {
		return nil
	}
	var out [][]rune
	cur := make([]rune, 0, maxResidues)
	t.decompose(gap, tol, maxResidues, 0, cur, &out)
	return out
}

func (t *Table) decompose(remaining, tol float64, left, from int, cur []rune, out *[][]rune) {
	if len(cur) > 0 && remaining >= -tol && remaining <= tol {
		comp := make([]rune, len(cur))
		copy(comp, cur)
		*out = append(*out, comp)
		// Any additional residue weighs at least MinMass, so no
		// extension of this composition can match as well.
		return
	}
	if left == 0 {
		return
	}
	for i := from; i < len(t.sorted); i++ {
		m := t.sorted[i].Mass
		if m > remaining+tol {
			break
		}
		t.decompose(remaining-m, tol, left-1, i, append(cur, t.sorted[i].Token), out)
	}
}
