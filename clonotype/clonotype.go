package clonotype

import "cmp"

// Mapping types order alignments within one clone's block. MappingTypeNone
// is reserved for placeholder records marking clones without alignments;
// placeholders are sorted and accounted for like any other record but are
// never stored in an archive.
const (
	MappingTypeNone byte = iota
	MappingTypeCore
	MappingTypeClustered
	MappingTypeMapped
)

// GeneReference identifies one entry of the gene reference table used to
// resolve the gene fields of clones.
type GeneReference struct {
	Name     string
	Chains   string
	Sequence []byte
}

// AssemblingFeature describes a sequence region clones were assembled over.
type AssemblingFeature struct {
	Name string
	From int32
	To   int32
}

// FeatureAlignment maps a gene type to the feature its alignments cover.
// The feature-alignment map is a small closed table, kept as an ordered
// slice so its encoding is deterministic.
type FeatureAlignment struct {
	GeneType byte
	Feature  AssemblingFeature
}

// Clone is a single clonotype definition. Its index in the enclosing
// CloneSet is its identity inside an archive; the index is assigned by
// enumeration order when the clone section is written and is not stored
// with the clone itself.
type Clone struct {
	Count    float64
	Sequence []byte
	VGene    int32
	JGene    int32
}

// CloneSet aggregates everything the clone section of an archive holds.
type CloneSet struct {
	AssemblingFeatures []AssemblingFeature
	FeatureMap         []FeatureAlignment
	Genes              []GeneReference
	Clones             []Clone
}

// Size returns the number of clones in the set.
func (s *CloneSet) Size() int {
	return len(s.Clones)
}

// Alignment is one alignment result referencing its owning clone by index.
type Alignment struct {
	ReadID      int64
	CloneIndex  int32
	MappingType byte
	Sequence    []byte
}

// NewPlaceholder returns the synthetic alignment a pipeline inserts for a
// clone that retained no alignments. The archive writer records the clone's
// block boundary when it encounters the placeholder but does not store it,
// leaving the block empty.
func NewPlaceholder(cloneIndex int32) Alignment {
	return Alignment{CloneIndex: cloneIndex, MappingType: MappingTypeNone}
}

func (a Alignment) IsPlaceholder() bool {
	return a.MappingType == MappingTypeNone
}

// Compare defines the total order of alignments inside an archive: by clone
// index ascending, ties broken by mapping type ascending. No other field
// influences placement.
func Compare(a, b Alignment) int {
	if c := cmp.Compare(a.CloneIndex, b.CloneIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.MappingType, b.MappingType)
}

// Less reports whether a sorts before b under Compare.
func Less(a, b Alignment) bool {
	return Compare(a, b) < 0
}
