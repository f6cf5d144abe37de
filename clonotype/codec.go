package clonotype

import (
	"fmt"

	"github.com/davidvella/clna/recordio"
)

// The codec is a closed dispatch table: every record type the archive can
// hold has exactly one encode/decode pair below. There is no open record
// registry and no reflection.

func WriteGeneReference(bw recordio.BinaryWriter, g GeneReference) (int64, error) {
	var total int64

	n, err := bw.WriteString(g.Name)
	if err != nil {
		return total, fmt.Errorf("error writing gene name: %w", err)
	}
	total += n

	n, err = bw.WriteString(g.Chains)
	if err != nil {
		return total, fmt.Errorf("error writing gene chains: %w", err)
	}
	total += n

	n, err = bw.WriteBytes(g.Sequence)
	if err != nil {
		return total, fmt.Errorf("error writing gene sequence: %w", err)
	}
	total += n

	return total, nil
}

func ReadGeneReference(br recordio.BinaryReader) (GeneReference, error) {
	var g GeneReference
	var err error

	if g.Name, err = br.ReadString(); err != nil {
		return g, fmt.Errorf("error reading gene name: %w", err)
	}
	if g.Chains, err = br.ReadString(); err != nil {
		return g, fmt.Errorf("error reading gene chains: %w", err)
	}
	if g.Sequence, err = br.ReadBytes(); err != nil {
		return g, fmt.Errorf("error reading gene sequence: %w", err)
	}
	return g, nil
}

func WriteAssemblingFeature(bw recordio.BinaryWriter, f AssemblingFeature) (int64, error) {
	var total int64

	n, err := bw.WriteString(f.Name)
	if err != nil {
		return total, fmt.Errorf("error writing feature name: %w", err)
	}
	total += n

	n, err = bw.WriteInt32(f.From)
	if err != nil {
		return total, fmt.Errorf("error writing feature start: %w", err)
	}
	total += n

	n, err = bw.WriteInt32(f.To)
	if err != nil {
		return total, fmt.Errorf("error writing feature end: %w", err)
	}
	total += n

	return total, nil
}

func ReadAssemblingFeature(br recordio.BinaryReader) (AssemblingFeature, error) {
	var f AssemblingFeature
	var err error

	if f.Name, err = br.ReadString(); err != nil {
		return f, fmt.Errorf("error reading feature name: %w", err)
	}
	if f.From, err = br.ReadInt32(); err != nil {
		return f, fmt.Errorf("error reading feature start: %w", err)
	}
	if f.To, err = br.ReadInt32(); err != nil {
		return f, fmt.Errorf("error reading feature end: %w", err)
	}
	return f, nil
}

func WriteFeatureAlignment(bw recordio.BinaryWriter, m FeatureAlignment) (int64, error) {
	var total int64

	n, err := bw.WriteUint8(m.GeneType)
	if err != nil {
		return total, fmt.Errorf("error writing gene type: %w", err)
	}
	total += n

	n, err = WriteAssemblingFeature(bw, m.Feature)
	if err != nil {
		return total, err
	}
	total += n

	return total, nil
}

func ReadFeatureAlignment(br recordio.BinaryReader) (FeatureAlignment, error) {
	var m FeatureAlignment
	var err error

	if m.GeneType, err = br.ReadUint8(); err != nil {
		return m, fmt.Errorf("error reading gene type: %w", err)
	}
	if m.Feature, err = ReadAssemblingFeature(br); err != nil {
		return m, err
	}
	return m, nil
}

func WriteClone(bw recordio.BinaryWriter, c Clone) (int64, error) {
	var total int64

	n, err := bw.WriteFloat64(c.Count)
	if err != nil {
		return total, fmt.Errorf("error writing clone count: %w", err)
	}
	total += n

	n, err = bw.WriteBytes(c.Sequence)
	if err != nil {
		return total, fmt.Errorf("error writing clone sequence: %w", err)
	}
	total += n

	n, err = bw.WriteInt32(c.VGene)
	if err != nil {
		return total, fmt.Errorf("error writing clone v gene: %w", err)
	}
	total += n

	n, err = bw.WriteInt32(c.JGene)
	if err != nil {
		return total, fmt.Errorf("error writing clone j gene: %w", err)
	}
	total += n

	return total, nil
}

func ReadClone(br recordio.BinaryReader) (Clone, error) {
	var c Clone
	var err error

	if c.Count, err = br.ReadFloat64(); err != nil {
		return c, fmt.Errorf("error reading clone count: %w", err)
	}
	if c.Sequence, err = br.ReadBytes(); err != nil {
		return c, fmt.Errorf("error reading clone sequence: %w", err)
	}
	if c.VGene, err = br.ReadInt32(); err != nil {
		return c, fmt.Errorf("error reading clone v gene: %w", err)
	}
	if c.JGene, err = br.ReadInt32(); err != nil {
		return c, fmt.Errorf("error reading clone j gene: %w", err)
	}
	return c, nil
}

func WriteAlignment(bw recordio.BinaryWriter, a Alignment) (int64, error) {
	var total int64

	n, err := bw.WriteInt64(a.ReadID)
	if err != nil {
		return total, fmt.Errorf("error writing alignment read id: %w", err)
	}
	total += n

	n, err = bw.WriteInt32(a.CloneIndex)
	if err != nil {
		return total, fmt.Errorf("error writing alignment clone index: %w", err)
	}
	total += n

	n, err = bw.WriteUint8(a.MappingType)
	if err != nil {
		return total, fmt.Errorf("error writing alignment mapping type: %w", err)
	}
	total += n

	n, err = bw.WriteBytes(a.Sequence)
	if err != nil {
		return total, fmt.Errorf("error writing alignment sequence: %w", err)
	}
	total += n

	return total, nil
}

func ReadAlignment(br recordio.BinaryReader) (Alignment, error) {
	var a Alignment
	var err error

	// The first field deliberately propagates the raw error so callers can
	// distinguish a clean end of stream (io.EOF) from a torn record.
	if a.ReadID, err = br.ReadInt64(); err != nil {
		return a, err
	}
	if a.CloneIndex, err = br.ReadInt32(); err != nil {
		return a, fmt.Errorf("error reading alignment clone index: %w", err)
	}
	if a.MappingType, err = br.ReadUint8(); err != nil {
		return a, fmt.Errorf("error reading alignment mapping type: %w", err)
	}
	if a.Sequence, err = br.ReadBytes(); err != nil {
		return a, fmt.Errorf("error reading alignment sequence: %w", err)
	}
	return a, nil
}

// WriteCloneSet encodes the full clone section: assembling features, the
// feature-alignment map, the gene reference table, the clone count and each
// clone in enumeration order. That order is the clone index assignment.
func WriteCloneSet(bw recordio.BinaryWriter, s *CloneSet) (int64, error) {
	var total int64

	n, err := bw.WriteInt32(int32(len(s.AssemblingFeatures)))
	if err != nil {
		return total, fmt.Errorf("error writing feature count: %w", err)
	}
	total += n
	for _, f := range s.AssemblingFeatures {
		if n, err = WriteAssemblingFeature(bw, f); err != nil {
			return total, err
		}
		total += n
	}

	if n, err = bw.WriteInt32(int32(len(s.FeatureMap))); err != nil {
		return total, fmt.Errorf("error writing feature map count: %w", err)
	}
	total += n
	for _, m := range s.FeatureMap {
		if n, err = WriteFeatureAlignment(bw, m); err != nil {
			return total, err
		}
		total += n
	}

	if n, err = bw.WriteInt32(int32(len(s.Genes))); err != nil {
		return total, fmt.Errorf("error writing gene count: %w", err)
	}
	total += n
	for _, g := range s.Genes {
		if n, err = WriteGeneReference(bw, g); err != nil {
			return total, err
		}
		total += n
	}

	if n, err = bw.WriteInt32(int32(len(s.Clones))); err != nil {
		return total, fmt.Errorf("error writing clone count: %w", err)
	}
	total += n
	for _, c := range s.Clones {
		if n, err = WriteClone(bw, c); err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}

// readCount decodes a section record count and rejects negative values so
// a corrupt count fails decoding instead of panicking on allocation.
func readCount(br recordio.BinaryReader, section string) (int32, error) {
	count, err := br.ReadInt32()
	if err != nil {
		return 0, fmt.Errorf("error reading %s count: %w", section, err)
	}
	if count < 0 {
		return 0, fmt.Errorf("invalid %s count %d", section, count)
	}
	return count, nil
}

// ReadCloneSet decodes a clone section written by WriteCloneSet.
func ReadCloneSet(br recordio.BinaryReader) (*CloneSet, error) {
	s := &CloneSet{}

	count, err := readCount(br, "feature")
	if err != nil {
		return nil, err
	}
	s.AssemblingFeatures = make([]AssemblingFeature, count)
	for i := range s.AssemblingFeatures {
		if s.AssemblingFeatures[i], err = ReadAssemblingFeature(br); err != nil {
			return nil, err
		}
	}

	if count, err = readCount(br, "feature map"); err != nil {
		return nil, err
	}
	s.FeatureMap = make([]FeatureAlignment, count)
	for i := range s.FeatureMap {
		if s.FeatureMap[i], err = ReadFeatureAlignment(br); err != nil {
			return nil, err
		}
	}

	if count, err = readCount(br, "gene"); err != nil {
		return nil, err
	}
	s.Genes = make([]GeneReference, count)
	for i := range s.Genes {
		if s.Genes[i], err = ReadGeneReference(br); err != nil {
			return nil, err
		}
	}

	if count, err = readCount(br, "clone"); err != nil {
		return nil, err
	}
	s.Clones = make([]Clone, count)
	for i := range s.Clones {
		if s.Clones[i], err = ReadClone(br); err != nil {
			return nil, err
		}
	}

	return s, nil
}
