package clna_test

import (
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"

	"github.com/davidvella/clna"
	"github.com/davidvella/clna/clonotype"
)

func Example() {
	dir, err := os.MkdirTemp("", "clna")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "run.clna")

	set := &clonotype.CloneSet{
		Clones: []clonotype.Clone{
			{Count: 42, Sequence: []byte("TGTGCCAGC"), VGene: 0, JGene: -1},
			{Count: 7, Sequence: []byte("TGTGCCTCG"), VGene: 0, JGene: -1},
		},
	}

	alignments := []clonotype.Alignment{
		{ReadID: 3, CloneIndex: 1, MappingType: clonotype.MappingTypeCore, Sequence: []byte("ACGT")},
		{ReadID: 1, CloneIndex: 0, MappingType: clonotype.MappingTypeClustered, Sequence: []byte("ACGT")},
		{ReadID: 2, CloneIndex: 0, MappingType: clonotype.MappingTypeCore, Sequence: []byte("ACGT")},
	}
	var stream iter.Seq[clonotype.Alignment] = func(yield func(clonotype.Alignment) bool) {
		for _, a := range alignments {
			if !yield(a) {
				return
			}
		}
	}

	w, err := clna.NewWriter(path)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	if err := w.WriteClones(set); err != nil {
		log.Fatal(err)
	}
	if err := w.SortAlignments(stream, int64(len(alignments))); err != nil {
		log.Fatal(err)
	}
	if err := w.WriteAlignmentsAndIndex(); err != nil {
		log.Fatal(err)
	}

	r, err := clna.OpenReader(path)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	fmt.Println("clones:", r.NumberOfClones())
	for i := 0; i < r.NumberOfClones(); i++ {
		n, err := r.AlignmentCount(i)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("clone %d: %d alignments\n", i, n)
	}

	// Output:
	// clones: 2
	// clone 0: 2 alignments
	// clone 1: 1 alignments
}
