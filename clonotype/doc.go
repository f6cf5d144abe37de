// Package clonotype defines the record types stored in a clonotype
// alignment archive (gene references, assembling features, the
// feature-alignment map, clones and alignments) together with their binary
// encodings and the total order alignments are grouped by.
package clonotype
