// Package sorter implements a generic out-of-core sort for record streams
// that may not fit in memory.
//
// Records accumulate in an in-memory balanced tree ordered by the caller's
// comparator (insertion order breaks ties, so duplicates are preserved).
// Whenever a chunk reaches the configured size it is flushed as one sorted
// segment to a spill file; the final partial chunk stays in memory. Reading
// the result k-way merges all segments and the in-memory chunk through a
// tournament tree, so the full dataset is never resident at once.
//
// Basic usage:
//
//	cursor, err := sorter.Sort(records, less, codec, 1<<16, "/tmp/run.spill")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cursor.Close() // removes the spill file
//
//	for record := range cursor.All() {
//	    // records arrive in comparator order
//	}
//	if err := cursor.Err(); err != nil {
//	    log.Fatal(err)
//	}
package sorter
