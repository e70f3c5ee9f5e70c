package core

// AnnotateDuplicates attaches the advisory duplicate hint to every record of
// a listing window. The frequency count is built over the window's image
// hashes, status-independent, and recomputed fresh on every call — there is
// no cross-request state. Records without a hash (legacy or partial data)
// stay out of the count entirely: they neither match each other nor a
// present hash.
//
// The hint never blocks anything; it is display advice for the reviewer.
func AnnotateDuplicates(records []Record) []ListedRecord {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		if r.ImageHash != "" {
			counts[r.ImageHash]++
		}
	}
	out := make([]ListedRecord, len(records))
	for i, r := range records {
		item := ListedRecord{Record: r}
		if r.ImageHash != "" {
			item.DuplicateCount = counts[r.ImageHash]
			item.DuplicateHint = item.DuplicateCount > 1
		}
		out[i] = item
	}
	return out
}
