package discovery

// Normalize keeps the video candidates, deduplicated by platform and video id,
// in discovery order. When the same video shows up twice the first occurrence
// is kept, borrowing the division hint and publish time of a later duplicate
// if it had none.
func Normalize(candidates []Candidate) []Candidate {
	var out []Candidate
	index := make(map[string]int)
	for _, c := range candidates {
		if !c.IsVideo() {
			continue
		}
		if i, ok := index[c.Key()]; ok {
			if out[i].DivisionHint == nil && c.DivisionHint != nil {
				out[i].DivisionHint = copyHint(c.DivisionHint)
			}
			if out[i].PublishedAt == nil && c.PublishedAt != nil {
				t := *c.PublishedAt
				out[i].PublishedAt = &t
			}
			continue
		}
		c.DivisionHint = copyHint(c.DivisionHint)
		index[c.Key()] = len(out)
		out = append(out, c)
	}
	return out
}
