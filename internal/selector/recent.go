package selector

import "github.com/abhisek/adaptly/internal/question"

// PushRecent appends id to the anti-repetition buffer. Ids no longer in
// available are dropped, duplicates collapse, and once every available
// question has been seen the buffer resets so a fresh cycle begins.
func PushRecent(prev []string, id string, available []string) []string {
	avail := toSet(available)
	if len(avail) == 0 {
		return []string{}
	}

	out := make([]string, 0, len(prev)+1)
	seen := make(map[string]struct{}, len(prev)+1)
	add := func(v string) {
		if _, ok := avail[v]; !ok {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range prev {
		add(v)
	}
	if id != "" {
		add(id)
	}

	if len(seen) >= len(avail) {
		return []string{}
	}
	return out
}

// IDs returns the ids of qs in order.
func IDs(qs []*question.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
