package chunk

import "sort"

type interval struct{ start, end int } // inclusive line indices

// coverage tracks which source lines have already been claimed by a
// symbol-anchored chunk, so the remaining gaps can be covered by sliding
// windows.
type coverage struct {
	total int
	marks []interval
}

func newCoverage(total int) *coverage { return &coverage{total: total} }

func (c *coverage) mark(start, end int) {
	if start < 0 {
		start = 0
	}
	if end >= c.total {
		end = c.total - 1
	}
	if start > end {
		return
	}
	c.marks = append(c.marks, interval{start, end})
}

// gaps returns the merged, sorted line ranges not claimed by any mark.
func (c *coverage) gaps() []interval {
	if c.total == 0 {
		return nil
	}
	sort.Slice(c.marks, func(i, j int) bool { return c.marks[i].start < c.marks[j].start })

	merged := make([]interval, 0, len(c.marks))
	for _, m := range c.marks {
		if len(merged) > 0 && m.start <= merged[len(merged)-1].end+1 {
			if m.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = m.end
			}
			continue
		}
		merged = append(merged, m)
	}

	var gaps []interval
	cursor := 0
	for _, m := range merged {
		if m.start > cursor {
			gaps = append(gaps, interval{cursor, m.start - 1})
		}
		if m.end+1 > cursor {
			cursor = m.end + 1
		}
	}
	if cursor < c.total {
		gaps = append(gaps, interval{cursor, c.total - 1})
	}
	return gaps
}
