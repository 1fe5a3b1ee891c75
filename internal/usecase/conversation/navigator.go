package conversation

import "github.com/futig/design-agent/internal/entity"

// Complete is returned by NextIndex when the flow has no further question.
const Complete = -1

// NextIndex returns the index of the next question after current, honoring per-question skip rules.
// It is pure: the same inputs always give the same result. Pass -1 to get the first question.
func NextIndex(c *Catalog, flow entity.Flow, current int, responses entity.Responses) int {
	n := c.Len(flow)
	for i := current + 1; i < n; i++ {
		q := c.flows[flow][i]
		if q.Skip != nil && q.Skip(responses) {
			continue
		}
		return i
	}
	return Complete
}
