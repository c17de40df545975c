package assembler

import (
	"sort"
	"strings"

	"github.com/crewkit/crewkit/pkg/capability"
	"github.com/crewkit/crewkit/pkg/team"
)

// orchestrationMarkers flag a requirement as cross-cutting coordination
// work for the Coordinator role.
var orchestrationMarkers = []string{
	"coordinat", "orchestrat", "manag", "integrat", "oversee", "delegat",
}

type memberStat struct {
	index   int   // position in member order
	covered []int // requirement indices
	avg     float32
	pos     int // registration order
}

// rank is a member's combined requirement coverage: count times average
// similarity. Used for Leader and Coordinator selection.
func (s memberStat) rank() float64 {
	return float64(len(s.covered)) * float64(s.avg)
}

// assignRoles mutates members in place following a fixed policy: best
// combined coverage leads, an orchestration match coordinates, execution
// agents execute, the rest specialize, and on teams of four or more the
// lowest-priority match becomes the reviewer. All ties fall back to
// registration order so identical inputs always produce identical roles.
func assignRoles(members []team.Member, sel *Selection) {
	if len(members) == 0 {
		return
	}

	stats := make([]memberStat, len(members))
	for i, m := range members {
		id := m.Record.AgentID
		covered := sel.coverage(id)
		var sum float32
		for _, reqIdx := range covered {
			if sc, ok := sel.score(id, reqIdx); ok {
				sum += sc
			}
		}
		var avg float32
		if len(covered) > 0 {
			avg = sum / float32(len(covered))
		}
		stats[i] = memberStat{index: i, covered: covered, avg: avg, pos: sel.Position(id)}
	}

	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := stats[order[a]].rank(), stats[order[b]].rank()
		if ra != rb {
			return ra > rb
		}
		return stats[order[a]].pos < stats[order[b]].pos
	})

	assigned := make([]team.Role, len(members))

	leader := order[0]
	assigned[leader] = team.RoleLeader

	// Coordinator: next-best coverage that matches an orchestration
	// requirement, omitted when the task has none.
	coordinator := -1
	if orch := orchestrationRequirements(sel); len(orch) > 0 {
		for _, i := range order[1:] {
			if coversAny(stats[i].covered, orch) {
				coordinator = i
				assigned[i] = team.RoleCoordinator
				break
			}
		}
	}

	for i := range members {
		if assigned[i] != "" {
			continue
		}
		if members[i].Record.Category == capability.CategoryExecution {
			assigned[i] = team.RoleExecutor
		} else {
			assigned[i] = team.RoleSpecialist
		}
	}

	if len(members) >= 4 {
		if i := reviewerPick(stats, sel, leader, coordinator); i >= 0 {
			assigned[i] = team.RoleReviewer
		}
	}

	for i := range members {
		members[i].Role = assigned[i]
	}
}

// reviewerPick selects the member matched at the lowest priority,
// skipping anyone who is the sole cover of a requirement. Returns -1
// when no member can be spared.
func reviewerPick(stats []memberStat, sel *Selection, leader, coordinator int) int {
	coverCount := make(map[int]int)
	for _, st := range stats {
		for _, reqIdx := range st.covered {
			coverCount[reqIdx]++
		}
	}

	pick := -1
	var pickPriority float32
	for i, st := range stats {
		if i == leader || i == coordinator {
			continue
		}
		sole := false
		for _, reqIdx := range st.covered {
			if coverCount[reqIdx] == 1 {
				sole = true
				break
			}
		}
		if sole {
			continue
		}

		// A member's matched priority is the strongest priority among
		// the requirements it covers.
		var priority float32
		for _, reqIdx := range st.covered {
			if w := sel.Matches[reqIdx].Requirement.Priority.Weight(); w > priority {
				priority = w
			}
		}
		if pick == -1 || priority < pickPriority ||
			(priority == pickPriority && st.pos < stats[pick].pos) {
			pick = i
			pickPriority = priority
		}
	}
	return pick
}

// orchestrationRequirements returns the indices of coordination-flavored
// requirements.
func orchestrationRequirements(sel *Selection) []int {
	var indices []int
	for i, m := range sel.Matches {
		if m.Requirement.Category == capability.CategoryCoordination {
			indices = append(indices, i)
			continue
		}
		lower := strings.ToLower(m.Requirement.Text)
		for _, marker := range orchestrationMarkers {
			if strings.Contains(lower, marker) {
				indices = append(indices, i)
				break
			}
		}
	}
	return indices
}

func coversAny(covered, wanted []int) bool {
	for _, c := range covered {
		for _, w := range wanted {
			if c == w {
				return true
			}
		}
	}
	return false
}

// keywordOverlap reports whether any record keyword appears in the
// requirement text.
func keywordOverlap(requirement string, keywords []string) bool {
	lower := strings.ToLower(requirement)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
