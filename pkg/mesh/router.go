package mesh

import "time"

// priorityBoost returns the score multiplier a task's priority earns:
// 1.5x for Emergency, 1.2x for Critical, 1.0x otherwise.
func priorityBoost(p Priority) float64 {
	switch p {
	case PriorityEmergency:
		return 1.5
	case PriorityCritical:
		return 1.2
	default:
		return 1.0
	}
}

// RoutingWeights are the weighted-scoring coefficients applied to each
// candidate agent.
type RoutingWeights struct {
	Performance    float64
	Availability   float64
	CostEfficiency float64
	ResponseTime   float64
}

// filterCandidates keeps agents that are available, declare every required
// capability, fit within the task's cost estimate, and can meet its SLA
// before the deadline. The 1000-token estimate is a pre-filter heuristic;
// budget enforcement at submission time is authoritative.
func filterCandidates(agents []*Agent, task *Task, now time.Time) []*Agent {
	candidates := make([]*Agent, 0, len(agents))

	for _, agent := range agents {
		if !agent.IsAvailable(now) {
			continue
		}
		if !agent.HasCapabilities(task.CapabilitiesRequired) {
			continue
		}
		if task.MaxCost != nil && agent.CostPerToken*1000 > *task.MaxCost {
			continue
		}
		if task.Deadline != nil {
			timeRemaining := task.Deadline.Sub(now).Seconds()
			if agent.SLAResponseSeconds > timeRemaining {
				continue
			}
		}
		candidates = append(candidates, agent)
	}

	return candidates
}

// meanCostPerToken and meanResponseTime average over the full agent table
// (not just candidates), matching the source's mesh-wide baseline.
func meanCostPerToken(agents []*Agent) float64 {
	if len(agents) == 0 {
		return 0
	}
	var total float64
	for _, a := range agents {
		total += a.CostPerToken
	}
	return total / float64(len(agents))
}

func meanResponseTime(agents []*Agent) time.Duration {
	if len(agents) == 0 {
		return 0
	}
	var total time.Duration
	for _, a := range agents {
		total += a.AvgResponseTime
	}
	return total / time.Duration(len(agents))
}

// scoreAgent applies the weighted multi-criteria formula: performance
// (0.40), availability (0.25), cost efficiency (0.20), response time
// (0.15), then the priority boost.
func scoreAgent(agent *Agent, task *Task, weights RoutingWeights, meshAgents []*Agent) float64 {
	score := agent.SuccessRate() * weights.Performance
	score += (1 - agent.Load()) * weights.Availability

	if avgCost := meanCostPerToken(meshAgents); avgCost > 0 {
		score += (1 - agent.CostPerToken/avgCost) * weights.CostEfficiency
	}

	if agent.AvgResponseTime > 0 {
		if avgResponse := meanResponseTime(meshAgents); avgResponse > 0 {
			ratio := float64(agent.AvgResponseTime) / float64(avgResponse)
			score += (1 - ratio) * weights.ResponseTime
		}
	}

	return score * priorityBoost(task.Priority)
}

// selectAgent scores every candidate and returns the highest, breaking
// ties by ascending AgentID for deterministic routing.
func selectAgent(candidates []*Agent, task *Task, weights RoutingWeights, meshAgents []*Agent) *Agent {
	var best *Agent
	bestScore := -1.0

	for _, candidate := range candidates {
		score := scoreAgent(candidate, task, weights, meshAgents)
		if best == nil || score > bestScore || (score == bestScore && best != nil && candidate.AgentID < best.AgentID) {
			bestScore = score
			best = candidate
		}
	}

	return best
}
