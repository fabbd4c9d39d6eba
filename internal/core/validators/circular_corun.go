package validators

// circular_corun.go detects cycles among co-run rules.
//
// Every active coRun rule links each pair of its tasks with an undirected
// edge. A depth-first search from each unvisited task keeps the current
// path; reaching a task already on the path, other than the one just left,
// closes a cycle. Only the first cycle is reported, as a chain that starts
// and ends on the same task. Nodes and neighbours are visited in the order
// they first appear in the rules, so the reported chain is stable.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// coRunGraph is an undirected adjacency list with insertion order.
type coRunGraph struct {
	nodes []string
	adj   map[string][]string
	edge  map[[2]string]bool
}

func newCoRunGraph() *coRunGraph {
	return &coRunGraph{adj: make(map[string][]string), edge: make(map[[2]string]bool)}
}

func (g *coRunGraph) addNode(n string) {
	if _, ok := g.adj[n]; !ok {
		g.adj[n] = nil
		g.nodes = append(g.nodes, n)
	}
}

func (g *coRunGraph) addEdge(a, b string) {
	if a == b || g.edge[[2]string{a, b}] {
		return
	}
	g.edge[[2]string{a, b}], g.edge[[2]string{b, a}] = true, true
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// buildCoRunGraph links every pair of tasks named in one coRun rule.
func buildCoRunGraph(rules []core.CoRun) *coRunGraph {
	g := newCoRunGraph()
	for _, r := range rules {
		var tasks []string
		for _, t := range r.Tasks {
			if t = strings.TrimSpace(t); t != "" {
				tasks = append(tasks, t)
				g.addNode(t)
			}
		}
		for i := range tasks {
			for j := i + 1; j < len(tasks); j++ {
				g.addEdge(tasks[i], tasks[j])
			}
		}
	}
	return g
}

// findCycle returns the first cycle found, closed on its first task.
func (g *coRunGraph) findCycle() []string {
	visited := make(map[string]bool, len(g.nodes))
	onPath := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	var visit func(node, parent string) bool
	visit = func(node, parent string) bool {
		visited[node] = true
		onPath[node] = len(path)
		path = append(path, node)

		for _, next := range g.adj[node] {
			if next == parent {
				continue
			}
			if at, ok := onPath[next]; ok {
				cycle = append(append([]string(nil), path[at:]...), next)
				return true
			}
			if !visited[next] && visit(next, node) {
				return true
			}
		}

		path = path[:len(path)-1]
		delete(onPath, node)
		return false
	}

	for _, n := range g.nodes {
		if !visited[n] && visit(n, "") {
			return cycle
		}
	}
	return nil
}

// CircularCoRun reports the first cycle in the co-run graph.
type CircularCoRun struct {
	core.Meta
}

// NewCircularCoRun creates the circular-corun validator.
func NewCircularCoRun() *CircularCoRun {
	return &CircularCoRun{Meta: core.Meta{
		ID:      core.ValidatorCircularCoRun,
		Summary: "Co-run rules do not form cycles",
		Cat:     core.CategoryCircularCoRun,
		Order:   20,
	}}
}

func (v *CircularCoRun) Validate(vctx *core.ValidationContext) (core.ValidationResult, error) {
	b := core.NewResultBuilder(v.Name())

	cycle := buildCoRunGraph(vctx.CoRunRules()).findCycle()
	if cycle == nil {
		return b.Build(), nil
	}

	chain := strings.Join(cycle, " → ")
	b.Add(core.NewIssue(core.IssueError, core.CategoryCircularCoRun, core.SheetTasks, core.HeaderRow, core.ColTaskID,
		fmt.Sprintf("Circular co-run dependency: %s", chain)).
		WithValue(cycle).
		WithSuggestion(fmt.Sprintf("Remove one of the co-run rules linking %s", chain)))
	return b.Build(), nil
}
