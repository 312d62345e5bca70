package guard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/awmpietro/shunting-action-validator/internal/rules/guard/eval"
)

const startNode = "start"

type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

// Compile turns a DOT digraph into a guard chain. The chain begins at the
// edge leaving "start" and follows single edges until it ends. Each node on
// it carries its condition in "comment" and its rejection reason in "label".
func (c *Compiler) Compile(dot string) (*Chain, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}

	nodes := map[string]*gographviz.Node{}
	for _, n := range g.Nodes.Nodes {
		nodes[n.Name] = n
	}
	if _, ok := nodes[startNode]; !ok {
		return nil, fmt.Errorf("missing %q node", startNode)
	}

	next := map[string]string{}
	for _, e := range g.Edges.Edges {
		if _, ok := nodes[e.Src]; !ok {
			return nil, fmt.Errorf("edge references unknown source node %q", e.Src)
		}
		if _, ok := nodes[e.Dst]; !ok {
			return nil, fmt.Errorf("edge references unknown destination node %q", e.Dst)
		}
		if prev, ok := next[e.Src]; ok {
			return nil, fmt.Errorf("node %q branches to %q and %q; guards must form a single chain", e.Src, prev, e.Dst)
		}
		next[e.Src] = e.Dst
	}

	chain := &Chain{Name: strings.Trim(g.Name, `"`)}
	visited := map[string]bool{startNode: true}

	for cur, ok := next[startNode]; ok; cur, ok = next[cur] {
		if visited[cur] {
			return nil, fmt.Errorf("guard chain loops back to %q", cur)
		}
		visited[cur] = true

		guard, err := compileNode(nodes[cur])
		if err != nil {
			return nil, err
		}
		chain.Guards = append(chain.Guards, guard)
	}

	var orphans []string
	for name := range nodes {
		if !visited[name] {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return nil, fmt.Errorf("nodes not reachable from %q: %s", startNode, strings.Join(orphans, ", "))
	}

	return chain, nil
}

func compileNode(n *gographviz.Node) (*Guard, error) {
	cond := getAttr(n.Attrs, gographviz.Comment)
	if cond == "" {
		return nil, fmt.Errorf("guard %q has no condition (comment attribute)", n.Name)
	}
	reason := getAttr(n.Attrs, gographviz.Label)
	if reason == "" {
		return nil, fmt.Errorf("guard %q has no reason (label attribute)", n.Name)
	}

	compiled, err := eval.Compile(cond, Schema())
	if err != nil {
		return nil, fmt.Errorf("invalid condition on guard %q: %w", n.Name, err)
	}

	return &Guard{Node: n.Name, Reason: reason, cond: compiled}, nil
}

// getAttr reads a Graphviz attribute without its surrounding quotes.
func getAttr(attrs gographviz.Attrs, key gographviz.Attr) string {
	val, ok := attrs[key]
	if !ok {
		return ""
	}

	val = strings.TrimSpace(val)
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}

	return strings.TrimSpace(val)
}
