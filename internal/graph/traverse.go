package graph

import (
	"sort"
)

// Options configures a traversal.
type Options struct {
	Method      string
	Depth       int
	IncludeSelf bool
}

// Node is one method reached by a traversal. For Depth >= 1 the location is
// the call site that discovered the method; for the seed at depth 0 it is the
// method's own definition.
type Node struct {
	Method     string `json:"method"`
	MethodName string `json:"methodName"`
	Class      string `json:"class"`
	Namespace  string `json:"namespace"`
	Depth      int    `json:"depth"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
	// Via is the already-visited method on the near side of the edge.
	Via string `json:"via,omitempty"`
}

// Result is the output of one traversal.
type Result struct {
	Method    string    `json:"method"`
	Direction Direction `json:"direction"`
	Depth     int       `json:"depth"`
	Nodes     []Node    `json:"nodes"`
	// MaxDepthReached is the deepest level that produced a node.
	MaxDepthReached int `json:"maxDepthReached"`
}

// Traverse walks the index breadth-first from opts.Method for up to
// opts.Depth levels. A method is expanded once, at the first depth it is
// discovered; every distinct call site discovering it at that depth is
// reported. The walk stops early when a level discovers nothing new.
func (idx *Index) Traverse(dir Direction, opts Options) *Result {
	res := &Result{Method: opts.Method, Direction: dir, Depth: opts.Depth, Nodes: []Node{}}

	if opts.IncludeSelf {
		if def, ok := idx.Definition(opts.Method); ok {
			res.Nodes = append(res.Nodes, Node{
				Method:     def.Method,
				MethodName: def.MethodName,
				Class:      def.Class,
				Namespace:  def.Namespace,
				Depth:      0,
				FilePath:   def.FilePath,
				LineNumber: def.LineNumber,
			})
		}
	}

	adj := idx.adjacency(dir)
	visited := map[string]bool{opts.Method: true}
	frontier := []string{opts.Method}

	for depth := 1; depth <= opts.Depth && len(frontier) > 0; depth++ {
		discovered := make(map[string]bool)
		var nextLevel []string

		for _, m := range frontier {
			for _, site := range adj[m] {
				if visited[site.Method] && !discovered[site.Method] {
					continue
				}
				if !visited[site.Method] {
					visited[site.Method] = true
					discovered[site.Method] = true
					nextLevel = append(nextLevel, site.Method)
				}
				res.Nodes = append(res.Nodes, idx.node(site, depth))
			}
		}

		if len(nextLevel) > 0 {
			res.MaxDepthReached = depth
		}
		frontier = nextLevel
	}

	sortNodes(res.Nodes)
	return res
}

func (idx *Index) node(site CallSite, depth int) Node {
	n := Node{
		Method:     site.Method,
		MethodName: shortName(site.Method),
		Class:      site.Class,
		Namespace:  site.Namespace,
		Depth:      depth,
		FilePath:   site.FilePath,
		LineNumber: site.LineNumber,
		Via:        site.Via,
	}
	if def, ok := idx.Definition(site.Method); ok && def.MethodName != "" {
		n.MethodName = def.MethodName
	}
	return n
}

func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineNumber != b.LineNumber {
			return a.LineNumber < b.LineNumber
		}
		return a.Via < b.Via
	})
}
