// Package modelbank trains, stores, and serves the regression models behind
// the stat projections. Four tree-ensemble families cover the bank:
// depth-wise and leaf-wise gradient boosting, symmetric gradient boosting,
// and a bagged random forest. Count-like targets train under a Poisson
// objective, the rest under squared error.
package modelbank

import (
	"math/rand"
	"sort"
)

// Node is one regression tree node. Trees are serialized with model
// artifacts, so the shape is msgpack-stable.
type Node struct {
	Leaf      bool    `msgpack:"leaf"`
	Feature   int     `msgpack:"feature"`
	Threshold float64 `msgpack:"threshold"`
	Value     float64 `msgpack:"value"`
	Left      *Node   `msgpack:"left"`
	Right     *Node   `msgpack:"right"`
}

func (n *Node) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// collectGain accumulates split gain per feature for importance reporting.
func (n *Node) collectGain(gains map[int]float64, nodeGains map[*Node]float64) {
	if n.Leaf {
		return
	}
	gains[n.Feature] += nodeGains[n]
	n.Left.collectGain(gains, nodeGains)
	n.Right.collectGain(gains, nodeGains)
}

// treeBuilder grows one tree against gradient/hessian targets.
type treeBuilder struct {
	x        [][]float64
	grad     []float64
	hess     []float64
	params   Params
	features []int // column subsample for this tree
	rng      *rand.Rand

	nodeGains map[*Node]float64
}

func newTreeBuilder(x [][]float64, grad, hess []float64, params Params, rng *rand.Rand) *treeBuilder {
	cols := len(x[0])
	sampled := int(float64(cols) * params.ColSampleByTree)
	if sampled < 1 {
		sampled = 1
	}
	perm := rng.Perm(cols)[:sampled]
	sort.Ints(perm)

	return &treeBuilder{
		x:         x,
		grad:      grad,
		hess:      hess,
		params:    params,
		features:  perm,
		rng:       rng,
		nodeGains: make(map[*Node]float64),
	}
}

func (b *treeBuilder) leafValue(idx []int) float64 {
	var g, h float64
	for _, i := range idx {
		g += b.grad[i]
		h += b.hess[i]
	}
	return -g / (h + b.params.Lambda)
}

func (b *treeBuilder) leaf(idx []int) *Node {
	return &Node{Leaf: true, Value: b.leafValue(idx)}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
	ok        bool
}

// bestSplit finds the gain-maximizing (feature, threshold) over the node's
// samples, honoring the minimum leaf size.
func (b *treeBuilder) bestSplit(idx []int) split {
	if len(idx) < 2*b.params.MinSamplesLeaf {
		return split{}
	}

	var totalG, totalH float64
	for _, i := range idx {
		totalG += b.grad[i]
		totalH += b.hess[i]
	}
	parentScore := totalG * totalG / (totalH + b.params.Lambda)

	best := split{}
	order := make([]int, len(idx))

	for _, f := range b.features {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool {
			return b.x[order[a]][f] < b.x[order[c]][f]
		})

		var leftG, leftH float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftG += b.grad[i]
			leftH += b.hess[i]

			cur, next := b.x[i][f], b.x[order[pos+1]][f]
			if cur == next {
				continue
			}
			if pos+1 < b.params.MinSamplesLeaf || len(order)-pos-1 < b.params.MinSamplesLeaf {
				continue
			}

			rightG := totalG - leftG
			rightH := totalH - leftH
			gain := leftG*leftG/(leftH+b.params.Lambda) +
				rightG*rightG/(rightH+b.params.Lambda) - parentScore
			if gain > best.gain {
				best = split{
					feature:   f,
					threshold: (cur + next) / 2,
					gain:      gain,
					ok:        true,
				}
			}
		}
	}

	if !best.ok {
		return best
	}
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best
}

// buildDepthwise grows level by level to MaxDepth, splitting every node that
// still has a positive-gain split.
func (b *treeBuilder) buildDepthwise(idx []int, depth int) *Node {
	if depth >= b.params.MaxDepth {
		return b.leaf(idx)
	}
	s := b.bestSplit(idx)
	if !s.ok || s.gain <= b.params.MinSplitGain {
		return b.leaf(idx)
	}

	n := &Node{Feature: s.feature, Threshold: s.threshold}
	b.nodeGains[n] = s.gain
	n.Left = b.buildDepthwise(s.left, depth+1)
	n.Right = b.buildDepthwise(s.right, depth+1)
	return n
}

// buildLeafwise grows best-gain-first until MaxLeaves, letting the tree go
// deep where the signal is.
func (b *treeBuilder) buildLeafwise(idx []int) *Node {
	type candidate struct {
		node  *Node
		idx   []int
		split split
		depth int
	}

	root := b.leaf(idx)
	frontier := []*candidate{{node: root, idx: idx, split: b.bestSplit(idx)}}
	leaves := 1

	for leaves < b.params.MaxLeaves {
		bestAt := -1
		for i, c := range frontier {
			if c.split.ok && c.split.gain > b.params.MinSplitGain &&
				(bestAt < 0 || c.split.gain > frontier[bestAt].split.gain) {
				bestAt = i
			}
		}
		if bestAt < 0 {
			break
		}

		c := frontier[bestAt]
		frontier = append(frontier[:bestAt], frontier[bestAt+1:]...)

		c.node.Leaf = false
		c.node.Feature = c.split.feature
		c.node.Threshold = c.split.threshold
		c.node.Value = 0
		b.nodeGains[c.node] = c.split.gain

		left := b.leaf(c.split.left)
		right := b.leaf(c.split.right)
		c.node.Left = left
		c.node.Right = right
		leaves++

		if c.depth+1 < b.params.MaxDepth {
			frontier = append(frontier,
				&candidate{node: left, idx: c.split.left, split: b.bestSplit(c.split.left), depth: c.depth + 1},
				&candidate{node: right, idx: c.split.right, split: b.bestSplit(c.split.right), depth: c.depth + 1})
		}
	}
	return root
}

// buildSymmetric grows an oblivious tree: every node on a level shares the
// same split condition, chosen from per-feature quantile candidates to
// maximize summed gain across the level.
func (b *treeBuilder) buildSymmetric(idx []int) *Node {
	root := b.leaf(idx)
	level := []*Node{root}
	groups := [][]int{idx}
	candidates := b.quantileCandidates(idx)

	for depth := 0; depth < b.params.MaxDepth; depth++ {
		feature, threshold, gain := b.bestSharedSplit(groups, candidates)
		if gain <= b.params.MinSplitGain {
			break
		}

		var nextLevel []*Node
		var nextGroups [][]int
		for i, n := range level {
			var left, right []int
			for _, row := range groups[i] {
				if b.x[row][feature] <= threshold {
					left = append(left, row)
				} else {
					right = append(right, row)
				}
			}
			n.Leaf = false
			n.Feature = feature
			n.Threshold = threshold
			n.Value = 0
			n.Left = b.leaf(left)
			n.Right = b.leaf(right)
			b.nodeGains[n] = gain / float64(len(level))

			nextLevel = append(nextLevel, n.Left, n.Right)
			nextGroups = append(nextGroups, left, right)
		}
		level = nextLevel
		groups = nextGroups
	}
	return root
}

type thresholdCandidate struct {
	feature   int
	threshold float64
}

const symmetricQuantiles = 16

func (b *treeBuilder) quantileCandidates(idx []int) []thresholdCandidate {
	var out []thresholdCandidate
	vals := make([]float64, len(idx))
	for _, f := range b.features {
		for i, row := range idx {
			vals[i] = b.x[row][f]
		}
		sort.Float64s(vals)
		for q := 1; q < symmetricQuantiles; q++ {
			t := vals[q*len(vals)/symmetricQuantiles]
			if len(out) == 0 || out[len(out)-1].feature != f || out[len(out)-1].threshold != t {
				out = append(out, thresholdCandidate{feature: f, threshold: t})
			}
		}
	}
	return out
}

func (b *treeBuilder) bestSharedSplit(groups [][]int, candidates []thresholdCandidate) (int, float64, float64) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	for _, c := range candidates {
		var total float64
		for _, group := range groups {
			if len(group) < 2*b.params.MinSamplesLeaf {
				continue
			}
			var leftG, leftH, allG, allH float64
			var leftN int
			for _, row := range group {
				allG += b.grad[row]
				allH += b.hess[row]
				if b.x[row][c.feature] <= c.threshold {
					leftG += b.grad[row]
					leftH += b.hess[row]
					leftN++
				}
			}
			if leftN < b.params.MinSamplesLeaf || len(group)-leftN < b.params.MinSamplesLeaf {
				continue
			}
			rightG, rightH := allG-leftG, allH-leftH
			total += leftG*leftG/(leftH+b.params.Lambda) +
				rightG*rightG/(rightH+b.params.Lambda) -
				allG*allG/(allH+b.params.Lambda)
		}
		if total > bestGain {
			bestFeature, bestThreshold, bestGain = c.feature, c.threshold, total
		}
	}
	return bestFeature, bestThreshold, bestGain
}
