// Package traffic generates nodes and messages for tests and experiments.
package traffic

import (
	"log"
	"math"
	"math/rand"

	"github.com/sarchlab/netsim/noc/networking"
	"github.com/sarchlab/netsim/sim/naming"
)

// A Generator produces values of one type.
type Generator[T any] interface {
	Generate() T
}

// NodeGenerator creates fresh nodes, named after a parent name and a running
// index.
type NodeGenerator struct {
	parentName string
	next       int
	builder    networking.NodeBuilder
}

// NewNodeGenerator creates a NodeGenerator that builds nodes with the builder.
func NewNodeGenerator(
	parentName string,
	builder networking.NodeBuilder,
) *NodeGenerator {
	return &NodeGenerator{
		parentName: parentName,
		builder:    builder,
	}
}

// Generate creates the next node.
func (g *NodeGenerator) Generate() *networking.Node {
	name := naming.BuildNameWithIndex(g.parentName, "Node", g.next)
	g.next++

	return g.builder.Build(name)
}

// MessageGenerator creates messages with uniformly distributed sizes between
// two nodes drawn from a pool. If the pool has fewer than two nodes, it draws
// the missing endpoints from the node generator instead.
type MessageGenerator struct {
	rng              *rand.Rand
	minSize, maxSize int
	pool             []*networking.Node
	nodes            Generator[*networking.Node]
}

// MessageGeneratorBuilder can build MessageGenerators.
type MessageGeneratorBuilder struct {
	seed             int64
	minSize, maxSize int
	pool             []*networking.Node
	nodes            Generator[*networking.Node]
}

// MakeMessageGeneratorBuilder creates a builder for messages of 1 to 100 bytes.
func MakeMessageGeneratorBuilder() MessageGeneratorBuilder {
	return MessageGeneratorBuilder{
		seed:    1,
		minSize: 1,
		maxSize: 100,
	}
}

// WithSeed sets the seed of the random source.
func (b MessageGeneratorBuilder) WithSeed(seed int64) MessageGeneratorBuilder {
	b.seed = seed
	return b
}

// WithSizeRange sets the inclusive range of message sizes.
func (b MessageGeneratorBuilder) WithSizeRange(
	minSize, maxSize int,
) MessageGeneratorBuilder {
	b.minSize = minSize
	b.maxSize = maxSize

	return b
}

// WithNodePool sets the nodes that senders and receivers are drawn from.
func (b MessageGeneratorBuilder) WithNodePool(
	pool []*networking.Node,
) MessageGeneratorBuilder {
	b.pool = pool
	return b
}

// WithNodeGenerator sets how endpoints are created when there is no pool.
func (b MessageGeneratorBuilder) WithNodeGenerator(
	nodes Generator[*networking.Node],
) MessageGeneratorBuilder {
	b.nodes = nodes
	return b
}

// Build creates the MessageGenerator.
func (b MessageGeneratorBuilder) Build() *MessageGenerator {
	if b.minSize < 0 || b.maxSize < b.minSize {
		log.Panicf("invalid message size range [%d, %d]", b.minSize, b.maxSize)
	}

	nodes := b.nodes
	if nodes == nil {
		nodes = NewNodeGenerator("Generated", networking.MakeNodeBuilder())
	}

	return &MessageGenerator{
		rng:     rand.New(rand.NewSource(b.seed)),
		minSize: b.minSize,
		maxSize: b.maxSize,
		pool:    b.pool,
		nodes:   nodes,
	}
}

// Generate creates the next message. Sender and receiver always differ.
func (g *MessageGenerator) Generate() networking.Message {
	sender, receiver := g.endpoints()

	m, err := networking.NewMessage(g.size(), sender, receiver)
	if err != nil {
		log.Panic(err)
	}

	return m
}

// size draws uniformly from [minSize, maxSize]. The span is computed unsigned
// so that the range may reach math.MaxInt.
func (g *MessageGenerator) size() int {
	span := uint64(g.maxSize-g.minSize) + 1
	if span > math.MaxInt64 {
		return g.minSize + int(g.rng.Int63())
	}

	return g.minSize + int(g.rng.Int63n(int64(span)))
}

func (g *MessageGenerator) endpoints() (*networking.Node, *networking.Node) {
	if len(g.pool) < 2 {
		return g.nodes.Generate(), g.nodes.Generate()
	}

	s := g.rng.Intn(len(g.pool))
	r := g.rng.Intn(len(g.pool) - 1)

	if r >= s {
		r++
	}

	return g.pool[s], g.pool[r]
}
