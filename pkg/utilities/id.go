package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// RequestIDs hands out snowflake ids from a single node. A node must be shared
// by every caller in the process, otherwise ids generated in the same
// millisecond collide.
type RequestIDs struct {
	node *snowflake.Node
}

// NewRequestIDs builds a generator for the given node id (0-1023).
func NewRequestIDs(nodeID int64) (*RequestIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &RequestIDs{node: node}, nil
}

// Next returns the next id. Falls back to a KSUID when the generator is nil.
func (g *RequestIDs) Next() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
