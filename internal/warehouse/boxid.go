package warehouse

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// BoxIDGenerator issues identifiers for boxes recorded without one.
type BoxIDGenerator interface {
	NextBoxID() string
}

// SnowflakeBoxIDs generates time ordered box ids unique per node.
type SnowflakeBoxIDs struct {
	node *snowflake.Node
}

// NewSnowflakeBoxIDs builds a generator for the given node number (0-1023).
func NewSnowflakeBoxIDs(node int64) (*SnowflakeBoxIDs, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("warehouse: snowflake node %d: %w", node, err)
	}
	return &SnowflakeBoxIDs{node: n}, nil
}

// NextBoxID implements BoxIDGenerator.
func (g *SnowflakeBoxIDs) NextBoxID() string {
	return "BOX-" + g.node.Generate().Base36()
}
