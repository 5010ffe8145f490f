// Package idgen hands out time-ordered int64 identifiers for audit rows.
package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets the node ID. Only the first call has effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns the next ID. Init must have succeeded first.
func New() int64 {
	return node.Generate().Int64()
}
