package gen

import (
	"github.com/bwmarrin/snowflake"

	"idlezoo/pkg/config"
)

// NewNode returns the snowflake node used for every generated row ID. Run
// each replica with its own SNOWFLAKE_NODE (0-1023).
func NewNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
