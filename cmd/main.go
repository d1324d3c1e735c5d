// Package cmd implements the mm command line tool, a client for the money
// manager backend.
package cmd

import (
	"flag"

	"github.com/google/subcommands"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&loginCmd{}, "session")
	c.Register(&registerCmd{}, "session")
	c.Register(&logoutCmd{}, "session")
	c.Register(&whoamiCmd{}, "session")

	c.Register(&lsCmd{}, "transactions")
	c.Register(&addCmd{}, "transactions")
	c.Register(&editCmd{}, "transactions")
	c.Register(&rmCmd{}, "transactions")
	c.Register(&purgeCmd{}, "transactions")

	c.Register(&summaryCmd{}, "reports")
	c.Register(&exportCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the YAML configuration file. Defaults to $"+EnvConfig+".")
var Verbose = flag.Bool("v", false, "Log debug messages, including every request sent.")
