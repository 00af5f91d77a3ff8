package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/launchdarkly/async-test-harness/framework/ldtest"
)

type commandParams struct {
	configFile     string
	redisAddress   string
	storeType      string
	debugLogger    string
	filters        ldtest.RegexFilters
	skipFile       string
	recordFailures string
	debug          bool
	debugAll       bool
	jUnitFile      string
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.configFile, "config", "", "JSON or YAML configuration file")
	fs.StringVar(&c.redisAddress, "redis", "", "redis address, overriding the configuration file")
	fs.StringVar(&c.storeType, "store", "", "store type for the store fixture: redis, consul, or dynamodb")
	fs.StringVar(&c.debugLogger, "debug-logger", "", "name of the logger that the debug_logger fixture attaches to")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.skipFile, "skip-from", "", "file of test IDs, one per line, not to run")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed tests to the specified path")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return false
	}
	return true
}
