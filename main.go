package main

import (
	"bufio"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/launchdarkly/async-test-harness/framework/config"
	"github.com/launchdarkly/async-test-harness/framework/ldtest"
	"github.com/launchdarkly/async-test-harness/harnesstests"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("async-test-harness v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	results, err := run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(params commandParams) (*ldtest.Results, error) {
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfig(params)
	if err != nil {
		return nil, err
	}

	var testLogger ldtest.TestLogger
	consoleLogger := ldtest.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if params.jUnitFile == "" {
		testLogger = consoleLogger
	} else {
		properties := map[string]string{
			"redisAddress": cfg.Redis.Address,
			"storeType":    cfg.Store.Type,
		}
		testLogger = &ldtest.MultiTestLogger{Loggers: []ldtest.TestLogger{
			consoleLogger,
			ldtest.NewJUnitTestLogger(params.jUnitFile, harnesstests.SuiteName, properties, params.filters),
		}}
	}

	ldtest.PrintFilterDescription(os.Stdout, params.filters)
	results := harnesstests.RunHarnessTestSuite(cfg, params.filters.Match, testLogger)

	fmt.Println()
	if err := testLogger.EndLog(results); err != nil {
		return nil, fmt.Errorf("error writing log: %v", err)
	}

	if params.recordFailures != "" {
		f, err := os.Create(params.recordFailures)
		if err != nil {
			return nil, fmt.Errorf("cannot create suppression file: %v", err)
		}
		for _, test := range results.Failures {
			fmt.Fprintln(f, test.TestID)
		}
		_ = f.Close()
	}

	return &results, nil
}

func loadConfig(params commandParams) (config.Config, error) {
	cfg := config.Default()
	if params.configFile != "" {
		loaded, err := config.Load(params.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if params.redisAddress != "" {
		cfg.Redis.Address = params.redisAddress
	}
	if params.storeType != "" {
		cfg.Store.Type = params.storeType
	}
	if params.debugLogger != "" {
		cfg.Log.DebugLogger = params.debugLogger
	}
	return cfg, cfg.Validate()
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := regexp.QuoteMeta(line)
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
