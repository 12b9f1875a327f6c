// Command cover gates `make cover`: it reads a Go coverage profile,
// prints a per-package Markdown table, optionally writes a shields.io
// badge, and exits non-zero when total coverage is under the threshold.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/careatlas/provision-cli/internal/ci"
)

func main() {
	var (
		profile   = flag.String("profile", "coverage.out", "coverage profile to read")
		module    = flag.String("module", "github.com/careatlas/provision-cli", "module prefix to strip from package paths")
		threshold = flag.Float64("threshold", 0, "fail when total coverage is below this percentage")
		badge     = flag.String("badge", "", "write a shields.io endpoint badge JSON to this path")
	)
	flag.Parse()

	if err := run(os.Stdout, *profile, *module, *threshold, *badge); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out io.Writer, profile, module string, threshold float64, badge string) error {
	f, err := os.Open(profile)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	parsed, err := ci.ParseProfile(f)
	if err != nil {
		return err
	}
	report := parsed.Summarize(module)

	fmt.Fprint(out, ci.FormatMarkdown(report))

	if badge != "" {
		if err := os.WriteFile(badge, []byte(ci.FormatBadgeJSON(report)), 0o644); err != nil {
			return err
		}
	}
	if threshold > 0 {
		return ci.CheckThreshold(report, threshold)
	}
	return nil
}
