// Package scrape runs vendor collection tasks under a concurrency bound and
// reports per-source outcomes.
package scrape

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	pkgerrors "github.com/callmeahab/pharma-search-sub001/pkg/errors"
	"github.com/callmeahab/pharma-search-sub001/pkg/types"
)

// Source is one vendor collection task. Implementations own their internal
// timeouts; the runner only observes completion and item count.
type Source interface {
	// Name identifies the source in run reports and logs.
	Name() string
	// VendorName is the exact seeded Vendor.name this source writes under.
	VendorName() string
	// Collect produces the raw listings for one run.
	Collect(ctx context.Context) ([]types.RawListing, error)
}

// ExecSource runs an external collection script as a subprocess and reads one
// JSON raw listing per stdout line. Exit code zero with at least one listing
// counts as success; everything else is a failure for this run.
type ExecSource struct {
	name    string
	vendor  string
	command string
	args    []string
	dir     string
	timeout time.Duration
}

// NewExecSource builds a subprocess-backed source.
func NewExecSource(name, vendor, command string, args []string, dir string, timeout time.Duration) *ExecSource {
	return &ExecSource{
		name:    name,
		vendor:  vendor,
		command: command,
		args:    args,
		dir:     dir,
		timeout: timeout,
	}
}

func (s *ExecSource) Name() string { return s.name }

func (s *ExecSource) VendorName() string { return s.vendor }

// Collect runs the script and parses its stdout. Malformed lines fail the
// whole task: a script that emits garbage cannot be trusted for the lines
// that happened to parse.
func (s *ExecSource) Collect(ctx context.Context) ([]types.RawListing, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Dir = s.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "starting collection script")
	}

	var listings []types.RawListing
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var listing types.RawListing
		if err := json.Unmarshal(line, &listing); err != nil {
			_ = cmd.Wait()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				fmt.Sprintf("malformed listing on line %d", len(listings)+1))
		}
		listings = append(listings, listing)
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collection script failed")
	}
	if scanErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, scanErr, "reading script output")
	}
	return listings, nil
}
