package verifier

import (
	"fmt"
	"golang.org/x/xerrors"
	"sort"
	"strings"
	"sync"
)

// Finding is one failed check. Check is the numbered check id and Where
// locates the failure as "id/contestId/selectionId".
type Finding struct {
	Check   string `json:"check"`
	Where   string `json:"where"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: '%s'", f.Check, f.Message, f.Where)
}

// Report accumulates findings from concurrent verifications.
type Report struct {
	mu       sync.Mutex
	findings []Finding
	items    int
}

// Add records the findings of one verified item.
func (r *Report) Add(fs ...Finding) {
	r.mu.Lock()
	r.findings = append(r.findings, fs...)
	r.items++
	r.mu.Unlock()
}

// Attach records findings about items already counted, such as cross
// checks between them.
func (r *Report) Attach(fs ...Finding) {
	r.mu.Lock()
	r.findings = append(r.findings, fs...)
	r.mu.Unlock()
}

// Items returns the number of verified items.
func (r *Report) Items() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items
}

// OK is true when no item had a finding.
func (r *Report) OK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.findings) == 0
}

// Findings returns a sorted copy of the findings.
func (r *Report) Findings() []Finding {
	r.mu.Lock()
	out := append([]Finding(nil), r.findings...)
	r.mu.Unlock()
	sortFindings(out)
	return out
}

// Err returns nil when the report is OK, and otherwise an error listing
// every finding.
func (r *Report) Err() error {
	fs := r.Findings()
	if len(fs) == 0 {
		return nil
	}
	lines := make([]string, len(fs))
	for i, f := range fs {
		lines[i] = f.String()
	}
	return xerrors.Errorf("%d verification findings:\n%s", len(fs), strings.Join(lines, "\n"))
}

func sortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Where != fs[j].Where {
			return fs[i].Where < fs[j].Where
		}
		if fs[i].Check != fs[j].Check {
			return fs[i].Check < fs[j].Check
		}
		return fs[i].Message < fs[j].Message
	})
}
