package mvccbt

import "fmt"

// TruncateLog and TruncateEnd are the txn_truncate_log/txn_truncate_end
// collaborators from spec section 6/4.10: an in-memory logging scope
// bracketing a range-truncate; TruncateLog pushes the range onto
// Tree.truncates and TruncateEnd pops it, and nothing replays or rolls back
// a logged range, matching the teacher's own "no structured logging library, just
// diagnostics" texture (section 10.4) and the usage-style size/argument
// diagnostics of deps/wiredtiger-2.2.1/src/utilities/util.h.
func (t *Tree) TruncateLog(start, stop []byte) error {
	if start == nil && stop == nil {
		return fmt.Errorf("mvccbt: truncate_log: start and stop cannot both be unbounded")
	}
	t.truncates = append(t.truncates, truncateRange{start: start, stop: stop})
	return nil
}

func (t *Tree) TruncateEnd() error {
	if len(t.truncates) == 0 {
		return fmt.Errorf("mvccbt: truncate_end: no open truncate scope")
	}
	t.truncates = t.truncates[:len(t.truncates)-1]
	return nil
}
