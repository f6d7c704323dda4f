package rollout

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSchema marks a line that decoded as JSON but lacks the nested prompt
// text every rollout must carry.
var ErrSchema = errors.New("missing prompt text at prompt.messages[1].content.parts[0]")

// SchemaMode controls what happens to JSON-valid lines that fail the schema
// check. Syntactically invalid JSON is always dropped regardless of mode.
type SchemaMode int

const (
	// SchemaWarn drops the line but counts it so the UI can surface it.
	SchemaWarn SchemaMode = iota
	// SchemaSkip drops the line silently, same as invalid JSON.
	SchemaSkip
	// SchemaError aborts the whole load on the first schema problem.
	SchemaError
)

func ParseSchemaMode(s string) (SchemaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return SchemaWarn, nil
	case "skip":
		return SchemaSkip, nil
	case "error":
		return SchemaError, nil
	default:
		return SchemaWarn, fmt.Errorf("invalid schema mode %q: must be 'skip', 'warn', or 'error'", s)
	}
}

// Result is the outcome of loading one file: the surviving rollouts in sorted
// order plus counts of what was dropped along the way.
type Result struct {
	Rollouts  []Rollout
	BadJSON   int
	BadSchema int
}

// Load parses raw JSONL bytes into rollouts sorted ascending by prompt text.
// Blank lines contribute nothing. Lines that are not valid JSON are dropped
// and counted in BadJSON. Lines that are valid JSON but fail the schema check
// are handled per mode. The sort is stable, so loading identical bytes twice
// yields element-wise identical results.
func Load(raw []byte, mode SchemaMode) (Result, error) {
	var res Result
	for lineNo, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var r Rollout
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				// Valid JSON, wrong shape.
				if err := res.schemaProblem(lineNo+1, mode, err); err != nil {
					return Result{}, err
				}
				continue
			}
			res.BadJSON++
			continue
		}

		if _, ok := r.SortKey(); !ok {
			if err := res.schemaProblem(lineNo+1, mode, ErrSchema); err != nil {
				return Result{}, err
			}
			continue
		}
		res.Rollouts = append(res.Rollouts, r)
	}

	sort.SliceStable(res.Rollouts, func(i, j int) bool {
		ki, _ := res.Rollouts[i].SortKey()
		kj, _ := res.Rollouts[j].SortKey()
		return ki < kj
	})
	return res, nil
}

func (res *Result) schemaProblem(lineNo int, mode SchemaMode, err error) error {
	switch mode {
	case SchemaError:
		return fmt.Errorf("line %d: %w", lineNo, err)
	case SchemaWarn:
		res.BadSchema++
	}
	return nil
}

// Dropped reports how many lines were discarded, for the status line.
func (res Result) Dropped() string {
	switch {
	case res.BadJSON == 0 && res.BadSchema == 0:
		return ""
	case res.BadSchema == 0:
		return fmt.Sprintf("%d bad line(s) skipped", res.BadJSON)
	case res.BadJSON == 0:
		return fmt.Sprintf("%d schema-invalid line(s) skipped", res.BadSchema)
	default:
		return fmt.Sprintf("%d bad, %d schema-invalid line(s) skipped", res.BadJSON, res.BadSchema)
	}
}
