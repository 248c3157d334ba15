package state

// Wildcard marks an expectation sequence entry that matches any observed
// value. Structural expectations use nil values for the same purpose.
const Wildcard = -1

// DeepPartialMatch reports whether expected structurally matches actual.
//
// Matching rules:
//   - nil expected matches anything
//   - maps: every expected key must exist in actual and match recursively;
//     actual may carry extra keys
//   - sequences: actual must be at least as long as expected and match
//     element-wise on the expected prefix; actual may be longer
//   - scalars: numeric values compare by value across int/float types,
//     everything else by equality
func DeepPartialMatch(expected, actual any) bool {
	if expected == nil {
		return true
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, value := range exp {
			inner, present := act[key]
			if !present {
				return false
			}
			if !DeepPartialMatch(value, inner) {
				return false
			}
		}
		return true
	case []any:
		return sequenceMatches(exp, actual)
	case []int:
		generic := make([]any, len(exp))
		for i, v := range exp {
			generic[i] = v
		}
		return sequenceMatches(generic, actual)
	default:
		return scalarEqual(expected, actual)
	}
}

func sequenceMatches(expected []any, actual any) bool {
	var items []any
	switch act := actual.(type) {
	case []any:
		items = act
	case []int:
		items = make([]any, len(act))
		for i, v := range act {
			items[i] = v
		}
	default:
		return false
	}

	if len(items) < len(expected) {
		return false
	}
	for i, exp := range expected {
		if !DeepPartialMatch(exp, items[i]) {
			return false
		}
	}
	return true
}

// scalarEqual compares leaf values, tolerating the int/float64 split a
// JSON decoder introduces.
func scalarEqual(expected, actual any) bool {
	if en, ok := asFloat(expected); ok {
		an, ok := asFloat(actual)
		return ok && en == an
	}
	return expected == actual
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// opCommandMatches reports whether an observed opcode command satisfies an
// expectation sequence. Wildcard entries match any observed value; the
// observed command may be longer than the expectation.
func opCommandMatches(expected, actual []int) bool {
	if len(actual) < len(expected) {
		return false
	}
	for i, exp := range expected {
		if exp == Wildcard {
			continue
		}
		if actual[i] != exp {
			return false
		}
	}
	return true
}

// FilterOpCommands selects the opcode commands addressed to a state and
// strips their routing prefix.
//
// A command survives when its leading byte equals opType and the bytes
// that follow match identifier position-wise, with Wildcard identifier
// entries matching anything. The matched prefix (type byte plus identifier
// length) is dropped from each surviving command. A negative opType
// disables filtering and returns copies of every command unchanged.
func FilterOpCommands(commands [][]int, opType int, identifier []int) [][]int {
	var results [][]int
	for _, command := range commands {
		if opType < 0 {
			results = append(results, append([]int(nil), command...))
			continue
		}
		if len(command) == 0 || command[0] != opType {
			continue
		}
		if identifier == nil {
			continue
		}
		tail := command[1:]
		if len(tail) < len(identifier) {
			continue
		}
		matched := true
		for i, id := range identifier {
			if id == Wildcard {
				continue
			}
			if tail[i] != id {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		drop := 1 + len(identifier)
		results = append(results, append([]int(nil), command[drop:]...))
	}
	return results
}
