package util

import "strings"

// RepairJSON extracts the JSON value from model output that wraps it in a
// markdown fence or surrounding prose. The first balanced object or array
// wins; a truncated value is cut at its last closing bracket. ok reports
// whether the input changed.
func RepairJSON(s string) (string, bool) {
	out := stripFence(strings.TrimSpace(s))
	if v, found := firstJSONValue(out); found {
		out = v
	}
	return out, out != s
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstJSONValue(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}

	end := strings.LastIndexAny(s, "}]")
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
