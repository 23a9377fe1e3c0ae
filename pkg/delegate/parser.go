package delegate

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:bash|sh|shell)?\\n(.*?)```")

// ParseActions extracts the ordered action sequence from a raw model
// response. Fenced code blocks become command actions; lines starting
// with "note:" or "finish:" outside of code blocks become note and
// finish actions. Everything else is commentary and ignored. Order of
// appearance in the response is preserved.
func ParseActions(response string) []Action {
	var actions []Action

	last := 0
	for _, loc := range fencedBlockRe.FindAllStringSubmatchIndex(response, -1) {
		actions = append(actions, parseDirectives(response[last:loc[0]])...)

		script := strings.TrimSpace(response[loc[2]:loc[3]])
		if script != "" {
			actions = append(actions, Action{Kind: ActionKindCommand, Command: script})
		}
		last = loc[1]
	}
	actions = append(actions, parseDirectives(response[last:])...)

	return actions
}

// parseDirectives scans prose outside code blocks for note: and finish:
// lines.
func parseDirectives(text string) []Action {
	var actions []Action
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "note:"):
			msg := strings.TrimSpace(line[len("note:"):])
			if msg != "" {
				actions = append(actions, Action{Kind: ActionKindNote, Message: msg})
			}
		case strings.HasPrefix(lower, "finish:"):
			msg := strings.TrimSpace(line[len("finish:"):])
			actions = append(actions, Action{Kind: ActionKindFinish, Message: msg})
		}
	}
	return actions
}
