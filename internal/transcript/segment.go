// Package transcript splits a vendor transcript into ordered, role-tagged utterances.
package transcript

import "strings"

const (
	RoleAgent = "agent"
	RoleLead  = "lead"
)

// Utterance is one line of a transcript attributed to a speaker.
type Utterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Seq     int    `json:"seq"`
}

var (
	agentMarkers = []string{"Agent:", "AI:", "Assistant:", "Bot:"}
	leadMarkers  = []string{"Lead:", "User:", "Customer:", "Caller:"}
)

// Segment splits raw on newlines, drops blank lines and tags each line by its
// speaker prefix. Matching is case-sensitive; unmarked lines belong to the lead.
// Seq runs 0..n-1 over the kept lines.
func Segment(raw string) []Utterance {
	lines := strings.Split(raw, "\n")
	out := make([]Utterance, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		role, content := classify(line)
		out = append(out, Utterance{Role: role, Content: content, Seq: len(out)})
	}

	return out
}

func classify(line string) (string, string) {
	if rest, ok := stripMarker(line, agentMarkers); ok {
		return RoleAgent, rest
	}
	if rest, ok := stripMarker(line, leadMarkers); ok {
		return RoleLead, rest
	}
	return RoleLead, line
}

func stripMarker(line string, markers []string) (string, bool) {
	for _, m := range markers {
		if rest, ok := strings.CutPrefix(line, m); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
