// Package cleaner strips reasoning-protocol markup from generated text and
// leaves only the assignment lines.
package cleaner

import (
	"regexp"
	"strings"
)

// ProtocolTags are the reasoning phases the generator asks for, plus the
// generic wrappers some services add around their reasoning.
var ProtocolTags = []string{
	"THINKING",
	"HEADER_CHECK",
	"CONTEXT_SEARCH",
	"VALIDATION",
	"DECISION",
	"REASONING",
}

var protocolBlocks = compileBlocks(ProtocolTags)

// block matches the opening (attributes allowed) and closing forms of one tag,
// case-insensitively.
type block struct {
	open  *regexp.Regexp
	close *regexp.Regexp
}

func compileBlocks(tags []string) []block {
	blocks := make([]block, 0, len(tags))
	for _, tag := range tags {
		name := regexp.QuoteMeta(tag)
		blocks = append(blocks, block{
			open:  regexp.MustCompile(`(?i)<` + name + `(?:\s[^>]*)?>`),
			close: regexp.MustCompile(`(?i)</` + name + `\s*>`),
		})
	}
	return blocks
}

// remove deletes every span from a closing tag back to the nearest opening
// tag before it. An opening tag that is never closed pairs with nothing.
func (b block) remove(text string) string {
	opens := b.open.FindAllStringIndex(text, -1)
	closes := b.close.FindAllStringIndex(text, -1)
	if len(opens) == 0 || len(closes) == 0 {
		return text
	}

	var (
		out     strings.Builder
		last    int
		pending = -1
		oi      int
	)
	for _, c := range closes {
		for oi < len(opens) && opens[oi][0] < c[0] {
			if opens[oi][0] >= last {
				pending = opens[oi][0]
			}
			oi++
		}
		if pending < 0 {
			continue
		}
		out.WriteString(text[last:pending])
		last = c[1]
		pending = -1
	}
	out.WriteString(text[last:])
	return out.String()
}

// RemoveBlocks deletes every well-formed `<tag>...</tag>` pair for the given
// tags, in any order, until none is left.
func RemoveBlocks(text string, tags ...string) string {
	return removeAll(text, compileBlocks(tags))
}

func removeAll(text string, blocks []block) string {
	for {
		before := text
		for _, b := range blocks {
			text = b.remove(text)
		}
		if text == before {
			return text
		}
	}
}

// Lines removes protocol blocks from raw and returns the surviving lines,
// trimmed, in their original order. Empty lines and stray tag fragments
// (lines starting with '<' or ending with '>') are dropped.
func Lines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(removeAll(raw, protocolBlocks), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "<") || strings.HasSuffix(line, ">") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Clean is Lines joined with newlines. Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	for {
		cleaned := strings.Join(Lines(raw), "\n")
		if cleaned == raw {
			return cleaned
		}
		raw = cleaned
	}
}
