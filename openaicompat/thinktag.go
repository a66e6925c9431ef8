package openaicompat

import "strings"

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// thinkFragment is one ordered piece of output from thinkTagParser.push: a
// run of plain text, or a run of text that was inside a <think> pair.
type thinkFragment struct {
	isThinking bool
	text       string
}

// thinkTagParser is a streaming <think>...</think> extractor. It tracks two
// states, outside a think block or inside one, distinguished by insideThink,
// with partial holding whatever prefix of the relevant tag has matched so
// far across chunk boundaries.
type thinkTagParser struct {
	insideThink bool
	partial     strings.Builder
}

func newThinkTagParser() *thinkTagParser {
	return &thinkTagParser{}
}

func (p *thinkTagParser) currentTarget() string {
	if p.insideThink {
		return thinkCloseTag
	}
	return thinkOpenTag
}

// push consumes chunk and returns the fragments it completes. A tag split
// across two push calls carries its partial match in p.partial and resumes
// matching on the next call; a failed partial match is flushed as literal
// text of whichever mode is currently active.
func (p *thinkTagParser) push(chunk string) []thinkFragment {
	var out []thinkFragment
	var textBuf, thinkBuf strings.Builder

	emitText := func() {
		if textBuf.Len() > 0 {
			out = append(out, thinkFragment{text: textBuf.String()})
			textBuf.Reset()
		}
	}
	emitThinking := func() {
		if thinkBuf.Len() > 0 {
			out = append(out, thinkFragment{isThinking: true, text: thinkBuf.String()})
			thinkBuf.Reset()
		}
	}

	for i := 0; i < len(chunk); {
		c := chunk[i]
		target := p.currentTarget()

		if c == target[p.partial.Len()] {
			p.partial.WriteByte(c)
			if p.partial.Len() == len(target) {
				p.partial.Reset()
				if p.insideThink {
					emitThinking()
				} else {
					emitText()
				}
				p.insideThink = !p.insideThink
			}
			i++
			continue
		}

		if p.partial.Len() > 0 {
			// Failed partial match: what we'd buffered is literal content,
			// not a tag. Flush it and retry this byte from scratch.
			if p.insideThink {
				thinkBuf.WriteString(p.partial.String())
			} else {
				textBuf.WriteString(p.partial.String())
			}
			p.partial.Reset()
			continue
		}

		if p.insideThink {
			thinkBuf.WriteByte(c)
		} else {
			textBuf.WriteByte(c)
		}
		i++
	}

	emitText()
	emitThinking()
	return out
}

// flush emits any tail buffer as the appropriate kind, so a stream ending
// mid-tag loses no data. Call it once, after the final push.
func (p *thinkTagParser) flush() []thinkFragment {
	if p.partial.Len() == 0 {
		return nil
	}
	fragment := thinkFragment{isThinking: p.insideThink, text: p.partial.String()}
	p.partial.Reset()
	return []thinkFragment{fragment}
}
