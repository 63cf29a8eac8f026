package fseries

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// coefficientColumns is the token count of a coefficient row.
const coefficientColumns = 6

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// ParseString parses .fseries text held in memory.
func ParseString(text string) ([]Block, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads .fseries text and returns its blocks in file order.
//
// Empty input yields an empty slice and no error. A trailing block that is
// not followed by a blank line is still returned. The first malformed
// number aborts parsing with a *ParseError; no blocks are returned then.
func Parse(r io.Reader) ([]Block, error) {
	blocks := []Block{}
	var cur Block

	flush := func() bool {
		if cur.Harmonics() == 0 {
			return false
		}
		blocks = append(blocks, cur)
		cur = Block{}
		return true
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "%") {
			flush()
			cur.Header = strings.TrimSpace(line[1:])
			continue
		}
		if line == "" {
			// A blank line only clears the pending header when it closes a block.
			flush()
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != coefficientColumns {
			continue
		}
		var row Row
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &ParseError{
					Line:    lineNo,
					Text:    raw,
					Message: fmt.Sprintf("column %d is not a number", i+1),
					Err:     err,
				}
			}
			row[i] = v
		}
		cur.appendRow(row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fseries: %w", err)
	}
	flush()

	return blocks, nil
}
