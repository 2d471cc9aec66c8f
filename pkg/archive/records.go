package archive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// recordReader parses RFC 4180 records. Unlike encoding/csv it keeps
// carriage returns inside quoted fields, so a value holding "\r\n" reads
// back unchanged. Outside quotes both LF and CRLF end a record, and blank
// lines are skipped.
type recordReader struct {
	r    *bufio.Reader
	line int
}

func newRecordReader(r io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(r), line: 1}
}

// Read returns the next record, or io.EOF once the input is exhausted.
func (rr *recordReader) Read() ([]string, error) {
	var (
		fields    []string
		field     strings.Builder
		inQuotes  bool
		wasQuoted bool
		started   bool
	)
	start := rr.line

	for {
		b, err := rr.r.ReadByte()
		if err == io.EOF {
			if inQuotes {
				return nil, fmt.Errorf("record on line %d: unterminated quoted field", start)
			}
			if !started {
				return nil, io.EOF
			}
			return append(fields, field.String()), nil
		}
		if err != nil {
			return nil, err
		}

		if inQuotes {
			switch b {
			case '"':
				if next, err := rr.r.Peek(1); err == nil && next[0] == '"' {
					_, _ = rr.r.ReadByte()
					field.WriteByte('"')
				} else {
					inQuotes = false
				}
			case '\n':
				rr.line++
				field.WriteByte(b)
			default:
				field.WriteByte(b)
			}
			continue
		}

		switch b {
		case '\n':
			rr.line++
			if !started {
				start = rr.line
				continue
			}
			return append(fields, field.String()), nil
		case '\r':
			// CR directly before LF, or at end of input, terminates the record.
			if next, err := rr.r.Peek(1); err != nil || next[0] == '\n' {
				continue
			}
			if wasQuoted {
				return nil, fmt.Errorf("record on line %d: unexpected character after quoted field", rr.line)
			}
			started = true
			field.WriteByte(b)
		case ',':
			started = true
			fields = append(fields, field.String())
			field.Reset()
			wasQuoted = false
		case '"':
			if field.Len() > 0 || wasQuoted {
				return nil, fmt.Errorf("record on line %d: bare quote in unquoted field", rr.line)
			}
			started = true
			inQuotes = true
			wasQuoted = true
		default:
			if wasQuoted {
				return nil, fmt.Errorf("record on line %d: unexpected character after quoted field", rr.line)
			}
			started = true
			field.WriteByte(b)
		}
	}
}
