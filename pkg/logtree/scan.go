package logtree

import (
	"bufio"
	"io"
	"strings"
)

// scanLines reads lines from r and calls fn for each, without the line
// terminator. A final line with no newline is delivered once. Lines of any
// length are delivered whole.
func scanLines(r io.Reader, fn func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			fn(strings.ToValidUTF8(line, "�"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
