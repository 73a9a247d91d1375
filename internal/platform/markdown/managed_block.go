package markdown

import (
	"fmt"
	"strings"
)

func blockMarkers(name string) (string, string) {
	return fmt.Sprintf("<!-- beatmark:%s:start -->", name), fmt.Sprintf("<!-- beatmark:%s:end -->", name)
}

// SetBlock replaces the generated block called name inside body, appending it
// when absent. Text outside the block is left untouched.
func SetBlock(body, name, generated string) string {
	open, close := blockMarkers(name)
	block := open + "\n" + strings.TrimRight(generated, "\n") + "\n" + close

	start := strings.Index(body, open)
	if start >= 0 {
		if end := strings.Index(body[start:], close); end >= 0 {
			end += start + len(close)
			return body[:start] + block + body[end:]
		}
	}

	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}

// Block returns the content of the generated block called name.
func Block(body, name string) (string, bool) {
	open, close := blockMarkers(name)
	start := strings.Index(body, open)
	if start < 0 {
		return "", false
	}
	rest := body[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return strings.Trim(rest[:end], "\n"), true
}
