package providers

import (
	"bufio"
	"io"
	"strings"
)

// scanSSE reads a server-sent-events body and calls handle for every data
// payload. A "[DONE]" sentinel ends the stream. handle returning an error
// stops the scan and propagates it.
func scanSSE(body io.Reader, handle func(data string) error) error {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			if data == "[DONE]" {
				return nil
			}
			continue
		}
		if err := handle(data); err != nil {
			return err
		}
	}
	return sc.Err()
}
