package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// maxEventSize bounds a single SSE line.
const maxEventSize = 1 << 20

// SSETransport reads a text/event-stream response.
type SSETransport struct {
	httpClient *http.Client
}

// NewSSETransport creates an SSE transport. A nil client uses one without a timeout,
// since the connection is long-lived.
func NewSSETransport(httpClient *http.Client) *SSETransport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SSETransport{httpClient: httpClient}
}

// Connect implements Transport.
func (t *SSETransport) Connect(ctx context.Context, url string, onOpen func(), onMessage func([]byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	onOpen()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if data.Len() > 0 {
				onMessage([]byte(data.String()))
				data.Reset()
			}
			continue
		}

		// Comments (keep-alives)
		if strings.HasPrefix(line, ":") {
			continue
		}

		if value, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(value, " "))
		}
	}

	return scanner.Err()
}
