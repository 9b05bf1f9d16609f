package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// tokenLimitDoer sends the completion budget as max_tokens, the field local
// OpenAI-compatible servers read, instead of max_completion_tokens.
type tokenLimitDoer struct {
	next *http.Client
}

func (d *tokenLimitDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil || req.Body == http.NoBody {
		return d.next.Do(req)
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read completion request: %w", err)
	}
	rewritten, err := renameTokenLimit(body)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(rewritten))
	req.ContentLength = int64(len(rewritten))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(rewritten)), nil
	}
	return d.next.Do(req)
}

// renameTokenLimit moves max_completion_tokens to max_tokens. Bodies without
// the field are returned untouched.
func renameTokenLimit(body []byte) ([]byte, error) {
	limit := gjson.GetBytes(body, "max_completion_tokens")
	if !limit.Exists() {
		return body, nil
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode completion request: %w", err)
	}
	delete(payload, "max_completion_tokens")
	payload["max_tokens"] = json.RawMessage(limit.Raw)
	return marshalVerbatim(payload)
}
