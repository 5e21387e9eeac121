package backend

import "context"

// AIResponse is the backend's AI reply
type AIResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
	Answer   string `json:"answer"`
	Error    string `json:"error"`
}

// Text returns whichever text field the endpoint filled
func (r AIResponse) Text() string {
	if r.Analysis != "" {
		return r.Analysis
	}
	return r.Answer
}

// AskAI posts a payload to one of the backend's AI endpoints
func (c *Client) AskAI(ctx context.Context, path string, payload any) (*AIResponse, error) {
	var res AIResponse
	if err := c.postJSON(ctx, "ask-ai", path, payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
