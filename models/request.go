package models

// ChatRequest is the JSON body accepted by the chat API endpoints.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatForm is the form body posted by the HTML page. Older clients send "prompt".
type ChatForm struct {
	Question string `form:"question"`
	Prompt   string `form:"prompt"`
}

// Text returns whichever of the two fields was filled in.
func (f ChatForm) Text() string {
	if f.Question != "" {
		return f.Question
	}
	return f.Prompt
}
