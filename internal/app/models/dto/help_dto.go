package dto

// HelpBotQuery is posted by the help widget.
type HelpBotQuery struct {
	Query string `json:"query" binding:"required,max=500"`
}

// HelpBotResponse carries the reply and the similarity diagnostics.
type HelpBotResponse struct {
	Success bool      `json:"success"`
	Reply   string    `json:"reply"`
	Scores  []float64 `json:"scores"`
	Matched bool      `json:"matched"`
}
