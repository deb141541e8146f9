package scanner

// AnalysisResponse is the JSON body returned by POST /analyze.
// Only Result, Message and Popup drive client behavior; the rest is
// informational and filled by the server when a stored analysis exists.
type AnalysisResponse struct {
	Result  *string `json:"result,omitempty"`
	Message *string `json:"message,omitempty"`
	Popup   *bool   `json:"popup,omitempty"`

	URL     string `json:"url,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Created string `json:"created,omitempty"`
	Expiry  string `json:"expiry,omitempty"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`

	// Error is set by the server on malformed requests (HTTP 400).
	Error string `json:"error,omitempty"`
}

// Outcome is the single client-side behavior selected for a response.
// It is one of PopupRequired, Result, Message or Empty.
type Outcome interface {
	outcome()
}

// PopupRequired means the anonymous usage threshold was hit and the
// visitor should be offered a login.
type PopupRequired struct{}

// Result carries an analysis label such as "MALICIOUS" or "CAUTION".
type Result struct {
	Text string
}

// Message carries an informational string shown verbatim.
type Message struct {
	Text string
}

// Empty means nothing should be shown.
type Empty struct{}

func (PopupRequired) outcome() {}
func (Result) outcome()        {}
func (Message) outcome()       {}
func (Empty) outcome()         {}

// Classify maps a response onto exactly one Outcome.
// Precedence is popup, then result, then message.
func Classify(resp AnalysisResponse) Outcome {
	switch {
	case resp.Popup != nil && *resp.Popup:
		return PopupRequired{}
	case resp.Result != nil:
		return Result{Text: *resp.Result}
	case resp.Message != nil:
		return Message{Text: *resp.Message}
	default:
		return Empty{}
	}
}

// DroppedResult reports whether Classify discards a result because
// popup was also set.
func DroppedResult(resp AnalysisResponse) bool {
	return resp.Popup != nil && *resp.Popup && resp.Result != nil && *resp.Result != ""
}

// NewResultResponse builds the response for a stored analysis label.
func NewResultResponse(message, label string) AnalysisResponse {
	return AnalysisResponse{Message: &message, Result: &label}
}

// NewPopupResponse builds the login prompt response.
func NewPopupResponse() AnalysisResponse {
	popup := true
	return AnalysisResponse{Popup: &popup}
}
