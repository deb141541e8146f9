package scanner

const (
	// LoginPath is where the client goes when the visitor accepts the login prompt.
	LoginPath = "/auth/login"

	// LoginPrompt is the confirmation text shown on PopupRequired.
	LoginPrompt = "비회원 검색 횟수를 초과했습니다. 로그인하시겠습니까?"

	// ResultPrefix is prepended to analysis labels.
	ResultPrefix = "분석 결과: "
)

// Presenter shows blocking notifications to the user.
// Alert and Confirm return only after the user dismisses the dialog.
type Presenter interface {
	Alert(msg string)
	Confirm(msg string) bool
	Navigate(path string)
}

// Dispatch performs the user facing behavior for an outcome.
// At most one notification or prompt is shown per call.
func Dispatch(o Outcome, p Presenter) {
	switch v := o.(type) {
	case PopupRequired:
		if p.Confirm(LoginPrompt) {
			p.Navigate(LoginPath)
		}
	case Result:
		p.Alert(ResultPrefix + v.Text)
	case Message:
		p.Alert(v.Text)
	case Empty:
	}
}
