package scanner

// GoTo announces navigation to page. Routing is not wired yet, so
// nothing else happens.
func GoTo(p Presenter, page string) {
	p.Alert(page + " 페이지로 이동합니다.")
}
