package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Secret12!", true},
		{"ABCdef1#", true},
		{"Sh0rt!", false},
		{"nouppercase1!", false},
		{"NoDigits!!", false},
		{"NoSymbol12", false},
		{"Bad$Symbol1", false},
		{"Spaces 1!A", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if tt.ok {
			assert.NoError(t, err, tt.password)
		} else {
			assert.ErrorIs(t, err, ErrWeakPassword, tt.password)
		}
	}
}

func TestParseHistoryFilter(t *testing.T) {
	assert.Equal(t, FilterLegit, ParseHistoryFilter(" Legit "))
	assert.Equal(t, FilterMalicious, ParseHistoryFilter("malicious"))
	assert.Equal(t, FilterAll, ParseHistoryFilter(""))
	assert.Equal(t, FilterAll, ParseHistoryFilter("unknown"))
}

func TestHistoryFilterApply(t *testing.T) {
	now := time.Now()
	entries := []HistoryEntry{
		{URL: "a", Label: "LEGITIMATE", AnalyzedAt: now},
		{URL: "b", Label: "safe", AnalyzedAt: now},
		{URL: "c", Label: "정상", AnalyzedAt: now},
		{URL: "d", Label: "MALICIOUS", AnalyzedAt: now},
		{URL: "e", Label: "악성", AnalyzedAt: now},
		{URL: "f", Label: "CAUTION", AnalyzedAt: now},
	}

	urls := func(es []HistoryEntry) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.URL)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, urls(FilterLegit.Apply(entries)))
	assert.Equal(t, []string{"d", "e"}, urls(FilterMalicious.Apply(entries)))
	assert.Len(t, FilterAll.Apply(entries), 6)
	assert.Nil(t, FilterAll.Labels())
	assert.Contains(t, FilterMalicious.Labels(), "DANGER")
}

func TestURLAnalysisLabelOrDefault(t *testing.T) {
	assert.Equal(t, LabelCaution, (&URLAnalysis{}).LabelOrDefault())
	assert.Equal(t, LabelMalicious, (&URLAnalysis{Label: LabelMalicious}).LabelOrDefault())
}

func TestUserOwnerID(t *testing.T) {
	assert.Equal(t, "42", (&User{ID: 42}).OwnerID())
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, hashToken("abc"), hashToken("abc"))
	assert.NotEqual(t, hashToken("abc"), hashToken("abd"))

	tok, err := generateToken(MinBytesPerToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"example.com":     "example.com",
		"100%":            `100\%`,
		"a_b":             `a\_b`,
		`C:\path`:         `C:\\path`,
		`%_\`:             `\%\_\\`,
		"":                "",
		"https://x.io/?q": "https://x.io/?q",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeLike(in), in)
	}
}

func TestNormalizeReportURLAndDomain(t *testing.T) {
	assert.Equal(t, "http://phish.example/login", NormalizeReportURL("  phish.example/login "))
	assert.Equal(t, "https://a.example", NormalizeReportURL("https://a.example"))
	assert.Equal(t, "", NormalizeReportURL("   "))

	assert.Equal(t, "phish.example", ReportDomain("phish.example/login"))
	assert.Equal(t, "a.example", ReportDomain("https://a.example:8443/x"))
	assert.Equal(t, "-", ReportDomain(""))
}

func TestParseJudgment(t *testing.T) {
	for in, want := range map[string]string{"malicious": "MALICIOUS", " LEGITIMATE ": "LEGITIMATE", "pending": "PENDING"} {
		got, err := ParseJudgment(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "SAFE", "악성"} {
		_, err := ParseJudgment(in)
		assert.ErrorIs(t, err, ErrInvalidJudgment, in)
	}

	assert.Equal(t, StatusMalicious, StatusForJudgment(JudgmentMalicious))
	assert.Equal(t, StatusLegitimate, StatusForJudgment(JudgmentLegitimate))
	assert.Equal(t, StatusPending, StatusForJudgment(JudgmentPending))
}

func TestSeverityFor(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	assert.Equal(t, SeverityHigh, SeverityFor(f(0.85)))
	assert.Equal(t, SeverityMedium, SeverityFor(f(0.6)))
	assert.Equal(t, SeverityLow, SeverityFor(f(0.59)))
	assert.Equal(t, SeverityLow, SeverityFor(nil))
}

func TestReportPaging(t *testing.T) {
	limit, offset := reportPaging(0, 0)
	assert.Equal(t, [2]int{DefaultReportPageSize, 0}, [2]int{limit, offset})
	limit, offset = reportPaging(3, 10)
	assert.Equal(t, [2]int{10, 20}, [2]int{limit, offset})
	limit, _ = reportPaging(1, 10_000)
	assert.Equal(t, MaxReportPageSize, limit)
}

func TestSettingsMerge(t *testing.T) {
	var patch SettingsPatch
	require.NoError(t, json.Unmarshal([]byte(`{
		"privacy": {"data_consent": false},
		"display": {"theme": "neon", "font_scale": "70"},
		"language": "en",
		"history": {"default_filter": "LEGIT"},
		"chatbot": {"mode": "pro"}
	}`), &patch))

	got := DefaultSettings().Merge(patch)
	assert.False(t, got.Privacy.DataConsent)
	assert.True(t, got.Privacy.Camera)
	assert.Equal(t, "light", got.Display.Theme)
	assert.Equal(t, MinFontScale, got.Display.FontScale)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, FilterAll, got.History.DefaultFilter, "filters are case sensitive")
	assert.Equal(t, "pro", got.Chatbot.Mode)

	require.NoError(t, json.Unmarshal([]byte(`{"display":{"font_scale":112.7}}`), &patch))
	assert.Equal(t, 112, DefaultSettings().Merge(patch).Display.FontScale)

	require.NoError(t, json.Unmarshal([]byte(`{"display":{"font_scale":"big"}}`), &patch))
	assert.Equal(t, 100, DefaultSettings().Merge(patch).Display.FontScale)

	assert.Equal(t, DefaultSettings(), DefaultSettings().Merge(SettingsPatch{}))
}

func TestUserIsAdmin(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}
