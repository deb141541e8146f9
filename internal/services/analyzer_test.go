package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rahul4469/qrguard/internal/models"
	"github.com/rahul4469/qrguard/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockURLStore struct{ mock.Mock }

func (m *mockURLStore) IsRegistered(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

func (m *mockURLStore) FindByURL(ctx context.Context, url string) (*models.URLAnalysis, error) {
	args := m.Called(ctx, url)
	a, _ := args.Get(0).(*models.URLAnalysis)
	return a, args.Error(1)
}

type mockHistoryStore struct{ mock.Mock }

func (m *mockHistoryStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *mockHistoryStore) Save(ctx context.Context, ownerID, url, label string, guest bool) (bool, error) {
	args := m.Called(ctx, ownerID, url, label, guest)
	return args.Bool(0), args.Error(1)
}

const testURL = "http://example.com/login"

func newTestAnalyzer(urls *mockURLStore, history *mockHistoryStore) *Analyzer {
	a := NewAnalyzer(urls, history, 5)
	a.now = func() time.Time { return time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC) }
	return a
}

func TestAnalyzeGuestOverLimitGetsPopup(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	history.On("CountByOwner", mock.Anything, "guest-1").Return(5, nil)

	resp, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "guest-1", true)
	require.NoError(t, err)

	assert.Equal(t, scanner.PopupRequired{}, scanner.Classify(resp))
	assert.Nil(t, resp.Result)
	urls.AssertNotCalled(t, "IsRegistered", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeMemberSkipsLimit(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	urls.On("IsRegistered", mock.Anything, testURL).Return(false, nil)

	resp, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "42", false)
	require.NoError(t, err)

	assert.Equal(t, scanner.Result{Text: models.LabelCaution}, scanner.Classify(resp))
	assert.Equal(t, MsgNotRegistered, *resp.Message)
	history.AssertNotCalled(t, "CountByOwner", mock.Anything, mock.Anything)
}

func TestAnalyzeRegisteredWithoutAnalysis(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	history.On("CountByOwner", mock.Anything, "guest-1").Return(0, nil)
	urls.On("IsRegistered", mock.Anything, testURL).Return(true, nil)
	urls.On("FindByURL", mock.Anything, testURL).Return(nil, models.ErrAnalysisNotFound)

	resp, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "guest-1", true)
	require.NoError(t, err)

	assert.Equal(t, MsgNoAnalysis, *resp.Message)
	assert.Equal(t, models.LabelCaution, *resp.Result)
	assert.Equal(t, testURL, resp.URL)
}

func TestAnalyzeFoundSavesHistory(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	created := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)

	history.On("CountByOwner", mock.Anything, "guest-1").Return(2, nil)
	urls.On("IsRegistered", mock.Anything, testURL).Return(true, nil)
	urls.On("FindByURL", mock.Anything, testURL).Return(&models.URLAnalysis{
		URL:         testURL,
		Label:       models.LabelMalicious,
		CreatedDate: &created,
	}, nil)
	history.On("Save", mock.Anything, "guest-1", testURL, models.LabelMalicious, true).Return(true, nil)

	resp, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "guest-1", true)
	require.NoError(t, err)

	assert.Equal(t, MsgAnalyzed, *resp.Message)
	assert.Equal(t, models.LabelMalicious, *resp.Result)
	assert.Equal(t, "example.com", resp.Domain)
	assert.Equal(t, "2019-01-02", resp.Created)
	assert.Equal(t, "-", resp.Expiry)
	assert.Equal(t, "2025-03-09 14:05", resp.Date)
	assert.Equal(t, SourceAnalyzed, resp.Source)
	history.AssertExpectations(t)
}

func TestAnalyzeEmptyLabelDefaultsToCaution(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	domain := "stored.example"

	urls.On("IsRegistered", mock.Anything, testURL).Return(true, nil)
	urls.On("FindByURL", mock.Anything, testURL).Return(&models.URLAnalysis{URL: testURL, Domain: &domain}, nil)

	resp, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "", false)
	require.NoError(t, err)

	assert.Equal(t, models.LabelCaution, *resp.Result)
	assert.Equal(t, "stored.example", resp.Domain)
	history.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeStoreFailure(t *testing.T) {
	urls := &mockURLStore{}
	history := &mockHistoryStore{}
	urls.On("IsRegistered", mock.Anything, testURL).Return(false, errors.New("connection refused"))

	_, err := newTestAnalyzer(urls, history).Analyze(context.Background(), testURL, "42", false)
	require.Error(t, err)

	resp := ServerErrorResponse()
	assert.Equal(t, MsgServerError, *resp.Message)
	assert.Equal(t, models.LabelCaution, *resp.Result)
}
