package aiextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-group/boq-cli/internal/boq"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/pkg/anthropic"
)

// fakeClient returns canned responses in order.
type fakeClient struct {
	responses []string
	calls     int
	lastReq   anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	text := f.responses[f.calls%len(f.responses)]
	f.calls++
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func testSheet() boq.Sheet {
	return boq.Sheet{
		Name: "Bill 2 - Cables",
		Lines: []string{
			"Item\tDescription\tUnit\tQty\tRate",
			"2.1\t4 Core 95mm XLPE Cable\tm\t120\t250.00",
		},
	}
}

func TestExtractSheet(t *testing.T) {
	client := &fakeClient{responses: []string{
		`[{"item_code":"2.1","description":"4 Core 95mm XLPE Cable","unit":"m","quantity":120,"total_rate":250,"amount":30000}]`,
	}}
	e := NewExtractor(client, WithRateLimit(1000))

	items, lastRow, err := e.ExtractSheet(context.Background(), "up-1", testSheet(), "catalog", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 11, lastRow)

	it := items[0]
	assert.Equal(t, "up-1", it.UploadID)
	assert.Equal(t, 11, it.RowNumber)
	assert.Equal(t, "2", it.BillNumber)
	assert.Equal(t, "Bill 2 - Cables", it.BillName)
	assert.Equal(t, "2.1", it.ItemCode)
	require.NotNil(t, it.Unit)
	assert.Equal(t, "M", *it.Unit)
	assert.Equal(t, 120.0, it.QuantityOr(0))
	assert.Equal(t, 250.0, it.TotalRateOr(0))
	assert.Equal(t, 30000.0, it.CalculatedTotal)

	// Derived 70/30 split from the bare total.
	require.NotNil(t, it.SupplyRate)
	assert.InDelta(t, 175.0, *it.SupplyRate, 0.001)
	require.NotNil(t, it.InstallRate)
	assert.InDelta(t, 75.0, *it.InstallRate, 0.001)
}

func TestExtractSheet_SkipsShortDescriptions(t *testing.T) {
	client := &fakeClient{responses: []string{
		`[{"description":"ok item number one","quantity":1},{"description":"x"}]`,
	}}
	e := NewExtractor(client, WithRateLimit(1000))

	items, lastRow, err := e.ExtractSheet(context.Background(), "up-1", testSheet(), "", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, lastRow)
}

func TestExtractSheet_MalformedResponse(t *testing.T) {
	client := &fakeClient{responses: []string{"no items here, sorry"}}
	e := NewExtractor(client, WithRateLimit(1000))

	_, lastRow, err := e.ExtractSheet(context.Background(), "up-1", testSheet(), "", 7)
	require.Error(t, err)
	assert.Equal(t, 7, lastRow, "row counter must not advance on failure")
}

func TestExtractSheet_CatalogRidesCachedSystemBlock(t *testing.T) {
	client := &fakeClient{responses: []string{`[]`}}
	e := NewExtractor(client, WithModel("claude-sonnet-4-5-20250929"), WithRateLimit(1000))

	_, _, err := e.ExtractSheet(context.Background(), "up-1", testSheet(), "CBL-001: cable", 0)
	require.NoError(t, err)

	require.Len(t, client.lastReq.System, 2)
	assert.Equal(t, "CBL-001: cable", client.lastReq.System[1].Text)
	require.NotNil(t, client.lastReq.System[1].CacheControl)
	assert.Equal(t, "claude-sonnet-4-5-20250929", client.lastReq.Model)
}

func TestCatalogSummary_Truncates(t *testing.T) {
	materials := make([]model.MasterMaterial, 0, maxCatalogEntries+50)
	for i := 0; i < maxCatalogEntries+50; i++ {
		materials = append(materials, model.MasterMaterial{Code: "C", Name: "cable"})
	}
	s := CatalogSummary(materials)
	assert.Contains(t, s, "and 50 more")
}

func TestSplitWindows(t *testing.T) {
	lines := []string{"aaaa", "bbbb", "cccc"}
	windows := splitWindows(lines, 9)
	require.Len(t, windows, 2)
	assert.Equal(t, "aaaa\nbbbb", windows[0])
	assert.Equal(t, "cccc", windows[1])

	assert.Nil(t, splitWindows(nil, 100))
}
