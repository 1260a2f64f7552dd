package marketdata

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quotePageHTML = `
<html><body>
<table class="quotes">
<thead><tr><th>Symbol</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Volume</th></tr></thead>
<tbody>
<tr><td>AAPL</td><td>185.50</td><td>187.20</td><td>184.90</td><td>186.75</td><td>52,341,000</td></tr>
<tr><td>MSFT</td><td>370.10</td><td>372.00</td><td>368.55</td><td>371.30</td><td>21,002,500</td></tr>
<tr><td>BAD</td><td>n/a</td><td>1</td><td>1</td><td>1</td><td>1</td></tr>
<tr><td></td><td>1</td><td>1</td><td>1</td><td>1</td><td>1</td></tr>
</tbody>
</table>
</body></html>`

func TestParseQuotePage(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	bars, err := ParseQuotePage(strings.NewReader(quotePageHTML), date)
	require.NoError(t, err)

	// Rows with non-numeric cells or missing symbols are skipped.
	require.Len(t, bars, 2)

	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, date, bars[0].SessionDate)
	assert.Equal(t, 185.50, bars[0].Open)
	assert.Equal(t, 186.75, bars[0].Close)
	assert.Equal(t, int64(52341000), bars[0].Volume)

	assert.Equal(t, "MSFT", bars[1].Symbol)
	assert.Equal(t, int64(21002500), bars[1].Volume)
}

func TestParseQuotePage_Empty(t *testing.T) {
	bars, err := ParseQuotePage(strings.NewReader("<html><body></body></html>"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, bars)
}
