// Package report renders ranked results into chunked notification text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/rank"
)

// NoSignalMessage is sent when no instrument produced a composite result,
// so a quiet day is distinguishable from a crashed run.
const NoSignalMessage = "⚠️ No significant smart-money flow detected in today's universe."

// Assembler renders results into one or more chunks bounded by the
// downstream transport's character budget. Records never split across
// chunks.
type Assembler struct {
	maxChunkLen int
	topK        int
	brokerNames map[string]string
}

// NewAssembler builds an assembler with defaulted bounds: 4000-character
// chunks, top 10 records.
func NewAssembler(maxChunkLen, topK int) *Assembler {
	if maxChunkLen <= 0 {
		maxChunkLen = 4000
	}
	if topK <= 0 {
		topK = 10
	}
	return &Assembler{maxChunkLen: maxChunkLen, topK: topK}
}

// SetBrokerNames installs the code-to-name directory used for display.
// Without it, participant codes render bare.
func (a *Assembler) SetBrokerNames(names map[string]string) {
	a.brokerNames = names
}

// Render produces the chunked report for one run. An empty result set
// yields exactly one chunk carrying the no-signal message.
func (a *Assembler) Render(date time.Time, results []rank.Result) []string {
	if len(results) == 0 {
		return []string{NoSignalMessage}
	}
	if len(results) > a.topK {
		results = results[:a.topK]
	}

	header := fmt.Sprintf("📡 <b>SMART MONEY RADAR</b>\n📅 %s | %d instruments\n%s\n\n",
		date.Format("2006-01-02"), len(results), strings.Repeat("=", 25))

	var chunks []string
	current := strings.Builder{}
	current.WriteString(header)

	for _, res := range results {
		block := a.renderRecord(res)
		if current.Len() > 0 && current.Len()+len(block) > a.maxChunkLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(block)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (a *Assembler) renderRecord(res rank.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> %s\n", res.Symbol, icon(res))

	if f := res.Flow; f != nil {
		fmt.Fprintf(&b, "💰 Net Money: <b>%s</b>\n", FormatMoney(f.NetMoney))
		fmt.Fprintf(&b, "🛒 Buyer: <b>%s</b>\n", a.displayName(f.LeadBuyer))
		fmt.Fprintf(&b, "   Avg: %.0f\n", f.LeadAvgPrice)
		fmt.Fprintf(&b, "📦 Seller: %s\n", a.displayName(f.LeadSeller))
		fmt.Fprintf(&b, "📊 %s\n", statusLine(*f))
	}
	if tc := res.Technical; tc != nil {
		trend := "down"
		if tc.TrendUp {
			trend = "up"
		}
		fmt.Fprintf(&b, "📈 %.0f (%+.1f%%) | RVOL %.1fx | trend %s\n", tc.Close, tc.ChangePct, tc.RelativeVolume, trend)
		fmt.Fprintf(&b, "   S/R: %.0f / %.0f\n", tc.Support, tc.Resistance)
	}
	b.WriteString(strings.Repeat("-", 20) + "\n")
	return b.String()
}

func icon(res rank.Result) string {
	if res.Flow == nil {
		return "📉"
	}
	switch {
	case res.Flow.Score >= 3:
		return "🐳🔥"
	case res.Flow.Score > 0:
		return "🟢"
	case res.Flow.Score < 0:
		return "🔴"
	default:
		return "⚪"
	}
}

func statusLine(sig flow.Signal) string {
	switch {
	case sig.HasTag(flow.TagRetailAbsorption):
		return "Whale Inflow (retail absorption)"
	case sig.HasTag(flow.TagBigAccum):
		return "Strong Accumulation"
	case sig.HasTag(flow.TagRetailBuy):
		return "Distribution to Retail"
	case sig.HasTag(flow.TagDistribution):
		return "Distribution"
	case sig.HasTag(flow.TagAccum):
		return "Accumulation"
	default:
		return "Neutral"
	}
}

// displayName renders a participant as "CODE (SHORT NAME)" using the
// broker directory, trimming corporate boilerplate so blocks stay small.
func (a *Assembler) displayName(code string) string {
	full, ok := a.brokerNames[code]
	if !ok || full == "" {
		return code
	}
	short := full
	for _, word := range []string{"SEKURITAS", "INDONESIA", "PT "} {
		short = strings.ReplaceAll(short, word, "")
	}
	short = strings.Join(strings.Fields(short), " ")
	if len(short) > 15 {
		words := strings.Fields(short)
		if len(words) > 2 {
			words = words[:2]
		}
		short = strings.Join(words, " ")
	}
	if short == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", code, short)
}

// FormatMoney humanizes a signed monetary value: 1.2B, 340M, plain below
// a million.
func FormatMoney(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%s%.1fT", sign, v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%s%.1fB", sign, v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s%.0fM", sign, v/1e6)
	default:
		return fmt.Sprintf("%s%.0f", sign, v)
	}
}
