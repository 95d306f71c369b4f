package domain

import "time"

// NoticeKind classifies a user-facing remark attached to a quote.
type NoticeKind int

const (
	NoticeAmountTooSmall NoticeKind = iota + 1
	NoticeExceedsMaxPayout
)

// Notice is a user-facing remark produced while computing a quote.
// It is surfaced only when the quote itself is published.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Quote is the valuation of one bond for one candidate deposit amount.
type Quote struct {
	Bond           Symbol
	BondPriceUSD   float64
	Discount       float64
	DebtRatio      float64
	Payout         float64
	VestingTerm    uint64
	MaxPayout      float64
	TreasuryUSD    float64
	MarketPriceUSD float64
	Notices        []Notice
	ComputedAt     time.Time
}

// Discount returns (market - bondPrice) / market. A negative value is a premium.
// Without a market price there is no meaningful discount and zero is returned.
func Discount(market, bondPrice float64) float64 {
	if market == 0 {
		return 0
	}
	return (market - bondPrice) / market
}

// HasNotice reports whether q carries a notice of kind k.
func (q *Quote) HasNotice(k NoticeKind) bool {
	for _, n := range q.Notices {
		if n.Kind == k {
			return true
		}
	}
	return false
}
