package events

// Kind classifies an event by the direction of its price impact.
type Kind string

const (
	Positive Kind = "positive"
	Negative Kind = "negative"
)

// Event is an immutable catalog entry. PriceImpact feeds the price walk;
// VolatilityImpact is informational only.
type Event struct {
	ID               int     `json:"id"`
	Kind             Kind    `json:"kind"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	PriceImpact      float64 `json:"priceImpact"`
	VolatilityImpact float64 `json:"volatilityImpact"`
}

// DefaultCatalog returns the stock set of market events, positive first.
func DefaultCatalog() []Event {
	out := make([]Event, len(catalog))
	copy(out, catalog)
	return out
}

var catalog = []Event{
	{1, Positive, "ETF approved", "A spot ETF was approved. Institutional money is pouring in.", 0.15, 0.05},
	{2, Positive, "Halving", "Block rewards halved. Supply growth slows down.", 0.12, 0.04},
	{3, Positive, "Major investment", "A large fund announced a sizeable position.", 0.10, 0.03},
	{4, Positive, "Positive regulation", "Regulators published clear and friendly rules.", 0.08, 0.02},
	{5, Positive, "Tech upgrade", "The network shipped a long awaited protocol upgrade.", 0.07, 0.03},
	{6, Positive, "Partnership", "A well known company announced a partnership.", 0.06, 0.02},
	{7, Positive, "Exchange listing", "A top exchange listed the coin.", 0.09, 0.04},
	{8, Positive, "Token burn", "A large batch of tokens was burned.", 0.05, 0.02},
	{9, Positive, "Integration", "A payment provider integrated the coin.", 0.04, 0.01},
	{10, Positive, "Positive news", "Media coverage turned upbeat.", 0.03, 0.02},
	{11, Positive, "Activity growth", "On-chain activity keeps growing.", 0.02, 0.01},
	{12, Positive, "Tech breakthrough", "Developers announced a scaling breakthrough.", 0.06, 0.03},
	{13, Positive, "Cross-chain", "A cross-chain bridge went live.", 0.05, 0.02},
	{14, Positive, "Gamification", "A popular game adopted the coin for rewards.", 0.03, 0.01},
	{15, Positive, "Staking", "Staking launched with attractive yields.", 0.04, 0.02},

	{16, Negative, "Regulator ban", "A major regulator banned trading.", -0.20, 0.08},
	{17, Negative, "Exchange hack", "An exchange lost customer funds to hackers.", -0.18, 0.07},
	{18, Negative, "Fraud", "Project insiders are accused of fraud.", -0.15, 0.06},
	{19, Negative, "Technical problems", "The network halted block production for hours.", -0.12, 0.05},
	{20, Negative, "Negative news", "Media coverage turned hostile.", -0.10, 0.04},
	{21, Negative, "Project collapse", "A large ecosystem project collapsed.", -0.08, 0.03},
	{22, Negative, "Liquidity problems", "Market makers pulled liquidity.", -0.07, 0.03},
	{23, Negative, "Scammers", "A wave of scams hit holders.", -0.05, 0.02},
	{24, Negative, "Technical failure", "A wallet bug froze withdrawals.", -0.06, 0.03},
	{25, Negative, "Activity decline", "On-chain activity keeps falling.", -0.04, 0.02},
	{26, Negative, "Partner problems", "A key partner ran into trouble.", -0.05, 0.02},
	{27, Negative, "Competition", "A competing chain is taking users away.", -0.03, 0.01},
	{28, Negative, "Algorithm change", "A contested algorithm change split the community.", -0.04, 0.02},
	{29, Negative, "Security issues", "Researchers disclosed a critical vulnerability.", -0.05, 0.03},
	{30, Negative, "Market panic", "Panic selling spread across the market.", -0.10, 0.05},
}
