package events

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyCatalog = errors.New("event catalog is empty")

// Config controls how often events fire and how long they last.
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	Lifetime    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval: 30 * time.Second,
		MaxInterval: 60 * time.Second,
		Lifetime:    30 * time.Second,
	}
}

// Activation is one live instance of a catalog event. The same catalog
// event may be active more than once; InstanceID tells them apart.
type Activation struct {
	InstanceID  string    `json:"instanceId"`
	Event       Event     `json:"event"`
	ActivatedAt time.Time `json:"activatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Notifier receives every new activation. It runs on the caller's
// goroutine with no locks held and must not block.
type Notifier func(Activation)

// Bus owns the set of active market events.
type Bus struct {
	mu      sync.Mutex
	cfg     Config
	catalog []Event
	rng     *rand.Rand
	log     *zap.Logger
	active  []Activation
	notify  Notifier
}

func NewBus(catalog []Event, cfg Config, rng *rand.Rand, log *zap.Logger) (*Bus, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MinInterval, cfg.MaxInterval = cfg.MaxInterval, cfg.MinInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		cfg:     cfg,
		catalog: catalog,
		rng:     rng,
		log:     log,
	}, nil
}

func (b *Bus) SetNotifier(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = n
}

func (b *Bus) Config() Config { return b.cfg }

// Activate draws one catalog event uniformly at random and makes it live
// until now+Lifetime.
func (b *Bus) Activate(now time.Time) Activation {
	b.mu.Lock()
	ev := b.catalog[b.rng.IntN(len(b.catalog))]
	a := Activation{
		InstanceID:  uuid.NewString(),
		Event:       ev,
		ActivatedAt: now,
		ExpiresAt:   now.Add(b.cfg.Lifetime),
	}
	b.active = append(b.active, a)
	notify := b.notify
	b.mu.Unlock()

	b.log.Info("market event",
		zap.String("instance", a.InstanceID),
		zap.Int("event", ev.ID),
		zap.String("title", ev.Title),
		zap.Float64("price_impact", ev.PriceImpact))

	if notify != nil {
		notify(a)
	}
	return a
}

// Expire removes exactly the activation with instanceID. It reports
// whether anything was removed.
func (b *Bus) Expire(instanceID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, a := range b.active {
		if a.InstanceID == instanceID {
			b.active = append(b.active[:i], b.active[i+1:]...)
			return true
		}
	}
	return false
}

// Sweep drops every activation whose expiry is not after now and returns
// how many were removed.
func (b *Bus) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.active[:0]
	for _, a := range b.active {
		if a.ExpiresAt.After(now) {
			kept = append(kept, a)
		}
	}
	removed := len(b.active) - len(kept)
	b.active = kept
	return removed
}

// NextInterval returns a uniformly random delay in [MinInterval, MaxInterval].
func (b *Bus) NextInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	span := b.cfg.MaxInterval - b.cfg.MinInterval
	if span <= 0 {
		return b.cfg.MinInterval
	}
	return b.cfg.MinInterval + time.Duration(b.rng.Int64N(int64(span)+1))
}

// ActiveImpact sums the price impact of every live activation.
func (b *Bus) ActiveImpact() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sum float64
	for _, a := range b.active {
		sum += a.Event.PriceImpact
	}
	return sum
}

func (b *Bus) ActiveVolatilityImpact() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sum float64
	for _, a := range b.active {
		sum += a.Event.VolatilityImpact
	}
	return sum
}

// Active returns a copy of the live activations, oldest first.
func (b *Bus) Active() []Activation {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Activation, len(b.active))
	copy(out, b.active)
	return out
}
