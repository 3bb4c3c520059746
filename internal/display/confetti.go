package display

import (
	"math/rand/v2"
	"sync"
	"time"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Burst is one canvas-confetti call.
type Burst struct {
	Origin        Point    `json:"origin"`
	Angle         float64  `json:"angle"`
	Spread        float64  `json:"spread"`
	ParticleCount int      `json:"particleCount"`
	Colors        []string `json:"colors"`
	DelayMS       int      `json:"delay"`
}

// Piece is a single falling corner piece.
type Piece struct {
	Side    string  `json:"side"`
	LeftPct float64 `json:"left"`
	DelayS  float64 `json:"delay"`
	SizePX  float64 `json:"size"`
	Color   string  `json:"color"`
}

const piecesPerSide = 50

var (
	burstColors = []string{"#FFD700", "#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FF9FF3", "#54A0FF"}
	topColors   = burstColors[:5]
)

func leaderBursts() []Burst {
	return []Burst{
		{Origin: Point{0.2, 1}, Angle: 60, Spread: 55, ParticleCount: 120, Colors: burstColors},
		{Origin: Point{0.8, 1}, Angle: 120, Spread: 55, ParticleCount: 120, Colors: burstColors, DelayMS: 150},
		{Origin: Point{0.5, 1}, Angle: 90, Spread: 100, ParticleCount: 100, Colors: burstColors, DelayMS: 300},
		{Origin: Point{0.2, 0}, Angle: 315, Spread: 55, ParticleCount: 120, Colors: topColors, DelayMS: 100},
		{Origin: Point{0.8, 0}, Angle: 225, Spread: 55, ParticleCount: 120, Colors: topColors, DelayMS: 200},
	}
}

// Confetti emits the leader celebration and removes it after Lifetime,
// whether or not anybody is still watching.
type Confetti struct {
	sink     Sink
	lifetime time.Duration

	mu   sync.Mutex
	rng  *rand.Rand
	next uint64
}

func NewConfetti(sink Sink, lifetime time.Duration, rng *rand.Rand) *Confetti {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Confetti{sink: sink, lifetime: lifetime, rng: rng}
}

func (c *Confetti) Celebrate() {
	c.mu.Lock()
	c.next++
	token := c.next
	pieces := c.pieces()
	c.mu.Unlock()

	c.sink.Emit(Command{Type: CmdConfetti, Token: token, Bursts: leaderBursts(), Pieces: pieces})
	time.AfterFunc(c.lifetime, func() {
		c.sink.Emit(Command{Type: CmdConfettiClear, Token: token})
	})
}

func (c *Confetti) pieces() []Piece {
	out := make([]Piece, 0, 2*piecesPerSide)
	for _, side := range []string{"left", "right"} {
		base := 0.0
		if side == "right" {
			base = 80
		}
		for range piecesPerSide {
			out = append(out, Piece{
				Side:    side,
				LeftPct: base + c.rng.Float64()*20,
				DelayS:  c.rng.Float64() * 0.5,
				SizePX:  6 + c.rng.Float64()*8,
				Color:   burstColors[c.rng.IntN(len(burstColors))],
			})
		}
	}
	return out
}
