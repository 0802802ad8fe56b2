package ingest

import (
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/model"
)

// SeedSpacing separates consecutive seed memories in time.
const SeedSpacing = 48 * time.Hour

const unsplashPrefix = "https://images.unsplash.com/photo-"
const unsplashQuery = "?q=80&w=600&auto=format&fit=crop"

type seedEntry struct {
	id          string
	photo       string
	description string
	scale       float64
	rotation    float64
}

var seedData = []seedEntry{
	{"mem-sunset", "1507525428034-b723cf961d3e", "The sun sinks below the horizon and takes the last of the noise with it.", 1.1, -5},
	{"mem-forest", "1511497584788-876760111969", "The breathing of the deep forest is the oldest language on earth.", 1, 5},
	{"mem-urban", "1449824913935-59a10b8d2000", "City lights fade, hiding ten thousand private thoughts.", 1.15, -8},
	{"mem-coffee", "1495474472287-4d71bcdd2085", "Time slows and deepens in the smell of coffee.", 0.9, 12},
	{"mem-sea", "1505118380757-91f5f5632de0", "Waves brush the sand and erase yesterday's footprints.", 1.2, 0},
	{"mem-stars", "1419242902214-272b3f66ee7a", "Under the gaze of stardust we are all children.", 1.05, -15},
	{"mem-book", "1544947950-fa07a98d237f", "A castle built of words outlasts the real one.", 0.95, 8},
	{"mem-cat", "1514888286974-6c03e2ca1dba", "A soft look that mended a hard world.", 1.0, -4},
	{"mem-rain", "1515694346937-94d85e41e6f0", "Raindrops tap the window like an unfinished poem.", 1.08, 6},
	{"mem-flower", "1460039230329-eb070fc6c77c", "A blossom lasts an instant yet keeps a whole spring.", 0.92, -10},
	{"mem-snow", "1548266652-99cf27701ced", "The world turns white again and covers every road back.", 1.02, 3},
	{"mem-night", "1470252649378-9c29740c9fa8", "A gentle night takes in every wandering dream.", 0.98, -6},
	{"mem-mountain", "1464822759023-fed622ff2c3b", "Silent mountains keep a secret a thousand years old.", 1.1, -3},
	{"mem-road", "1470240731273-7821a6eeb6bd", "The road stretches underfoot toward somewhere unknown.", 0.95, 7},
	{"mem-desert", "1473580044384-7ba9967e16a0", "Wind carves the shape of time into the dunes.", 1.05, 2},
	{"mem-lake", "1439853949127-fa647821eba0", "The lake is a mirror for the bottom of the soul.", 1.0, -5},
	{"mem-autumn", "1477414348463-c0eb7f1359b6", "Falling leaves are the season's last goodbye.", 1.12, 9},
	{"mem-crowd", "1533038590840-1cde6e668a91", "In a surging crowd everyone is an island.", 0.93, -12},
	{"mem-window", "1508144753681-9986d4df99b3", "The world outside the window is always truer than a dream.", 1.08, 4},
	{"mem-camera", "1516035069371-29a1b244cc32", "The shutter clicks and this moment becomes forever.", 1.0, -7},
	{"mem-bridge", "1506461883276-594a12b11cf3", "What joins the two shores is more than a bridge.", 1.06, 6},
	{"mem-train", "1474487548417-781cb71495f3", "The whistle blows and carries longing far away.", 0.98, 10},
	{"mem-beach-2", "1496275068113-fff8c90750d1", "The tide erased the footprints but the sea remembers.", 1.03, -2},
	{"mem-bicycle", "1485965120184-e220f721d03e", "Turning wheels, the sound of youth rushing past.", 0.96, 5},
	{"mem-piano", "1520523839897-bd0b52f945a0", "Between black and white keys, words never spoken.", 1.04, -6},
	{"mem-clock", "1508057198894-247b23fe5ade", "The hands never stop; time is the only witness.", 1.1, -11},
	{"mem-vinyl", "1461360370896-922624d12aa1", "The needle drops and old days flow slowly back.", 1.02, 3},
	{"mem-letter", "1579783900882-c0d3dad7b119", "Short paper, long feelings, warmth in the handwriting.", 0.97, -4},
	{"mem-clouds", "1501630834273-4b5604d2ee31", "Clouds gather and drift, the sky's gentlest thoughts.", 1.13, -8},
	{"mem-guitar", "1510915361894-db8b60106cb1", "The strings tremble with something left unsaid.", 0.95, -5},
	{"mem-camp", "1523987355523-c7b5b0dd90a7", "A leaping campfire warms a cold night.", 1.05, 6},
	{"mem-aurora", "1531366936337-7c912a4589a7", "The aurora dances; the sky is dreaming.", 1.15, -7},
	{"mem-sakura", "1522383225653-ed111181a951", "Cherry petals fall at five centimetres per second.", 1.08, -6},
}

// Seed returns the initial collection: evenly spread over the sphere with
// Fibonacci placement, timestamps stepping back SeedSpacing from now, and
// already captioned. rng drives per-orb drift speed; nil uses a fixed seed.
func Seed(now time.Time, rng *rand.Rand) []model.Memory {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	out := make([]model.Memory, 0, len(seedData))
	for i, e := range seedData {
		p := core.FibonacciPoint(i, len(seedData))
		out = append(out, model.Memory{
			ID:          e.id,
			URL:         unsplashPrefix + e.photo + unsplashQuery,
			Description: e.description,
			Timestamp:   now.Add(-time.Duration(i) * SeedSpacing),
			Theta:       p.Theta,
			Phi:         p.Phi,
			Scale:       e.scale,
			Rotation:    e.rotation,
			DriftSpeed:  driftSpeed(rng),
		})
	}
	return out
}

func driftSpeed(rng *rand.Rand) float64 {
	return 0.8 + rng.Float64()*0.4
}
