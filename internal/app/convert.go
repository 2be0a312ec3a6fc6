package app

import (
	"math/rand"

	"github.com/matheus3301/spark/internal/config"
	"github.com/matheus3301/spark/internal/conversation"
	"github.com/matheus3301/spark/internal/firstmove"
	"github.com/matheus3301/spark/internal/peer"
)

// MatchFromConfig builds the conversation match. The preference was already
// checked by config.Validate.
func MatchFromConfig(c config.Match) (conversation.Match, error) {
	pref, err := firstmove.ParsePreference(c.FirstMessagePreference)
	if err != nil {
		return conversation.Match{}, err
	}
	name := c.PeerName
	if name == "" {
		name = c.PeerID
	}
	return conversation.Match{
		PeerID:                 c.PeerID,
		PeerName:               name,
		FirstMessagePreference: pref,
		PeerReadReceipts:       c.PeerReadReceipts,
		ExpiresAt:              c.ExpiresAt,
	}, nil
}

// TimingsFromConfig maps configured durations; zero values fall back to
// the engine defaults inside the session.
func TimingsFromConfig(t config.Timings) conversation.Timings {
	return conversation.Timings{
		Delivery:         t.DeliveryDelay.Duration,
		Read:             t.ReadDelay.Duration,
		Reply:            t.ReplyDelay.Duration,
		DispatchInterval: t.DispatchInterval.Duration,
		Countdown:        t.CountdownInterval.Duration,
		CallConnect:      t.CallConnectDelay.Duration,
		CallTick:         t.CallTick.Duration,
		RecordingTick:    t.RecordingTick.Duration,
	}
}

// ResponderFromConfig builds the simulated peer. A zero seed draws replies
// from a random sequence.
func ResponderFromConfig(r config.Responder) peer.Responder {
	var rnd *rand.Rand
	if r.Seed != 0 {
		rnd = rand.New(rand.NewSource(r.Seed))
	}
	return peer.NewCanned(r.Replies, rnd)
}
