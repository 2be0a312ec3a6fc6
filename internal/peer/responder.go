package peer

import (
	"math/rand"
	"sync"
)

// Request is what a responder sees when asked to reply.
type Request struct {
	PeerID   string
	PeerName string
	Prompt   string // text of the message being answered
}

// Responder produces the peer's reply to an outgoing message. ok=false means
// the peer stays silent.
type Responder interface {
	Reply(req Request) (text string, ok bool)
}

// Func adapts a function to Responder.
type Func func(req Request) (string, bool)

func (f Func) Reply(req Request) (string, bool) {
	return f(req)
}

// Silent never replies.
type Silent struct{}

func (Silent) Reply(Request) (string, bool) {
	return "", false
}

// Echo replies with a fixed prefix followed by the prompt.
type Echo struct {
	Prefix string
}

func (e Echo) Reply(req Request) (string, bool) {
	return e.Prefix + req.Prompt, true
}

// DefaultReplies is used when Canned has no replies configured.
var DefaultReplies = []string{
	"Haha, that's awesome!",
	"Tell me more 😊",
	"I was just thinking the same thing",
	"What are you up to this weekend?",
	"Omg yes!",
}

// Canned picks a random reply from a fixed list.
type Canned struct {
	mu      sync.Mutex
	replies []string
	rnd     *rand.Rand
}

// NewCanned creates a responder over replies using rnd; nil rnd seeds from
// the global source.
func NewCanned(replies []string, rnd *rand.Rand) *Canned {
	if len(replies) == 0 {
		replies = DefaultReplies
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Canned{replies: replies, rnd: rnd}
}

func (c *Canned) Reply(Request) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replies[c.rnd.Intn(len(c.replies))], true
}
