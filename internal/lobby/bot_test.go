// internal/lobby/bot_test.go
package lobby

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaloney-io/parlor/internal/genai"
)

func TestBotReplyAppendedAfterDelay(t *testing.T) {
	gen := &stubGenerator{reply: "hello there"}
	store := newTestStore(gen)
	l := store.Create("chatty", false, 4, 1)

	sub := newSub()
	_, err := l.Join(sub, "alice")
	require.NoError(t, err)
	res := l.PostMessage("alice", "hi bot")
	require.True(t, res.HasBots)
	drain(sub)

	store.ScheduleBotReply(l)

	require.True(t, waitFor(time.Second, func() bool {
		_, replies := gen.calls()
		return replies == 1
	}), "bot reply never generated")
	require.True(t, waitFor(time.Second, func() bool {
		return len(chatMessages(drain(sub))) > 0 || len(l.Snapshot().Messages) == 2
	}))

	msgs := l.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello there", msgs[1].Body)
	assert.Equal(t, SenderBot, msgs[1].Kind)
	assert.Equal(t, BotSenderName, msgs[1].Sender)

	// Bot messages never count toward the trivia gate.
	assert.Equal(t, 1, l.MessageCount())
}

func TestBotReplyFailureIsDropped(t *testing.T) {
	gen := &stubGenerator{replyErr: errors.New("model unavailable")}
	store := newTestStore(gen)
	l := store.Create("chatty", false, 4, 1)
	_, err := l.Join(newSub(), "alice")
	require.NoError(t, err)
	l.PostMessage("alice", "hi")

	store.ScheduleBotReply(l)

	require.True(t, waitFor(time.Second, func() bool {
		_, replies := gen.calls()
		return replies == 1
	}))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, l.Snapshot().Messages, 1, "failed reply must not append a message")
}

func TestBotContextIsBoundedAndRoleMapped(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	store := newTestStore(gen)
	l := store.Create("chatty", false, 4, 1)
	_, err := l.Join(newSub(), "alice")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		l.PostMessage("alice", fmt.Sprintf("m%d", i))
	}
	l.mu.Lock()
	l.appendLocked(newBotMessage("beep"))
	l.mu.Unlock()

	store.ScheduleBotReply(l)
	require.True(t, waitFor(time.Second, func() bool {
		_, replies := gen.calls()
		return replies == 1
	}))

	turns := gen.turns()
	require.Len(t, turns, 10, "context must be capped at the last 10 messages")
	last := turns[len(turns)-1]
	assert.True(t, last.FromBot, "bot message must map to the assistant role")
	assert.Equal(t, "beep", last.Text)
	assert.False(t, turns[0].FromBot)
}

func TestNoBotsNoReply(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	store := newTestStore(gen)
	l := store.Create("quiet", false, 4, 0)
	_, err := l.Join(newSub(), "alice")
	require.NoError(t, err)

	res := l.PostMessage("alice", "anyone?")
	assert.False(t, res.HasBots)

	store.ScheduleBotReply(l)
	time.Sleep(30 * time.Millisecond)
	_, replies := gen.calls()
	assert.Zero(t, replies)
}

func TestChatSideEffectsPreferTriviaOverBot(t *testing.T) {
	gen := &stubGenerator{
		pair:  genai.TriviaPair{Question: "q", Answer: "a"},
		reply: "ok",
	}
	store := newTestStore(gen)
	l := store.Create("mixed", false, 4, 1)
	_, err := l.Join(newSub(), "alice")
	require.NoError(t, err)

	var res PostResult
	for i := 0; i < 5; i++ {
		res = l.PostMessage("alice", fmt.Sprintf("m%d", i))
	}
	require.True(t, res.TriviaGate)

	store.RunChatSideEffects(l, res)

	assert.True(t, l.TriviaActive())
	time.Sleep(30 * time.Millisecond)
	_, replies := gen.calls()
	assert.Zero(t, replies, "a started round pre-empts the bot for this turn")
}

func TestChatSideEffectsFallBackToBotWhenTriviaFails(t *testing.T) {
	gen := &stubGenerator{
		triviaErr: errors.New("model unavailable"),
		reply:     "ok",
	}
	store := newTestStore(gen)
	l := store.Create("mixed", false, 4, 1)
	_, err := l.Join(newSub(), "alice")
	require.NoError(t, err)

	var res PostResult
	for i := 0; i < 5; i++ {
		res = l.PostMessage("alice", fmt.Sprintf("m%d", i))
	}
	require.True(t, res.TriviaGate)

	store.RunChatSideEffects(l, res)

	assert.False(t, l.TriviaActive())
	require.True(t, waitFor(time.Second, func() bool {
		_, replies := gen.calls()
		return replies == 1
	}), "bot should still reply when the round fails to start")
}
