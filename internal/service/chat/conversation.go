package chat

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/analysis/symptom"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/observable"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
)

// WelcomeID is the id of the seeded first message.
const WelcomeID = "welcome"

const replyTimeout = 5 * time.Second

// Replier produces the assistant's answer for one user utterance.
type Replier interface {
	Reply(ctx context.Context, text string) string
}

// MatcherReplier adapts a symptom.Matcher to Replier.
type MatcherReplier struct {
	Matcher *symptom.Matcher
}

// Reply implements Replier.
func (r MatcherReplier) Reply(_ context.Context, text string) string {
	if r.Matcher == nil {
		return symptom.Default().Respond(text)
	}
	return r.Matcher.Respond(text)
}

// Options 控制助手回复的延迟区间 [ReplyDelayMin, ReplyDelayMax)。
type Options struct {
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
}

// Conversation 维护单个访客与问诊机器人的对话历史。
type Conversation struct {
	opts    Options
	replier Replier
	logger  *zap.Logger
	now     func() time.Time

	messages *observable.Subject[[]chat.Message]

	mu         sync.Mutex
	generation uint64
	pending    map[uint64]*time.Timer
	nextTimer  uint64
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConversation 创建一个只包含欢迎语的对话。replier 为空时使用默认规则表。
func NewConversation(opts Options, replier Replier, logger *zap.Logger) *Conversation {
	if opts.ReplyDelayMax < opts.ReplyDelayMin {
		opts.ReplyDelayMax = opts.ReplyDelayMin
	}
	if replier == nil {
		replier = MatcherReplier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conversation{
		opts:    opts,
		replier: replier,
		logger:  observability.OrNop(logger).Named("chat"),
		now:     time.Now,
		pending: make(map[uint64]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.messages = observable.New(c.seed())
	return c
}

func (c *Conversation) seed() []chat.Message {
	return []chat.Message{{
		ID:        WelcomeID,
		Text:      symptom.WelcomeMessage,
		Sender:    chat.SenderAssistant,
		Timestamp: c.now().UnixMilli(),
	}}
}

// SendMessage 立即追加用户消息，并在随机延迟后追加助手回复。
func (c *Conversation) SendMessage(text string) chat.Message {
	msg := chat.Message{
		ID:        "user-" + uuid.NewString(),
		Text:      text,
		Sender:    chat.SenderUser,
		Timestamp: c.now().UnixMilli(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return msg
	}

	c.messages.Update(func(cur []chat.Message) []chat.Message {
		return appendMessage(cur, msg)
	})

	gen := c.generation
	id := c.nextTimer
	c.nextTimer++
	c.pending[id] = time.AfterFunc(c.replyDelay(), func() { c.deliverReply(id, gen, text) })

	return msg
}

func (c *Conversation) replyDelay() time.Duration {
	span := c.opts.ReplyDelayMax - c.opts.ReplyDelayMin
	if span <= 0 {
		return c.opts.ReplyDelayMin
	}
	return c.opts.ReplyDelayMin + rand.N(span)
}

func (c *Conversation) deliverReply(id, gen uint64, text string) {
	c.mu.Lock()
	delete(c.pending, id)
	stale := c.closed || c.generation != gen
	c.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, replyTimeout)
	answer := c.replier.Reply(ctx, text)
	cancel()

	msg := chat.Message{
		ID:        "assistant-" + uuid.NewString(),
		Text:      answer,
		Sender:    chat.SenderAssistant,
		Timestamp: c.now().UnixMilli(),
	}

	// Re-check under the lock: a clear may have landed while the reply was
	// being computed.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != gen {
		return
	}
	c.messages.Update(func(cur []chat.Message) []chat.Message {
		return appendMessage(cur, msg)
	})
}

func appendMessage(cur []chat.Message, msg chat.Message) []chat.Message {
	next := make([]chat.Message, 0, len(cur)+1)
	next = append(next, cur...)
	return append(next, msg)
}

// ClearMessages 将历史重置为欢迎语，并丢弃尚未送达的回复。
func (c *Conversation) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.stopPendingLocked()
	c.messages.Set(c.seed())
	c.logger.Debug("conversation cleared")
}

func (c *Conversation) stopPendingLocked() {
	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}
}

// Messages 返回当前历史的副本。
func (c *Conversation) Messages() []chat.Message {
	return append([]chat.Message(nil), c.messages.Value()...)
}

// Subscribe 注册观察者，立即收到当前历史，之后收到每次变更。
func (c *Conversation) Subscribe(fn func([]chat.Message)) func() {
	return c.messages.Subscribe(fn)
}

// Pending reports how many replies are still scheduled.
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close 停止所有待发送的回复。之后的 SendMessage 不再改变历史。
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopPendingLocked()
	c.cancel()
}
