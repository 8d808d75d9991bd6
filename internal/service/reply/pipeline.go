package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/analysis/symptom"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
)

// Pipeline 将用户输入依次经过归一化、规则匹配与消息封装，生成问诊机器人的回复。
type Pipeline struct {
	matcher *symptom.Matcher
	chain   compose.Runnable[string, *schema.Message]
	logger  *zap.Logger
}

// New 编译回复链。matcher 为空时使用默认规则表。
func New(ctx context.Context, matcher *symptom.Matcher, logger *zap.Logger) (*Pipeline, error) {
	if matcher == nil {
		matcher = symptom.Default()
	}

	chain := compose.NewChain[string, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, text string) (string, error) {
		return symptom.Normalize(strings.TrimSpace(text)), nil
	}))
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, text string) (symptom.Decision, error) {
		return matcher.Match(text), nil
	}))
	chain.AppendLambda(compose.InvokableLambda(func(_ context.Context, d symptom.Decision) (*schema.Message, error) {
		msg := schema.AssistantMessage(d.Response, nil)
		msg.Name = string(d.Topic)
		return msg, nil
	}))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &Pipeline{
		matcher: matcher,
		chain:   runnable,
		logger:  observability.OrNop(logger).Named("reply"),
	}, nil
}

// Generate 运行回复链，返回带话题标记（Name 字段）的助手消息。
func (p *Pipeline) Generate(ctx context.Context, text string) (*schema.Message, error) {
	msg, err := p.chain.Invoke(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to run reply chain: %w", err)
	}
	return msg, nil
}

// Reply 返回回复文本。链路失败时回退到直接匹配，保证总有回复。
func (p *Pipeline) Reply(ctx context.Context, text string) string {
	msg, err := p.Generate(ctx, text)
	if err != nil || msg == nil {
		p.logger.Warn("reply chain failed, use matcher directly", zap.Error(err))
		return p.matcher.Respond(text)
	}

	p.logger.Debug("reply generated", zap.String("topic", msg.Name), zap.Int("length", len(msg.Content)))
	return msg.Content
}
