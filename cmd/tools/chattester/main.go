package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/config"
	model "github.com/zhouzirui/remedy-radar/backend/internal/model/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/service/reply"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	once := flag.Bool("once", false, "只处理一行输入后退出")
	clearHistory := flag.Bool("clear", false, "每次回复后清空对话历史")
	realDelay := flag.Bool("real-delay", false, "使用配置中的回复延迟，而不是立即回复")
	timeout := flag.Duration("timeout", 10*time.Second, "等待回复的超时时间")
	flag.Parse()

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pipeline, err := reply.New(ctx, nil, logger)
	if err != nil {
		log.Fatalf("回复链初始化失败: %v", err)
	}

	opts := chat.Options{}
	if *realDelay {
		opts = chat.Options{ReplyDelayMin: cfg.Chat.ReplyDelayMin, ReplyDelayMax: cfg.Chat.ReplyDelayMax}
	}

	conv := chat.NewConversation(opts, pipeline, logger)
	defer conv.Close()

	replies := make(chan model.Message, 8)
	seen := len(conv.Messages())
	cancel := conv.Subscribe(func(msgs []model.Message) {
		if len(msgs) > seen {
			last := msgs[len(msgs)-1]
			if last.Sender == model.SenderAssistant {
				replies <- last
			}
		}
		seen = len(msgs)
	})
	defer cancel()

	fmt.Printf("Dr. Bot: %s\n", conv.Messages()[0].Text)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		conv.SendMessage(text)
		select {
		case msg := <-replies:
			fmt.Printf("Dr. Bot: %s\n", msg.Text)
		case <-time.After(*timeout):
			logger.Warn("timed out waiting for reply", zap.Duration("timeout", *timeout))
		}

		if *clearHistory {
			conv.ClearMessages()
		}
		if *once {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("读取输入失败: %v", err)
	}
}
