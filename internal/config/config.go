package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Cart    CartConfig
	Notify  NotifyConfig
	Chat    ChatConfig
	Session SessionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	cart, err := loadCartConfig()
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Log:     logCfg,
		Storage: storage,
		Cart:    cart,
		Notify:  notify,
		Chat:    chat,
		Session: session,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("LOG_DEVELOPMENT", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: dev,
	}, nil
}

// 购物车持久化后端
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

// StorageConfig 描述购物车数据的持久化位置。
type StorageConfig struct {
	Backend    string
	Dir        string
	SQLitePath string
	GCSBucket  string
	GCSPrefix  string
	Key        string
}

func loadStorageConfig() (StorageConfig, error) {
	cfg := StorageConfig{
		Backend:    strings.ToLower(getEnvOrDefault("CART_STORAGE_BACKEND", BackendMemory)),
		Dir:        getEnvOrDefault("CART_STORAGE_DIR", "./data/cart"),
		SQLitePath: getEnvOrDefault("CART_STORAGE_SQLITE_PATH", "./data/cart.db"),
		GCSBucket:  strings.TrimSpace(os.Getenv("CART_STORAGE_GCS_BUCKET")),
		GCSPrefix:  strings.TrimSpace(os.Getenv("CART_STORAGE_GCS_PREFIX")),
		Key:        getEnvOrDefault("CART_STORAGE_KEY", "remedy-radar-cart"),
	}

	switch cfg.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendGCS:
		if cfg.GCSBucket == "" {
			return StorageConfig{}, fmt.Errorf("CART_STORAGE_GCS_BUCKET is required for the %s backend", BackendGCS)
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid CART_STORAGE_BACKEND value %q", cfg.Backend)
	}

	return cfg, nil
}

// CartConfig 描述购物车行为。
type CartConfig struct {
	CurrencySymbol string
	CheckoutDelay  time.Duration
}

func loadCartConfig() (CartConfig, error) {
	delay, err := parseDurationMSEnv("CART_CHECKOUT_DELAY_MS", 2000*time.Millisecond)
	if err != nil {
		return CartConfig{}, err
	}
	return CartConfig{
		CurrencySymbol: getEnvOrDefault("CART_CURRENCY_SYMBOL", "₹"),
		CheckoutDelay:  delay,
	}, nil
}

// NotifyConfig 描述提示消息与订单弹窗的展示时长。
type NotifyConfig struct {
	ToastTTL   time.Duration
	ReceiptTTL time.Duration
}

func loadNotifyConfig() (NotifyConfig, error) {
	toast, err := parseDurationMSEnv("NOTIFY_TOAST_TTL_MS", 2000*time.Millisecond)
	if err != nil {
		return NotifyConfig{}, err
	}
	receipt, err := parseDurationMSEnv("NOTIFY_RECEIPT_TTL_MS", 15000*time.Millisecond)
	if err != nil {
		return NotifyConfig{}, err
	}
	return NotifyConfig{ToastTTL: toast, ReceiptTTL: receipt}, nil
}

// ChatConfig 描述问诊机器人回复的延迟区间 [Min, Max)。
type ChatConfig struct {
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	minDelay, err := parseDurationMSEnv("CHAT_REPLY_DELAY_MIN_MS", 1000*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	maxDelay, err := parseDurationMSEnv("CHAT_REPLY_DELAY_MAX_MS", 2000*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	if minDelay > maxDelay {
		return ChatConfig{}, fmt.Errorf("CHAT_REPLY_DELAY_MIN_MS (%s) must not exceed CHAT_REPLY_DELAY_MAX_MS (%s)", minDelay, maxDelay)
	}
	return ChatConfig{ReplyDelayMin: minDelay, ReplyDelayMax: maxDelay}, nil
}

// SessionConfig 描述匿名会话的回收策略。
type SessionConfig struct {
	IdleTTL time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	minutes, err := parseOptionalIntEnv("SESSION_IDLE_TTL_MINUTES")
	if err != nil {
		return SessionConfig{}, err
	}
	ttl := 60 * time.Minute
	if minutes != nil {
		if *minutes < 1 {
			ttl = time.Minute
		} else {
			ttl = time.Duration(*minutes) * time.Minute
		}
	}
	return SessionConfig{IdleTTL: ttl}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationMSEnv 解析以毫秒为单位的非负时长。
func parseDurationMSEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	ms, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return defaultValue, nil
	}
	if *ms < 0 {
		return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *ms)
	}
	return time.Duration(*ms) * time.Millisecond, nil
}
