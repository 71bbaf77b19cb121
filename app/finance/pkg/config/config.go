package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding" json:"embedding"`
	Vector      VectorConfig      `yaml:"vector" json:"vector"`
	Document    DocumentConfig    `yaml:"document" json:"document"`
	Normalize   normalize.Options `yaml:"normalize" json:"normalize"`
	Log         LogConfig         `yaml:"log" json:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	DB          DBConfig          `yaml:"db" json:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	// MaxRetries 仅对 429 生效，0 表示只调用一次
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// Timeout 单次调用超时（秒）
	Timeout int `yaml:"timeout" json:"timeout"`
	// FailureThreshold 连续失败多少次后熔断，CooldownSeconds 熔断时长
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds" json:"cooldown_seconds"`
}

// EmbeddingConfig 向量化模型配置，留空的字段沿用 LLM 配置
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
	Model   string `yaml:"model" json:"model"`
	Timeout int    `yaml:"timeout" json:"timeout"`
}

// VectorConfig 向量库配置
type VectorConfig struct {
	// Provider pinecone | noop
	Provider  string         `yaml:"provider" json:"provider"`
	Pinecone  PineconeConfig `yaml:"pinecone" json:"pinecone"`
	TopK      int            `yaml:"top_k" json:"top_k"`
	BatchSize int            `yaml:"batch_size" json:"batch_size"`
}

// PineconeConfig Pinecone 配置
type PineconeConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	IndexHost string `yaml:"index_host" json:"index_host"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Timeout   int    `yaml:"timeout" json:"timeout"`
}

// DocumentConfig 文档切分与抓取配置
type DocumentConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	FetchTimeout int `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	URL      string `yaml:"url" json:"url"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
}

// DSN 返回 lib/pq 连接串，未配置数据库时为空
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps" json:"qps"`
	RPM int `yaml:"rpm" json:"rpm"`
}

// LoadConfig 从指定路径加载配置；path 为空时只使用环境变量与默认值。
// 顺序：yaml 文件 → .env / 环境变量覆盖 → 默认值
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.Resolve()
	return &cfg, nil
}

// Resolve 对已解析的配置依次应用 .env / 环境变量覆盖与默认值
func (c *Config) Resolve() {
	_ = godotenv.Load()
	c.applyEnv()
	c.ApplyDefaults()
}

func (c *Config) applyEnv() {
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Model, "OPENAI_MODEL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Vector.Provider, "VECTOR_PROVIDER")
	setString(&c.Vector.Pinecone.APIKey, "PINECONE_API_KEY")
	setString(&c.Vector.Pinecone.IndexHost, "PINECONE_INDEX_HOST")
	setString(&c.DB.URL, "DATABASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v, err := strconv.Atoi(os.Getenv("LLM_MAX_RETRIES")); err == nil {
		c.LLM.MaxRetries = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ApplyDefaults 为零值字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-3.5-turbo"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60
	}
	if c.LLM.FailureThreshold == 0 {
		c.LLM.FailureThreshold = 5
	}
	if c.LLM.CooldownSeconds == 0 {
		c.LLM.CooldownSeconds = 30
	}

	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-ada-002"
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30
	}

	if c.Vector.Provider == "" {
		if c.Vector.Pinecone.APIKey != "" && c.Vector.Pinecone.IndexHost != "" {
			c.Vector.Provider = "pinecone"
		} else {
			c.Vector.Provider = "noop"
		}
	}
	if c.Vector.TopK == 0 {
		c.Vector.TopK = 5
	}
	if c.Vector.BatchSize == 0 {
		c.Vector.BatchSize = 100
	}
	if c.Vector.Pinecone.Timeout == 0 {
		c.Vector.Pinecone.Timeout = 30
	}

	if c.Document.ChunkSize == 0 {
		c.Document.ChunkSize = 1000
	}
	if c.Document.ChunkOverlap == 0 {
		c.Document.ChunkOverlap = 200
	}
	if c.Document.FetchTimeout == 0 {
		c.Document.FetchTimeout = 30
	}

	d := normalize.DefaultOptions()
	if c.Normalize.AllocationTolerance == 0 {
		c.Normalize.AllocationTolerance = d.AllocationTolerance
	}
	if c.Normalize.EmergencyMinMonths == 0 {
		c.Normalize.EmergencyMinMonths = d.EmergencyMinMonths
	}
	if c.Normalize.EmergencyMaxMonths == 0 {
		c.Normalize.EmergencyMaxMonths = d.EmergencyMaxMonths
	}
	if c.Normalize.EmergencyDefaultMonths == 0 {
		c.Normalize.EmergencyDefaultMonths = d.EmergencyDefaultMonths
	}
	if c.Normalize.ExpenseEstimate == 0 {
		c.Normalize.ExpenseEstimate = d.ExpenseEstimate
	}
	if c.Normalize.SavingsRate == 0 {
		c.Normalize.SavingsRate = d.SavingsRate
	}
	if c.Normalize.ListCap == 0 {
		c.Normalize.ListCap = d.ListCap
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 1
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
}
