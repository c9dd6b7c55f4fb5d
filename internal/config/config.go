package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProcessingInline = "inline"
	ProcessingQueue  = "queue"

	StorageMinio = "minio"
	StorageGCS   = "gcs"

	RecordsPostgres  = "postgres"
	RecordsFirestore = "firestore"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	DB         DB         `yaml:"db"`
	Cache      Cache      `yaml:"cache"`
	Identity   Identity   `yaml:"identity"`
	ReactiveDB ReactiveDB `yaml:"reactive_db"`
	Storage    Storage    `yaml:"storage"`
	Processing Processing `yaml:"processing"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DB struct {
	Addr     string `yaml:"addr" env:"DB_ADDR" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DB       string `yaml:"db" env:"DB_NAME" env-default:"docingest"`
}

type Cache struct {
	Addr         string        `yaml:"addr" env:"CACHE_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"CACHE_PASSWORD"`
	DB           int           `yaml:"db" env:"CACHE_DB" env-default:"0"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"CACHE_SESSION_TTL" env-default:"24h"`
	DocumentsTTL time.Duration `yaml:"documents_ttl" env:"CACHE_DOCUMENTS_TTL" env-default:"5m"`
}

// Identity is the external identity provider (Supabase auth).
type Identity struct {
	URL        string        `yaml:"url" env:"SUPABASE_URL" env-required:"true"`
	ServiceKey string        `yaml:"service_key" env:"SUPABASE_SERVICE_ROLE_KEY" env-required:"true"`
	Timeout    time.Duration `yaml:"timeout" env:"SUPABASE_TIMEOUT" env-default:"10s"`
}

type ReactiveDB struct {
	AppID            string `yaml:"app_id" env:"REACTIVE_APP_ID" env-required:"true"`
	AdminToken       string `yaml:"admin_token" env:"REACTIVE_ADMIN_TOKEN"`
	Backend          string `yaml:"backend" env:"REACTIVE_BACKEND" env-default:"postgres"`
	FirestoreProject string `yaml:"firestore_project" env:"FIRESTORE_PROJECT"`
	Collection       string `yaml:"collection" env:"REACTIVE_COLLECTION" env-default:"documents"`
	// ListLimit caps one user's document list. Zero lists everything.
	ListLimit        int    `yaml:"list_limit" env:"REACTIVE_LIST_LIMIT" env-default:"0"`
}

type Storage struct {
	Backend          string   `yaml:"backend" env:"STORAGE_BACKEND" env-default:"minio"`
	Bucket           string   `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"documents"`
	Endpoint         string   `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:"localhost:9000"`
	AccessKey        string   `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
	SecretKey        string   `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
	UseSSL           bool     `yaml:"use_ssl" env:"STORAGE_USE_SSL" env-default:"false"`
	PublicURL        string   `yaml:"public_url" env:"STORAGE_PUBLIC_URL"`
	GCSEndpoint      string   `yaml:"gcs_endpoint" env:"STORAGE_GCS_ENDPOINT"`
	MaxFileSize      int64    `yaml:"max_file_size" env:"STORAGE_MAX_FILE_SIZE" env-default:"10485760"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types" env:"STORAGE_ALLOWED_MIME_TYPES" env-default:"application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain"`
}

type Processing struct {
	Mode         string `yaml:"mode" env:"PROCESSING_MODE" env-default:"inline"`
	NATSURL      string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	StreamName   string `yaml:"stream_name" env:"NATS_STREAM_NAME" env-default:"DOCUMENTS"`
	Subject      string `yaml:"subject" env:"NATS_SUBJECT" env-default:"documents.process"`
	ConsumerName string `yaml:"consumer_name" env:"NATS_CONSUMER_NAME" env-default:"document-processor"`
}

// Client configures the docs command line tool. It is read from the environment only.
type Client struct {
	ServerURL   string        `env:"DOCS_SERVER_URL" env-default:"http://localhost:8080"`
	Token       string        `env:"DOCS_TOKEN"`
	AdminToken  string        `env:"REACTIVE_ADMIN_TOKEN"`
	SupabaseURL string        `env:"SUPABASE_URL"`
	ServiceKey  string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	Timeout     time.Duration `env:"DOCS_TIMEOUT" env-default:"60s"`
}

func LoadClient() (*Client, error) {
	var cfg Client

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	var cfg Config

	mustRead(&cfg)

	return &cfg
}

// MustLoadDB reads only the database section, for tools that never talk to the other services.
func MustLoadDB() DB {
	var cfg struct {
		DB DB `yaml:"db"`
	}

	mustRead(&cfg)

	return cfg.DB
}

func mustRead(cfg any) {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			log.Fatalf("cannot read config from env: %s", err)
		}
		return
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
}
