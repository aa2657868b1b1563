package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/kursadbilgin/massmail/internal/domain"
)

const (
	AttachFormatPDF  = "pdf"
	AttachFormatDocx = "docx"

	defaultMaxRetries = 3
)

type Config struct {
	SMTPHost     string `env:"SMTP_HOST,required=true"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	UseSSL       bool   `env:"USE_SSL,default=false"`
	SMTPUser     string `env:"SMTP_USER,required=true"`
	SMTPPassword string `env:"SMTP_PASSWORD,required=true"`

	FromName        string `env:"FROM_NAME"`
	ReplyTo         string `env:"REPLY_TO"`
	SubjectTemplate string `env:"SUBJECT_TEMPLATE,default=RFQ for {company} - documents attached"`
	Deadline        string `env:"DEADLINE"`
	BodyTemplate    string `env:"EMAIL_BODY_HTML_TEMPLATE,required=true"`
	LogoPath        string `env:"LOGO_PATH"`

	SleepSeconds   float64 `env:"SLEEP_SECONDS,default=1"`
	MaxRetries     int     `env:"MAX_RETRIES,default=3"`
	AttachFormat   string  `env:"ATTACH_FORMAT,default=pdf"`
	RequestReceipt bool    `env:"REQUEST_RECEIPT,default=true"`
	LogLevel       string  `env:"LOG_LEVEL,default=info"`
}

// Load reads .env (if present) and the process environment, then applies
// the cross-field defaults the env tags cannot express.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.FromName == "" {
		c.FromName = c.SMTPUser
	}
	if c.ReplyTo == "" {
		c.ReplyTo = c.SMTPUser
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = defaultMaxRetries
	}
	switch c.AttachFormat {
	case AttachFormatPDF, AttachFormatDocx:
	default:
		return fmt.Errorf("%w: ATTACH_FORMAT must be %q or %q (got %q)",
			domain.ErrConfiguration, AttachFormatPDF, AttachFormatDocx, c.AttachFormat)
	}
	if c.SleepSeconds < 0 {
		return fmt.Errorf("%w: SLEEP_SECONDS must not be negative", domain.ErrConfiguration)
	}
	return nil
}

// Sleep is the fixed pause applied after every send.
func (c *Config) Sleep() time.Duration {
	return time.Duration(c.SleepSeconds * float64(time.Second))
}
