// Command wordgate-server exposes the verification-code engine over HTTP.
//
// Backends are selected by what the config file fills in: a Redis address
// switches the code store from memory to Redis, a Postgres DSN switches the
// user store, and SMTP settings switch delivery from stdout logging to real
// mail. An empty config therefore runs a fully self-contained dev server.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/wordgate/wordgate"
	"github.com/wordgate/wordgate/mailer"
	"github.com/wordgate/wordgate/store"
	"github.com/wordgate/wordgate/token"
	"github.com/wordgate/wordgate/wordlist"
)

type serverConfig struct {
	Listen string `yaml:"listen"`

	Code struct {
		Words       int    `yaml:"words"`
		Language    string `yaml:"language"`
		Separator   string `yaml:"separator"`
		TTLMinutes  int    `yaml:"ttl_minutes"`
		MaxAttempts int    `yaml:"max_attempts"`
	} `yaml:"code"`

	RateLimit struct {
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	Token struct {
		Secret  string `yaml:"secret"`
		TTLDays int    `yaml:"ttl_days"`
		Issuer  string `yaml:"issuer"`
	} `yaml:"token"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		Subject  string `yaml:"subject"`
	} `yaml:"smtp"`

	Audit bool `yaml:"audit"`
}

func loadConfig(path string) (*serverConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg serverConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}
	return &cfg, nil
}

// engineConfig maps the file values onto the engine defaults, leaving
// anything unset at its default.
func engineConfig(cfg *serverConfig) wordgate.Config {
	ec := wordgate.DefaultConfig()

	if cfg.Code.Words > 0 {
		ec.Code.WordCount = cfg.Code.Words
	}
	if cfg.Code.Language != "" {
		ec.Code.Language = wordlist.Language(cfg.Code.Language)
	}
	if cfg.Code.Separator != "" {
		ec.Code.Separator = cfg.Code.Separator
	}
	if cfg.Code.TTLMinutes > 0 {
		ec.Code.TTL = time.Duration(cfg.Code.TTLMinutes) * time.Minute
	}
	if cfg.Code.MaxAttempts > 0 {
		ec.Code.MaxAttempts = cfg.Code.MaxAttempts
	}
	if cfg.RateLimit.WindowSeconds > 0 {
		ec.RateLimit.Window = time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	}
	if cfg.Token.TTLDays > 0 {
		ec.Token.TTL = time.Duration(cfg.Token.TTLDays) * 24 * time.Hour
	}
	ec.Token.Secret = []byte(cfg.Token.Secret)
	ec.Token.SigningMethod = token.MethodHS256
	ec.Token.Issuer = cfg.Token.Issuer
	ec.Audit.Enabled = cfg.Audit

	return ec
}

func buildEngine(ctx context.Context, cfg *serverConfig) (*wordgate.Engine, func(), error) {
	ec := engineConfig(cfg)
	builder := wordgate.New().WithConfig(ec)
	var closers []func()

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		builder.WithCodeStore(store.NewRedisCodes(client, cfg.Redis.Prefix, ec.RateLimit.Window))
		log.Printf("code store: redis at %s", cfg.Redis.Addr)
	} else {
		builder.WithCodeStore(store.NewMemoryCodes(ec.RateLimit.Window))
		log.Print("code store: in-memory")
	}

	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		builder.WithUserStore(store.NewPostgresUsers(pool))
		log.Print("user store: postgres")
	} else {
		builder.WithUserStore(store.NewMemoryUsers())
		log.Print("user store: in-memory")
	}

	if cfg.SMTP.Host != "" {
		builder.WithDeliverer(mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Subject:  cfg.SMTP.Subject,
		}))
		log.Printf("delivery: smtp via %s", cfg.SMTP.Host)
	} else {
		builder.WithDelivererFunc(func(_ context.Context, email, code string, ttl time.Duration) error {
			log.Printf("code for %s: %q (valid %v)", email, code, ttl)
			return nil
		})
		log.Print("delivery: stdout (dev mode)")
	}

	if cfg.Audit {
		builder.WithAuditSink(wordgate.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	cleanup := func() {
		engine.Close()
		for _, c := range closers {
			c()
		}
	}
	return engine, cleanup, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wordgate.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, wordgate.ErrMalformedCode),
		errors.Is(err, wordgate.ErrCodeNotFound),
		errors.Is(err, wordgate.ErrInvalidCode),
		errors.Is(err, wordgate.ErrAttemptsExceeded),
		errors.Is(err, wordgate.ErrUnknownUser),
		errors.Is(err, wordlist.ErrWordCount):
		return http.StatusBadRequest
	case errors.Is(err, wordgate.ErrTokenExpired), errors.Is(err, wordgate.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, wordgate.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, wordgate.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"detail": err.Error()})
}

type sendCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Words int    `json:"words"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func sendCode(engine *wordgate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "email required"})
			return
		}

		ttl, err := engine.RequestCode(c.Request.Context(), req.Email, req.Words)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"detail":      "verification code sent",
			"ttl_seconds": int(ttl.Seconds()),
		})
	}
}

func verify(engine *wordgate.Engine, autoCreate bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "email and code required"})
			return
		}

		tok, err := engine.RedeemCode(c.Request.Context(), req.Email, req.Code, autoCreate)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": tok,
			"token_type":   "bearer",
		})
	}
}

// requireAuth resolves the bearer token and stores the email in the context.
func requireAuth(engine *wordgate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "bearer token required"})
			return
		}

		email, err := engine.VerifyToken(c.Request.Context(), strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			c.AbortWithStatusJSON(statusFor(err), gin.H{"detail": err.Error()})
			return
		}

		c.Set("email", email)
		c.Next()
	}
}

func me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"email": c.GetString("email")})
}

// logout is stateless: tokens are not tracked server side, the client just
// discards its copy. The endpoint exists so clients have a uniform flow.
func logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

func newRouter(engine *wordgate.Engine) *gin.Engine {
	router := gin.Default()

	auth := router.Group("/auth")
	auth.POST("/send-code", sendCode(engine))
	auth.POST("/verify", verify(engine, false))
	auth.POST("/register-and-verify", verify(engine, true))

	protected := auth.Group("", requireAuth(engine))
	protected.GET("/me", me)
	protected.POST("/logout", logout)

	return router
}

func main() {
	configPath := flag.String("config", "wordgate.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, cleanup, err := buildEngine(context.Background(), cfg)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer cleanup()

	log.Printf("listening on %s", cfg.Listen)
	if err := newRouter(engine).Run(cfg.Listen); err != nil {
		log.Fatalf("server: %v", err)
	}
}
