package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	AuthConfig struct {
		SecretKey string
		Issuer    string
		Audience  string
	}

	BackendConfig struct {
		BaseURL    string
		SearchPath string
		SavePath   string
		Token      string // used by the admin CLI, prompted when empty
		Timeout    time.Duration
		InMemory   bool // serve search & flows from fixtures instead of the REST backend
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	EmailConfig struct {
		SendgridAPIKey string
		FromName       string
		FromAddress    string
	}

	ViewConfig struct {
		DefaultLimit     int
		MaxLimit         int
		MaxPerOwner      int
		MaxFlowsPerOwner int // status flow editors kept per owner
		LogPatchMisses   bool
	}

	Config struct {
		Env          string // DEV (default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		Build        string
		AppName      string
		WorkDir      string
		RollbarToken string

		Server   ServerConfig
		Auth     AuthConfig
		Backend  BackendConfig
		Database DatabaseConfig
		Views    ViewConfig
		Email    EmailConfig
	}
)

// From is the sender of outgoing emails.
func (c EmailConfig) From() mail.Address {
	return mail.Address{Name: c.FromName, Address: c.FromAddress}
}

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration from the environment.
// `config/.env.<env>` is loaded first when it exists, ENV selects the env and the variable prefix.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, env)

	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Auth: AuthConfig{
			SecretKey: v.GetString("auth.secretKey"),
			Issuer:    v.GetString("auth.issuer"),
			Audience:  v.GetString("auth.audience"),
		},
		Backend: BackendConfig{
			BaseURL:    strings.TrimSuffix(v.GetString("backend.baseURL"), "/"),
			SearchPath: v.GetString("backend.searchPath"),
			SavePath:   v.GetString("backend.savePath"),
			Token:      v.GetString("backend.token"),
			Timeout:    v.GetDuration("backend.timeout"),
			InMemory:   v.GetBool("backend.inMemory"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Email: EmailConfig{
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
			FromName:       v.GetString("email.fromName"),
			FromAddress:    v.GetString("email.fromAddress"),
		},
		Views: ViewConfig{
			DefaultLimit:     v.GetInt("views.defaultLimit"),
			MaxLimit:         v.GetInt("views.maxLimit"),
			MaxPerOwner:      v.GetInt("views.maxPerOwner"),
			MaxFlowsPerOwner: v.GetInt("views.maxFlowsPerOwner"),
			LogPatchMisses:   v.GetBool("views.logPatchMisses"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Academia")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("auth.secretKey", "r7#k2-vq)w9=ud&pz!oh4(c)x*b1f$gne8m")
	v.SetDefault("auth.issuer", "Academia")
	v.SetDefault("auth.audience", "Academia")

	v.SetDefault("backend.baseURL", "http://localhost:8080/api")
	v.SetDefault("backend.searchPath", "/search")
	v.SetDefault("backend.savePath", "/createEditStatusFlow")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("backend.inMemory", env == "DEV" || env == "TEST")

	v.SetDefault("database.engine", "sqlite3")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "academia.db")

	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.fromName", "Academia")
	v.SetDefault("email.fromAddress", "no-reply@academia.local")

	v.SetDefault("views.defaultLimit", 10)
	v.SetDefault("views.maxLimit", 100)
	v.SetDefault("views.maxPerOwner", 32)
	v.SetDefault("views.maxFlowsPerOwner", 8)
	v.SetDefault("views.logPatchMisses", env != "PROD")
}
