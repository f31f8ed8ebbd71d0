package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	CRMBaseURL     string
	CRMAPIKey      string
	AttendancePath string
	LeadsPath      string
	PageSize       int
	StatusFilter   string
	Purposes       []int
	Retries        int
	HTTPTimeout    time.Duration
	SLAMinutes     int
	Location       *time.Location
	CacheTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	WhatsAppPhone  string
	LogLevel       slog.Level
}

// Load lee un .env opcional y luego el entorno.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// el .env es opcional; las variables ya exportadas ganan
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	loc, err := time.LoadLocation(envOr("TZ_NAME", "America/Sao_Paulo"))
	if err != nil {
		loc = time.Local
	}
	return Config{
		Port:           envOr("PORT", "8080"),
		CRMBaseURL:     strings.TrimRight(os.Getenv("CRM_BASE_URL"), "/"),
		CRMAPIKey:      strings.TrimSpace(os.Getenv("CRM_API_KEY")),
		AttendancePath: envOr("CRM_ATTENDANCE_PATH", "/Atendimento/RetornarAtendimentos"),
		LeadsPath:      envOr("CRM_LEADS_PATH", "/Lead/RetornarLeads"),
		PageSize:       atoiOr("CRM_PAGE_SIZE", 100),
		StatusFilter:   os.Getenv("CRM_STATUS"),
		Purposes:       intList(envOr("CRM_PURPOSES", "1,2")),
		Retries:        atoiOr("CRM_RETRIES", 0),
		HTTPTimeout:    to,
		SLAMinutes:     atoiOr("SLA_MINUTES", 120),
		Location:       loc,
		CacheTTL:       time.Duration(atoiOr("CACHE_TTL_SECONDS", 0)) * time.Second,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		WhatsAppPhone:  os.Getenv("WHATSAPP_PHONE"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func intList(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []int{1, 2}
	}
	return out
}
