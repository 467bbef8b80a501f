package config

import (
	"os"
	"strconv"
	"strings"

	"coppit-server/internal/bot"
	"coppit-server/internal/game"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	HTTPAddr       string
	LogMode        string
	AllowedOrigins []string

	UseRedis      bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ArchivePath string
	BoardPath   string // empty means the built-in default layout
	CleanerSpec string

	Rules   game.Config
	Weights bot.Weights
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Load reads the environment. Every rule toggle of the default game
// config can be overridden, so a deployment can run house rules without
// a rebuild.
func Load() Config {
	rules := game.DefaultConfig()
	rules.MaxPlayers = getenvInt("GAME_MAX_PLAYERS", rules.MaxPlayers)
	rules.HatsPerPlayer = getenvInt("GAME_HATS_PER_PLAYER", rules.HatsPerPlayer)
	rules.Require6ToDeploy = getenvBool("GAME_REQUIRE_6_TO_DEPLOY", rules.Require6ToDeploy)
	rules.ExtraRollOn6 = getenvBool("GAME_EXTRA_ROLL_ON_6", rules.ExtraRollOn6)
	rules.CaptureOnPass = getenvBool("GAME_CAPTURE_ON_PASS", rules.CaptureOnPass)
	rules.SafeByColor = getenvBool("GAME_SAFE_BY_COLOR", rules.SafeByColor)
	rules.SafeByGray = getenvBool("GAME_SAFE_BY_GRAY", rules.SafeByGray)
	rules.AllowBoxInvasion = getenvBool("GAME_ALLOW_BOX_INVASION", rules.AllowBoxInvasion)
	rules.AutoBankOnReturn = getenvBool("GAME_AUTO_BANK_ON_RETURN", rules.AutoBankOnReturn)
	rules.AllowRespawn = getenvBool("GAME_ALLOW_RESPAWN", rules.AllowRespawn)
	rules.WinMode = getenv("GAME_WIN_MODE", rules.WinMode)
	rules.MaxTurns = getenvInt("GAME_MAX_TURNS", rules.MaxTurns)
	rules.AllowBackward = getenvBool("GAME_ALLOW_BACKWARD", rules.AllowBackward)
	rules.DirectionLock = getenvBool("GAME_DIRECTION_LOCK", rules.DirectionLock)
	rules.BoxExitBidirectional = getenvBool("GAME_BOX_EXIT_BIDIRECTIONAL", rules.BoxExitBidirectional)
	rules.MaxStackHeight = getenvInt("GAME_MAX_STACK_HEIGHT", rules.MaxStackHeight)
	rules.TurnOrderMethod = getenv("GAME_TURN_ORDER", rules.TurnOrderMethod)
	rules.BotDifficulty = getenv("BOT_DIFFICULTY", rules.BotDifficulty)

	w := bot.DefaultWeights()
	w.Capture = getenvFloat("BOT_W_CAPTURE", w.Capture)
	w.Bank = getenvFloat("BOT_W_BANK", w.Bank)
	w.Return = getenvFloat("BOT_W_RETURN", w.Return)
	w.Safe = getenvFloat("BOT_W_SAFE", w.Safe)
	w.Deploy = getenvFloat("BOT_W_DEPLOY", w.Deploy)
	w.Danger = getenvFloat("BOT_W_DANGER", w.Danger)

	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		LogMode:        getenv("LOG_MODE", "prod"),
		AllowedOrigins: strings.Split(getenv("ALLOWED_ORIGINS", "*"), ","),
		UseRedis:       getenvBool("USE_REDIS", false),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        getenvInt("REDIS_DB", 0),
		ArchivePath:    getenv("ARCHIVE_PATH", "coppit_archive.db"),
		BoardPath:      getenv("BOARD_PATH", ""),
		CleanerSpec:    getenv("CLEANER_SPEC", "@every 5m"),
		Rules:          rules,
		Weights:        w,
	}
}
