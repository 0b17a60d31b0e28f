package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/TOKYOFLOWER/BeDelivery/internal/logging"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/parser"
	"github.com/TOKYOFLOWER/BeDelivery/internal/reconcile"
)

const (
	// FileName 設定ファイル名
	FileName = "config.toml"
	// EnvPrefix 環境変数の接頭辞
	EnvPrefix = "BEDELIVERY_"
)

// ストアの種類
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendMemory = "memory"
)

// AppConfig アプリケーション設定
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Log      logging.Config `toml:"log"`
	Store    StoreConfig    `toml:"store"`
	Remote   RemoteConfig   `toml:"remote"`
	Import   ImportConfig   `toml:"import"`
	Defaults DefaultsConfig `toml:"defaults"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port        int  `toml:"port"`
	DevMode     bool `toml:"dev_mode"`
	OpenBrowser bool `toml:"open_browser"`
}

// DataConfig データ設定
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// StoreConfig 注文ストアの選択
type StoreConfig struct {
	Backend string `toml:"backend"`
}

// RemoteConfig リモート注文 API の設定
type RemoteConfig struct {
	APIURL         string  `toml:"api_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second"`
}

// Timeout HTTP タイムアウト
func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ImportConfig 取り込み処理の設定
type ImportConfig struct {
	MaxUploadMB       int      `toml:"max_upload_mb"`
	SessionTTLMinutes int      `toml:"session_ttl_minutes"`
	SingleSession     bool     `toml:"single_session"`
	SheetPriority     []string `toml:"sheet_priority"`
	ExcludedSheets    []string `toml:"excluded_sheets"`
	DeleteSentinel    string   `toml:"delete_sentinel"`
}

// SessionTTL セッションの有効期間
func (c ImportConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// MaxUploadBytes アップロード上限
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DefaultsConfig 取り込み時に補う注文者・商品
type DefaultsConfig struct {
	Orderer model.Orderer `toml:"orderer"`
	Product model.Product `toml:"product"`
}

// LoadConfigInfo 設定読み込みのメタ情報
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 既定の設定
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:        20262,
			DevMode:     false,
			OpenBrowser: true,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: logging.DefaultConfig(),
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		Remote: RemoteConfig{
			TimeoutSeconds: 30,
			RatePerSecond:  2,
		},
		Import: ImportConfig{
			MaxUploadMB:       10,
			SessionTTLMinutes: 30,
			SingleSession:     true,
			SheetPriority:     append([]string(nil), parser.DefaultSheetPriority...),
			ExcludedSheets:    append([]string(nil), parser.DefaultExcludedSheets...),
			DeleteSentinel:    reconcile.DefaultDeleteSentinel,
		},
		Defaults: DefaultsConfig{
			Orderer: model.DefaultOrderer(),
			Product: model.DefaultProduct(),
		},
	}
}

// Validate 設定値を検証する
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port が不正です: %d", c.Server.Port))
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRemote:
		if strings.TrimSpace(c.Remote.APIURL) == "" {
			errs = append(errs, errors.New("store.backend=remote には remote.api_url が必要です"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend が不正です: %q", c.Store.Backend))
	}
	if c.Import.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("import.max_upload_mb が不正です: %d", c.Import.MaxUploadMB))
	}
	if c.Import.SessionTTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("import.session_ttl_minutes が不正です: %d", c.Import.SessionTTLMinutes))
	}
	if strings.TrimSpace(c.Import.DeleteSentinel) == "" {
		errs = append(errs, errors.New("import.delete_sentinel が空です"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParserDefaults 正規化で補う既定値
func (c *AppConfig) ParserDefaults() parser.Defaults {
	return parser.Defaults{Orderer: c.Defaults.Orderer, Product: c.Defaults.Product}
}

// SheetSelector 設定に基づくシート選択
func (c *AppConfig) SheetSelector() parser.SheetSelector {
	return parser.SheetSelector{Priority: c.Import.SheetPriority, Excluded: c.Import.ExcludedSheets}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 実行ファイルのあるディレクトリ
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 実行ファイルと同じ場所の config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, FileName)
}

// LoadConfigWithInfo 設定を読み込みメタ情報も返す
// path が空なら実行ファイルと同じ場所の config.toml を使う。
// ファイルがなければ既定値に .env と環境変数を重ねる。
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	loadDotEnv(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// 設定ファイルなし
	default:
		return nil, info, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, info, err
	}
	if _, ok := os.LookupEnv(EnvPrefix + "PORT"); ok {
		info.PortSpecified = true
	}

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 設定を読み込む
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// loadDotEnv 設定ディレクトリとカレントの .env を読む
// 既存の環境変数は上書きしない。
func loadDotEnv(dirs ...string) {
	seen := map[string]bool{}
	for _, dir := range append(dirs, ".") {
		p := filepath.Join(dir, ".env")
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnv BEDELIVERY_* 環境変数で上書きする
func applyEnv(c *AppConfig, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	var errs []error
	setInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	setInt("PORT", &c.Server.Port)
	setBool("DEV_MODE", &c.Server.DevMode)
	setBool("OPEN_BROWSER", &c.Server.OpenBrowser)
	setString("DATA_DIR", &c.Data.DataDir)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("STORE_BACKEND", &c.Store.Backend)
	setString("API_URL", &c.Remote.APIURL)
	setInt("API_TIMEOUT_SECONDS", &c.Remote.TimeoutSeconds)
	setInt("MAX_UPLOAD_MB", &c.Import.MaxUploadMB)
	setInt("SESSION_TTL_MINUTES", &c.Import.SessionTTLMinutes)
	setBool("SINGLE_SESSION", &c.Import.SingleSession)
	setString("DELETE_SENTINEL", &c.Import.DeleteSentinel)
	setString("ORDERER_EMAIL", &c.Defaults.Orderer.CustomerEmail)
	setString("PRODUCT_CODE", &c.Defaults.Product.ProductCode)

	if v, ok := get("RATE_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_PER_SECOND: %w", EnvPrefix, err))
		} else {
			c.Remote.RatePerSecond = f
		}
	}

	return errors.Join(errs...)
}

// SaveConfig 設定を書き出す
func SaveConfig(path string, config *AppConfig) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir データディレクトリを作成して絶対パスを返す
// 相対パスは実行ファイルのディレクトリ基準。
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath データディレクトリ配下のパス
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDataDir(config), subdir, filename)
}

// DatabasePath SQLite データベースのパス
func DatabasePath(config *AppConfig) string {
	return filepath.Join(resolveDataDir(config), "bedelivery.db")
}

func resolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}
