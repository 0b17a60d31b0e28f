package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TOKYOFLOWER/BeDelivery/internal/parser"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, BackendSQLite, c.Store.Backend)
	assert.Equal(t, "削除", c.Import.DeleteSentinel)
	assert.Equal(t, "ar5500", c.Defaults.Product.ProductCode)
	assert.Equal(t, int64(10<<20), c.Import.MaxUploadBytes())
	assert.Equal(t, parser.DefaultSheetPriority, c.SheetSelector().Priority)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	c.Server.Port = 0
	c.Store.Backend = BackendRemote
	c.Import.DeleteSentinel = " "

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "remote.api_url")
	assert.Contains(t, err.Error(), "delete_sentinel")
}

func TestValidate_MemoryBackend(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	c.Store.Backend = BackendMemory
	assert.NoError(t, c.Validate())

	c.Store.Backend = "mysql"
	assert.Error(t, c.Validate())
}

func TestLoadConfigWithInfo_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	c, info, err := LoadConfigWithInfo(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.False(t, info.FileFound)
	assert.False(t, info.PortSpecified)
	assert.Equal(t, DefaultConfig().Server.Port, c.Server.Port)
}

func TestLoadConfigWithInfo_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FileName, `
[server]
port = 18080

[log]
level = "debug"
format = "json"

[store]
backend = "remote"

[remote]
api_url = "https://script.example.com/exec"
timeout_seconds = 5

[import]
max_upload_mb = 4
session_ttl_minutes = 15
single_session = false
sheet_priority = ["名簿"]
excluded_sheets = []
delete_sentinel = "退会"

[defaults.orderer]
last_name = "テスト"
email = "test@example.com"

[defaults.product]
code = "ar3300"
unit_price = 3300
quantity = 1
`)

	c, info, err := LoadConfigWithInfo(path)
	require.NoError(t, err)
	assert.True(t, info.FileFound)
	assert.True(t, info.PortSpecified)
	assert.Equal(t, 18080, c.Server.Port)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, BackendRemote, c.Store.Backend)
	assert.Equal(t, "https://script.example.com/exec", c.Remote.APIURL)
	assert.Equal(t, 5.0, c.Remote.Timeout().Seconds())
	assert.Equal(t, 15.0, c.Import.SessionTTL().Minutes())
	assert.False(t, c.Import.SingleSession)
	assert.Equal(t, []string{"名簿"}, c.Import.SheetPriority)
	assert.Empty(t, c.Import.ExcludedSheets)
	assert.Equal(t, "退会", c.Import.DeleteSentinel)
	assert.Equal(t, "テスト", c.Defaults.Orderer.CustomerLastName)
	assert.Equal(t, "BeDelivery", c.Defaults.Orderer.CustomerFirstName)
	assert.Equal(t, "ar3300", c.Defaults.Product.ProductCode)
	assert.Equal(t, "店頭払い", c.Defaults.Product.PaymentMethod)

	d := c.ParserDefaults()
	assert.Equal(t, 3300, d.Product.UnitPrice)
}

func TestLoadConfigWithInfo_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FileName, "[server\nport = ")

	_, _, err := LoadConfigWithInfo(path)
	assert.Error(t, err)
}

func TestLoadConfigWithInfo_EnvOverrides(t *testing.T) {
	t.Setenv("BEDELIVERY_PORT", "19000")
	t.Setenv("BEDELIVERY_LOG_LEVEL", "warn")

	dir := t.TempDir()
	c, info, err := LoadConfigWithInfo(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.True(t, info.PortSpecified)
	assert.Equal(t, 19000, c.Server.Port)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestLoadConfigWithInfo_DotEnv(t *testing.T) {
	t.Cleanup(func() { _ = os.Unsetenv("BEDELIVERY_API_URL") })
	t.Cleanup(func() { _ = os.Unsetenv("BEDELIVERY_STORE_BACKEND") })

	dir := t.TempDir()
	writeFile(t, dir, ".env", "BEDELIVERY_STORE_BACKEND=remote\nBEDELIVERY_API_URL=https://script.example.com/dotenv\n")

	c, err := LoadConfig(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, c.Store.Backend)
	assert.Equal(t, "https://script.example.com/dotenv", c.Remote.APIURL)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"BEDELIVERY_SINGLE_SESSION":    "false",
		"BEDELIVERY_RATE_PER_SECOND":   "0.5",
		"BEDELIVERY_DELETE_SENTINEL":   " 退会 ",
		"BEDELIVERY_MAX_UPLOAD_MB":     "",
		"BEDELIVERY_UNRELATED_SETTING": "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := DefaultConfig()
	require.NoError(t, applyEnv(c, lookup))
	assert.False(t, c.Import.SingleSession)
	assert.Equal(t, 0.5, c.Remote.RatePerSecond)
	assert.Equal(t, "退会", c.Import.DeleteSentinel)
	assert.Equal(t, 10, c.Import.MaxUploadMB)

	env["BEDELIVERY_PORT"] = "abc"
	assert.Error(t, applyEnv(DefaultConfig(), lookup))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	c := DefaultConfig()
	c.Server.Port = 21000
	c.Import.DeleteSentinel = "退会"
	require.NoError(t, SaveConfig(path, c))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 21000, loaded.Server.Port)
	assert.Equal(t, "退会", loaded.Import.DeleteSentinel)
	assert.Equal(t, c.Defaults.Product, loaded.Defaults.Product)
}

func TestEnsureDataDir_Absolute(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	c.Data.DataDir = filepath.Join(t.TempDir(), "data")

	dir, err := EnsureDataDir(c)
	require.NoError(t, err)
	assert.Equal(t, c.Data.DataDir, dir)
	assert.DirExists(t, filepath.Join(dir, "uploads"))
	assert.Equal(t, filepath.Join(dir, "bedelivery.db"), DatabasePath(c))
	assert.Equal(t, filepath.Join(dir, "exports", "a.xlsx"), GetDataPath(c, "exports", "a.xlsx"))
}
