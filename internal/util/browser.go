package util

import (
	"os/exec"
	"runtime"
)

// fallbackBrowsers Linux で xdg-open が使えない場合に試すブラウザ
var fallbackBrowsers = []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"}

// browserCommand OS ごとの既定ブラウザ起動コマンド
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		// Windows 7 でも動く rundll32 経由
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser 既定のブラウザで URL を開く
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	return exec.Command(name, args...).Start()
}

// OpenBrowserWithFallback 既定の方法で開けなければ代替手段を試す
func OpenBrowserWithFallback(url string) error {
	err := OpenBrowser(url)
	if err == nil {
		return nil
	}

	switch runtime.GOOS {
	case "windows":
		return exec.Command("explorer", url).Start()
	case "linux":
		for _, browser := range fallbackBrowsers {
			if err := exec.Command(browser, url).Start(); err == nil {
				return nil
			}
		}
	}

	return err
}
