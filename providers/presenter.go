package providers

import (
	"fmt"
	"os/exec"
	"runtime"
)

// BrowserPresenter opens the consent surface in the system browser.
type BrowserPresenter struct{}

func (BrowserPresenter) Present(authURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", authURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
	default:
		cmd = exec.Command("xdg-open", authURL)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
