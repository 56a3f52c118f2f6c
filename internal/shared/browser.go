package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openerFor maps GOOS to the command that opens a URL in the default
// browser. Overridable in tests.
var openerFor = func(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", url), nil
	}
	return nil, fmt.Errorf("unsupported platform: %s", goos)
}

// OpenBrowser opens url in the system default browser without waiting for
// the browser process to exit.
func OpenBrowser(url string) error {
	cmd, err := openerFor(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
