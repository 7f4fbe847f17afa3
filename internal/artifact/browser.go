package artifact

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommand returns the platform command that opens target
func browserCommand(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// OpenBrowser opens target in the default browser without waiting for it
func OpenBrowser(target string) error {
	name, args := browserCommand(runtime.GOOS, target)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go cmd.Wait()
	return nil
}
