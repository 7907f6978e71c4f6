package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantmind-br/spclone-go/internal/config"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Dependencies for testing
var (
	execLookPath = exec.LookPath
	doctorClient = &http.Client{Timeout: 5 * time.Second}
)

func newDoctorCommand(checkPython bool) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system dependencies",
		Long:  "Verifies that network access, permissions and (for spinstall) a Python toolchain are available.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Checking system dependencies...")
			allPassed := true

			fmt.Print("  GitHub reachability: ")
			if checkGitHub(cmd.Context()) {
				fmt.Println("OK")
			} else {
				fmt.Println("FAILED")
				allPassed = false
			}

			fmt.Print("  Write permissions: ")
			if checkWritePermissions() {
				fmt.Println("OK")
			} else {
				fmt.Println("FAILED")
				allPassed = false
			}

			fmt.Print("  Config file: ")
			if _, err := config.Load(); err != nil {
				fmt.Printf("WARN (%v)\n", err)
			} else {
				fmt.Println("OK")
			}

			fmt.Print("  Cache directory: ")
			cacheDir := utils.ExpandPath(config.CacheDir())
			if utils.DirExists(cacheDir) {
				fmt.Printf("OK (%s)\n", cacheDir)
			} else {
				fmt.Println("WARN (will be created on first use)")
			}

			if checkPython {
				fmt.Print("  Python interpreter: ")
				if path := checkInterpreter(); path != "" {
					fmt.Printf("OK (%s)\n", path)
				} else {
					fmt.Println("NOT FOUND")
					allPassed = false
				}
			}

			fmt.Println()
			if allPassed {
				fmt.Println("All critical checks passed!")
			} else {
				fmt.Println("Some checks failed. Please resolve the issues above.")
			}
			return nil
		},
	}
}

// checkGitHub checks whether the GitHub API answers at all
func checkGitHub(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, "https://api.github.com", nil)
	if err != nil {
		return false
	}

	resp, err := doctorClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// checkWritePermissions checks if we can write to the current directory
func checkWritePermissions() bool {
	tmpFile := ".spclone_test_write"
	f, err := os.Create(tmpFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(tmpFile)
	return true
}

// checkInterpreter looks for a usable Python interpreter on PATH
func checkInterpreter() string {
	for _, candidate := range []string{"python3", "python"} {
		if path, err := execLookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}
