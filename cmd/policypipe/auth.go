package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"policypipe/pkg/auth"
	"policypipe/pkg/config"
)

const geminiProvider = "gemini"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API keys",
	Long: `Manage the API keys the pipeline uses.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback, e.g. GEMINI_API_KEY)`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [provider]",
	Short: "Store an API key securely",
	Long: `Store an API key in the system keychain or encrypted file.

The key is read from a hidden prompt, never from command arguments, so it
does not end up in shell history.`,
	Example: `  # Store the Gemini key (default provider)
  policypipe auth set

  # Store a key for a named provider
  policypipe auth set gemini`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSet,
}

var authStatusCmd = &cobra.Command{
	Use:   "status [provider]",
	Short: "Show whether an API key is configured",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthStatus,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove [provider]",
	Short: "Remove a stored API key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func providerArg(args []string) string {
	if len(args) == 1 {
		return strings.ToLower(strings.TrimSpace(args[0]))
	}
	return geminiProvider
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	provider := providerArg(args)

	fmt.Printf("Enter API key for %s: ", provider)
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		// Not a terminal; fall back to reading a line
		reader := bufio.NewReader(os.Stdin)
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("failed to read api key: %w", readErr)
		}
		keyBytes = []byte(strings.TrimSpace(line))
	}

	apiKey := strings.TrimSpace(string(keyBytes))
	if apiKey == "" {
		return fmt.Errorf("api key must not be empty")
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	if err := manager.Store(&auth.Key{Provider: provider, APIKey: apiKey}); err != nil {
		return err
	}

	fmt.Printf("Stored API key for %s (%s)\n", provider, auth.MaskKey(apiKey))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	provider := providerArg(args)

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	key, err := manager.Retrieve(provider)
	if err != nil {
		fmt.Printf("No API key configured for %s\n", provider)
		return nil
	}

	fmt.Printf("API key for %s: %s (modified %s)\n",
		provider, auth.MaskKey(key.APIKey), key.LastModified.Format("2006-01-02 15:04"))
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	provider := providerArg(args)

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	if err := manager.Delete(provider); err != nil {
		return err
	}

	fmt.Printf("Removed API key for %s\n", provider)
	return nil
}

// resolveGeminiKey returns the Gemini API key from config or the key store
func resolveGeminiKey(cfg *config.Config) (string, error) {
	if cfg.Gemini.APIKey != "" {
		return cfg.Gemini.APIKey, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return "", err
	}

	key, err := manager.Retrieve(geminiProvider)
	if err != nil {
		return "", fmt.Errorf("no Gemini API key configured: set GEMINI_API_KEY or run 'policypipe auth set'")
	}
	return key.APIKey, nil
}
