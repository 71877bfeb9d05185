package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"codefacts/internal/auth"
	cferrors "codefacts/internal/errors"
)

var tokenSave bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API token of the HTTP server",
	Long: `Create and check the bearer token protecting the HTTP API.

Only the bcrypt hash of the token is kept in the configuration
(server.tokenHash). The token itself is shown once, when it is created.

Examples:
  codefacts token create --save
  codefacts token verify cf_sk_...`,
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new API token",
	Long: `Generate a new API token and print it with its hash. With --save the
hash replaces server.tokenHash in <data-dir>/config.yaml, which revokes the
previous token.`,
	Args: cobra.NoArgs,
	RunE: runTokenCreate,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Check a token against the configured hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenVerify,
}

// TokenResponseCLI reports a created or verified token.
type TokenResponseCLI struct {
	Token   string `json:"token,omitempty"`
	Masked  string `json:"masked"`
	Hash    string `json:"hash,omitempty"`
	Saved   string `json:"saved,omitempty"`
	Valid   *bool  `json:"valid,omitempty"`
	Message string `json:"message,omitempty"`
}

func init() {
	tokenCreateCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the hash as server.tokenHash")
	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	token, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	resp := &TokenResponseCLI{Token: token, Masked: auth.MaskToken(token), Hash: hash}

	if tokenSave {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Server.TokenHash = hash
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		resp.Saved = filepath.Join(cfg.DataDir, "config.yaml")
	}
	return printResult(cmd, resp)
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	token := strings.TrimSpace(args[0])
	if !auth.IsValidTokenFormat(token) {
		return cferrors.Invalid("not a %s token", auth.TokenPrefix)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.TokenHash == "" {
		return cferrors.Invalid("server.tokenHash is not configured")
	}

	valid := auth.VerifyToken(token, cfg.Server.TokenHash)
	resp := &TokenResponseCLI{Masked: auth.MaskToken(token), Valid: &valid}
	if err := printResult(cmd, resp); err != nil {
		return err
	}
	if !valid {
		return cferrors.New("UNAUTHENTICATED", "token does not match server.tokenHash", nil)
	}
	return nil
}

func writeToken(b *strings.Builder, t *TokenResponseCLI) {
	if t.Valid != nil {
		if *t.Valid {
			fmt.Fprintf(b, "Token %s is valid", t.Masked)
		} else {
			fmt.Fprintf(b, "Token %s does not match", t.Masked)
		}
		return
	}
	b.WriteString("API Token Created:\n\n")
	fmt.Fprintf(b, "  Token: %s\n", t.Token)
	fmt.Fprintf(b, "  Hash:  %s\n", t.Hash)
	if t.Saved != "" {
		fmt.Fprintf(b, "\nHash saved to %s\n", t.Saved)
	} else {
		b.WriteString("\nSet server.tokenHash to the hash, or rerun with --save.\n")
	}
	b.WriteString("Store the token now. It cannot be shown again.")
}
