package cmd

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/cobra"

	"github.com/jrschumacher/complyhub/internal/security"
)

var utilCmd = &cobra.Command{
	Use:     "util",
	Aliases: []string{"utils"},
	Short:   "Client security utilities",
}

var utilRandomStringCmd = &cobra.Command{
	Use:   "random-string",
	Short: "Print a random alphanumeric string",
	RunE: func(cmd *cobra.Command, _ []string) error {
		length, _ := cmd.Flags().GetInt("length")
		k := security.New()
		if !k.RandomIsStrong() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: crypto/rand unavailable, output is not cryptographically secure")
		}
		fmt.Fprintln(cmd.OutOrStdout(), k.GenerateSecureRandomString(length))
		return nil
	},
}

var utilHashCmd = &cobra.Command{
	Use:   "hash <input>",
	Short: "Hash input with the selected digest provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checksum, _ := cmd.Flags().GetBool("checksum")
		if checksum {
			fmt.Fprintln(cmd.OutOrStdout(), security.ClientChecksum(args[0]))
			return nil
		}

		k := security.New()
		h, err := k.CreateClientHash(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !k.HashIsStrong() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: SHA-256 unavailable, printed value is a non-cryptographic checksum")
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

type decodedToken struct {
	Structure bool             `json:"validStructure"`
	Expired   bool             `json:"expired"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	Payload   map[string]any   `json:"payload,omitempty"`
	Claims    *security.Claims `json:"claims,omitempty"`
}

var utilDecodeJWTCmd = &cobra.Command{
	Use:   "decode-jwt <token>",
	Short: "Decode a JWT payload without verifying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(args[0])
		out := decodedToken{
			Structure: security.IsValidJWTStructure(token),
			Expired:   security.IsJWTExpired(token),
		}
		if exp, ok := security.ExpiresAt(token); ok {
			out.ExpiresAt = &exp
		}
		if payload, ok := security.DecodeJWTPayload(token); ok {
			out.Payload = payload
		}
		if claims, err := security.ParseClaims(token); err == nil {
			out.Claims = claims
		}

		return printJSON(cmd.OutOrStdout(), out)
	},
}

var utilCheckURLCmd = &cobra.Command{
	Use:   "check-url <url>",
	Short: "Check a URL against the allowed domain list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		allowed, _ := cmd.Flags().GetStringSlice("allowed")
		if len(allowed) == 0 && cfg != nil {
			allowed = cfg.AllowedDomains
		}
		if security.IsCSPCompliantURL(args[0], allowed) {
			fmt.Fprintln(cmd.OutOrStdout(), "allowed")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "blocked")
		return fmt.Errorf("%s is not on the allow-list", args[0])
	},
}

var utilCheckTokenCmd = &cobra.Command{
	Use:   "check-token <raw>",
	Short: "Extract a token from a URL parameter value and validate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, ok := security.TokenFromURL(args[0])
		if !ok {
			return fmt.Errorf("no token found")
		}
		if !security.IsValidToken(token) {
			return fmt.Errorf("token has invalid length or characters")
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var utilSanitizeCmd = &cobra.Command{
	Use:   "sanitize <input>",
	Short: "Strip script content from a value before storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), security.SanitizeForStorage(args[0]))
		return nil
	},
}

var utilGenerateJWKCmd = &cobra.Command{
	Use:   "generate-jwk",
	Short: "Generate an ES256 key set for signing test tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		kid, _ := cmd.Flags().GetString("kid")
		dir, _ := cmd.Flags().GetString("out")

		privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		key, err := jwk.FromRaw(privKey)
		if err != nil {
			return fmt.Errorf("failed to create JWK: %w", err)
		}
		_ = key.Set(jwk.KeyIDKey, kid)
		_ = key.Set(jwk.AlgorithmKey, jwa.ES256)
		_ = key.Set(jwk.KeyUsageKey, "sig")

		pubKey, err := key.PublicKey()
		if err != nil {
			return fmt.Errorf("failed to get public key: %w", err)
		}

		if err := writeKeySet(filepath.Join(dir, "jwks.public.json"), pubKey); err != nil {
			return err
		}
		if err := writeKeySet(filepath.Join(dir, "jwks.private.json"), key); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "JWKs written to %s\n", dir)
		return nil
	},
}

func writeKeySet(path string, key jwk.Key) error {
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return fmt.Errorf("failed to add key: %w", err)
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key set: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(utilCmd)
	utilCmd.AddCommand(
		utilRandomStringCmd,
		utilHashCmd,
		utilDecodeJWTCmd,
		utilCheckURLCmd,
		utilCheckTokenCmd,
		utilSanitizeCmd,
		utilGenerateJWKCmd,
	)

	utilRandomStringCmd.Flags().IntP("length", "n", security.DefaultRandomLength, "number of characters")
	utilHashCmd.Flags().Bool("checksum", false, "print the non-cryptographic client checksum instead")
	utilCheckURLCmd.Flags().StringSlice("allowed", nil, "allowed domains (defaults to ALLOWED_DOMAINS)")
	utilGenerateJWKCmd.Flags().String("kid", "complyhub-dev", "key ID")
	utilGenerateJWKCmd.Flags().String("out", ".", "output directory")
}
