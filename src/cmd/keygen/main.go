package main

import (
	"fmt"
	"os"
	"time"

	"lognarrator/src/internal/auth"
	"lognarrator/src/internal/signing"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	var (
		keyPath  = pflag.StringP("out", "o", "lognarrator", "Key path prefix, writes <path>.private and <path>.public")
		genToken = pflag.BoolP("token", "t", false, "Mint a receiver JWT instead of a keypair")
		secret   = pflag.StringP("secret", "s", "", "HMAC secret (will prompt if not provided)")
		subject  = pflag.StringP("subject", "u", "", "Token subject")
		issuer   = pflag.StringP("issuer", "i", "", "Token issuer")
		audience = pflag.StringP("audience", "a", "", "Token audience")
		ttl      = pflag.DurationP("ttl", "d", 24*time.Hour, "Token lifetime")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "LogNarrator Key Utility\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  Generate signing keypair: %s [-o <path>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Mint receiver token:      %s -t -u <subject> [-s <secret>] [-d <ttl>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *genToken {
		if *subject == "" {
			fmt.Fprintf(os.Stderr, "Error: Subject required for token\n")
			pflag.Usage()
			os.Exit(1)
		}
		key := *secret
		if key == "" {
			key = promptSecret("Enter HMAC secret: ")
		}
		mintToken(key, *subject, *issuer, *audience, *ttl)
		return
	}

	privPath, pubPath, err := signing.GenerateKeyPair(*keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating keypair: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Private key: %s\n", privPath)
	fmt.Printf("Public key:  %s\n", pubPath)
	fmt.Println("\n# Add to lognarrator.toml under [[exporters]] with type = \"cloud\":")
	fmt.Printf("[exporters.cloud]\n")
	fmt.Printf("key_path = \"%s\"\n", privPath)
}

func promptSecret(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading secret: %v\n", err)
		os.Exit(1)
	}
	if len(secret) < 32 {
		fmt.Fprintf(os.Stderr, "Warning: Secret shorter than 32 bytes is insecure\n")
	}
	return string(secret)
}

func mintToken(secret, subject, issuer, audience string, ttl time.Duration) {
	token, err := auth.MintToken(secret, subject, issuer, audience, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error minting token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n# Send with each request to the HTTP receiver:")
	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("\n# Expires: %s\n", time.Now().Add(ttl).UTC().Format(time.RFC3339))
}
