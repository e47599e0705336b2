package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/service"

	"github.com/google/uuid"
)

const (
	hashKeyCommand  = "hash-key"
	keygenCommand   = "keygen"
	signCommand     = "sign"
	merchantCommand = "merchant-address"
	defaultKeyEnv   = "SLG_OPERATOR_KEY"
	defaultPrivEnv  = "SLG_SIGNER_KEY"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case hashKeyCommand:
		err = runHashKey(os.Args[2:], os.Stdout)
	case keygenCommand:
		err = runKeygen(os.Stdout)
	case signCommand:
		err = runSign(os.Args[2:], os.Stdout)
	case merchantCommand:
		err = runMerchantAddress(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ledgerctl <command> [flags]

Commands:
  %-17s hash an operator key for auth.operators[].key_hash
  %-17s generate an ed25519 signer identity
  %-17s produce the signature headers for a request
  %-17s print the merchant address owned by an identity
`, hashKeyCommand, keygenCommand, signCommand, merchantCommand)
}

// runHashKey reads the operator key from an environment variable so it
// never lands in shell history.
func runHashKey(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(hashKeyCommand, flag.ContinueOnError)
	keyEnv := fs.String("key-env", defaultKeyEnv, "Environment variable holding the operator key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, ok := os.LookupEnv(*keyEnv)
	if !ok || key == "" {
		return fmt.Errorf("environment variable %s is not set", *keyEnv)
	}
	hash, err := service.NewArgon2HashService().Hash(key)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func runKeygen(out io.Writer) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	var id domain.Identity
	copy(id[:], pub)

	_, err = fmt.Fprintf(out, "identity: %s\nprivate_key: %s\n", id, hex.EncodeToString(priv))
	return err
}

func runSign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(signCommand, flag.ContinueOnError)
	privEnv := fs.String("key-env", defaultPrivEnv, "Environment variable holding the hex ed25519 private key")
	method := fs.String("method", "POST", "HTTP method")
	path := fs.String("path", "", "Request path, e.g. /api/v1/payments")
	bodyFile := fs.String("body", "", "File holding the exact request body (empty for none)")
	nonce := fs.String("nonce", "", "Nonce to use (default: random uuid)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	priv, err := loadPrivateKey(os.Getenv(*privEnv))
	if err != nil {
		return fmt.Errorf("%s: %w", *privEnv, err)
	}
	var body []byte
	if *bodyFile != "" {
		if body, err = os.ReadFile(*bodyFile); err != nil {
			return fmt.Errorf("read body: %w", err)
		}
	}
	if *nonce == "" {
		*nonce = uuid.NewString()
	}

	headers := signHeaders(priv, *method, *path, string(body), *nonce, time.Now().Unix())
	for _, h := range headers {
		if _, err := fmt.Fprintf(out, "%s: %s\n", h[0], h[1]); err != nil {
			return err
		}
	}
	return nil
}

func signHeaders(priv ed25519.PrivateKey, method, path, body, nonce string, ts int64) [][2]string {
	var signer domain.Identity
	copy(signer[:], priv.Public().(ed25519.PublicKey))

	canonical := service.NewEd25519Verifier().BuildCanonicalString(method, path, ts, nonce, body)
	return [][2]string{
		{"X-Signer", signer.String()},
		{"X-Timestamp", strconv.FormatInt(ts, 10)},
		{"X-Nonce", nonce},
		{"X-Signature", service.SignCanonical(priv, canonical)},
	}
}

func loadPrivateKey(encoded string) (ed25519.PrivateKey, error) {
	if encoded == "" {
		return nil, fmt.Errorf("private key is not set")
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

func runMerchantAddress(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(merchantCommand, flag.ContinueOnError)
	owner := fs.String("owner", "", "Owner identity (idn1...)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := domain.ParseIdentity(*owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	addr, bump, err := domain.MerchantAddress(id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "address: %s\nbump: %d\n", addr, bump)
	return err
}
