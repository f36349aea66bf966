// Command cryptro encrypts and decrypts data with a password-derived matrix
// cipher.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/TheusHen/cryptro/cryptro"
	"github.com/TheusHen/cryptro/cryptro/container"
	"github.com/TheusHen/cryptro/internal/config"
)

const usage = `usage: cryptro [-config file] [-matrix d] [-rounds n] [-kdf hkdf|argon2id] <command> [flags]

commands:
  encrypt       encrypt raw bytes (-in, -out; default stdin/stdout)
  decrypt       decrypt raw bytes
  encrypt-text  encrypt text to URL-safe base64 (argument or stdin)
  decrypt-text  decrypt base64 text
  seal          write a chunked container (-chunk, -compress, -data, -parity)
  open          read a chunked container

The password is taken from $CRYPTRO_PASSWORD (a .env file is honoured) or
prompted for on the terminal.
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cannot load .env", "err", err)
	}
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "cryptro: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("cryptro", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() { fmt.Fprint(stderr, usage) }
	cfgPath := fset.String("config", "", "YAML config file (default $CRYPTRO_CONFIG)")
	matrix := fset.Int("matrix", 0, "matrix dimension / block size in bytes (1..255)")
	rounds := fset.Int("rounds", 0, "number of cipher layers (1..16)")
	kdf := fset.String("kdf", "", "password KDF: hkdf or argon2id")
	verbose := fset.Bool("v", false, "debug logging")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "matrix":
			cfg.Cipher.Matrix = *matrix
		case "rounds":
			cfg.Cipher.Rounds = *rounds
		case "kdf":
			cfg.Cipher.KDF = *kdf
		case "v":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})

	a := &app{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	a.log = cfg.Logger(stderr)

	cmd, rest := fset.Arg(0), fset.Args()[1:]
	switch cmd {
	case "encrypt":
		return a.encrypt(rest)
	case "decrypt":
		return a.decrypt(rest)
	case "encrypt-text":
		return a.encryptText(rest)
	case "decrypt-text":
		return a.decryptText(rest)
	case "seal":
		return a.seal(rest)
	case "open":
		return a.open(rest)
	default:
		fset.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cryptor() (*cryptro.Cryptor, error) {
	cc, err := a.cfg.CryptorConfig()
	if err != nil {
		return nil, err
	}
	return cryptro.NewWithConfig(cc)
}

// password reads $CRYPTRO_PASSWORD or prompts without echo.
func (a *app) password() (string, error) {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for password prompt; set %s", config.EnvPassword)
	}
	fmt.Fprint(a.stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("password read failed: %w", err)
	}
	if len(pw) == 0 {
		return "", cryptro.ErrInvalidKey
	}
	return string(pw), nil
}

type ioFlags struct {
	in, out string
}

func (f *ioFlags) register(set *flag.FlagSet) {
	set.StringVar(&f.in, "in", "", "input file (default stdin)")
	set.StringVar(&f.out, "out", "", "output file (default stdout)")
}

func (a *app) openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(a.stdin), nil
	}
	return os.Open(path)
}

// writeOutput writes through fn to path, or stdout when path is empty. A
// partially written file is removed on failure.
func (a *app) writeOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(a.stdout)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (a *app) readAll(path string) ([]byte, error) {
	in, err := a.openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

func (a *app) encrypt(args []string) error {
	var f ioFlags
	set := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	f.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	c, err := a.cryptor()
	if err != nil {
		return err
	}
	data, err := a.readAll(f.in)
	if err != nil {
		return err
	}
	key, err := a.password()
	if err != nil {
		return err
	}
	ct, err := c.Encrypt(data, key)
	if err != nil {
		return err
	}
	a.log.Debug("encrypted", "plaintext", len(data), "ciphertext", len(ct), "matrix", c.Config().Matrix)
	return a.writeOutput(f.out, func(w io.Writer) error {
		_, err := w.Write(ct)
		return err
	})
}

func (a *app) decrypt(args []string) error {
	var f ioFlags
	set := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	f.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	c, err := a.cryptor()
	if err != nil {
		return err
	}
	data, err := a.readAll(f.in)
	if err != nil {
		return err
	}
	key, err := a.password()
	if err != nil {
		return err
	}
	pt, err := c.Decrypt(data, key)
	if err != nil {
		return err
	}
	return a.writeOutput(f.out, func(w io.Writer) error {
		_, err := w.Write(pt)
		return err
	})
}

// textArg returns the single argument, or stdin without its final newline.
func (a *app) textArg(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(bufio.NewReader(a.stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r"), nil
}

func (a *app) encryptText(args []string) error {
	c, err := a.cryptor()
	if err != nil {
		return err
	}
	text, err := a.textArg(args)
	if err != nil {
		return err
	}
	key, err := a.password()
	if err != nil {
		return err
	}
	out, err := c.EncryptText(text, key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, out)
	return err
}

func (a *app) decryptText(args []string) error {
	c, err := a.cryptor()
	if err != nil {
		return err
	}
	text, err := a.textArg(args)
	if err != nil {
		return err
	}
	key, err := a.password()
	if err != nil {
		return err
	}
	out, err := c.DecryptText(strings.TrimSpace(text), key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, out)
	return err
}

func (a *app) seal(args []string) error {
	var f ioFlags
	set := flag.NewFlagSet("seal", flag.ContinueOnError)
	f.register(set)
	chunk := set.Int("chunk", a.cfg.Container.ChunkSize, "plaintext bytes per chunk")
	compress := set.String("compress", a.cfg.Container.Compress, "none, fast, default or best")
	data := set.Int("data", a.cfg.Container.DataShards, "Reed-Solomon data shards per chunk")
	parity := set.Int("parity", a.cfg.Container.ParityShards, "Reed-Solomon parity shards per chunk (0 disables)")
	if err := set.Parse(args); err != nil {
		return err
	}
	a.cfg.Container = config.ContainerConfig{
		ChunkSize:    *chunk,
		Compress:     *compress,
		DataShards:   *data,
		ParityShards: *parity,
	}
	opts, err := a.cfg.ContainerOptions()
	if err != nil {
		return err
	}
	keyed, err := a.bind()
	if err != nil {
		return err
	}
	in, err := a.openInput(f.in)
	if err != nil {
		return err
	}
	defer in.Close()

	opts = append(opts, container.WithLogger(a.log))
	return a.writeOutput(f.out, func(w io.Writer) error {
		cw, err := container.NewWriter(w, keyed, opts...)
		if err != nil {
			return err
		}
		n, err := io.Copy(cw, in)
		if err != nil {
			return err
		}
		if err := cw.Close(); err != nil {
			return err
		}
		a.log.Info("sealed", "bytes", n, "root", fmt.Sprintf("%x", cw.Root()))
		return nil
	})
}

func (a *app) open(args []string) error {
	var f ioFlags
	set := flag.NewFlagSet("open", flag.ContinueOnError)
	f.register(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	keyed, err := a.bind()
	if err != nil {
		return err
	}
	in, err := a.openInput(f.in)
	if err != nil {
		return err
	}
	defer in.Close()

	return a.writeOutput(f.out, func(w io.Writer) error {
		cr, err := container.NewReader(in, keyed, container.WithLogger(a.log))
		if err != nil {
			return err
		}
		n, err := io.Copy(w, cr)
		if err != nil {
			return err
		}
		a.log.Info("opened", "bytes", n, "chunks", cr.Chunks(),
			"repaired_shards", cr.Repaired(), "root", fmt.Sprintf("%x", cr.Root()))
		return a.logProofs(cr)
	})
}

// logProofs re-checks every chunk against the verified root at debug level.
func (a *app) logProofs(cr *container.Reader) error {
	if !a.log.Enabled(context.Background(), slog.LevelDebug) {
		return nil
	}
	root := cr.Root()
	for i := 0; i < cr.Chunks(); i++ {
		p, err := cr.Proof(i)
		if err != nil {
			return err
		}
		if err := container.VerifyProof(p, root); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		a.log.Debug("chunk proof", "index", i, "leaf", fmt.Sprintf("%x", p.Leaf), "depth", len(p.Siblings))
	}
	return nil
}

func (a *app) bind() (*cryptro.Keyed, error) {
	c, err := a.cryptor()
	if err != nil {
		return nil, err
	}
	key, err := a.password()
	if err != nil {
		return nil, err
	}
	return c.Bind(key)
}
