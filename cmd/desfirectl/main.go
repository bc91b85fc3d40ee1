// Command desfirectl is the reference CLI that exercises the full desfire
// library end to end: info/auth/read/write/credit/debit/commit/changekey
// against a physical reader. It has no application-select command.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cardforge/desfire/desfire"
	"github.com/cardforge/desfire/internal/cliconfig"
	"github.com/cardforge/desfire/internal/keyfile"
	"github.com/cardforge/desfire/readers/pcsc"
)

// pickKeyInteractively lets the user choose among the .hex files in the
// configured keys directory with the arrow-key menu, returning the key
// slot number parsed from the chosen file's "keyN.hex" name.
func pickKeyInteractively(cfg *cliconfig.Config) (int, error) {
	keys, err := keyfile.LoadAllHexKeys(cfg.Keys.Dir)
	if err != nil {
		return 0, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	idx := selectMenu("select a key file:", names)
	if idx < 0 {
		return 0, fmt.Errorf("no key selected")
	}
	var keyNo int
	if _, err := fmt.Sscanf(names[idx], "key%d.hex", &keyNo); err != nil {
		return 0, fmt.Errorf("cannot parse key slot from %q: %w", names[idx], err)
	}
	return keyNo, nil
}

func main() {
	configPath := flag.String("config", "desfirectl.yaml", "path to config YAML")
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := cliconfig.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	conn, err := pcsc.Connect(*cfg.Runtime.ReaderIndex)
	if err != nil {
		slog.Error("reader connect failed", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	eng := desfire.NewEngine(conn)
	sess := &desfire.Session{}

	cmd := args[0]
	rest := args[1:]

	var runErr error
	switch cmd {
	case "info":
		runErr = cmdInfo(eng)
	case "auth":
		runErr = cmdAuth(eng, sess, cfg, rest)
	case "read":
		runErr = cmdRead(eng, sess, cfg, rest)
	case "write":
		runErr = cmdWrite(eng, sess, cfg, rest)
	case "credit":
		runErr = cmdCredit(eng, sess, cfg, rest)
	case "debit":
		runErr = cmdDebit(eng, sess, cfg, rest)
	case "commit":
		runErr = eng.CommitTransaction()
	case "changekey":
		runErr = cmdChangeKey(eng, sess, cfg, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		if kind, ok := desfire.ClassifyError(runErr); ok {
			slog.Error("command failed", "cmd", cmd, "kind", kind, "err", runErr)
		} else {
			slog.Error("command failed", "cmd", cmd, "err", runErr)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: desfirectl [-config path] [-v] [-log-format text|json] <command> [args]")
	fmt.Fprintln(os.Stderr, "commands: info, auth <aes|legacy|ev2first|ev2non> <keyNo|->, read <fileNo> <offset> <len>,")
	fmt.Fprintln(os.Stderr, "          write <fileNo> <offset> <hex>, credit <fileNo> <amount>, debit <fileNo> <amount>,")
	fmt.Fprintln(os.Stderr, "          commit, changekey <keyNo> <newKeyHexFile> <version>")
}

func cmdInfo(eng *desfire.Engine) error {
	v, err := eng.GetVersion()
	if err != nil {
		return err
	}
	fmt.Printf("hardware: % X\nsoftware: % X\nuid:      % X\n", v.Hardware, v.Software, v.UID)
	return nil
}

func loadKeyForSlot(cfg *cliconfig.Config, keyNo int) ([]byte, error) {
	path := filepath.Join(cfg.Keys.Dir, fmt.Sprintf("key%d.hex", keyNo))
	return keyfile.LoadKeyHexFile(path)
}

func cmdAuth(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("auth requires <aes|legacy|ev2first|ev2non> <keyNo>")
	}
	var keyNo int
	var err error
	if args[1] == "-" {
		keyNo, err = pickKeyInteractively(cfg)
	} else {
		keyNo, err = strconv.Atoi(args[1])
	}
	if err != nil {
		return fmt.Errorf("invalid keyNo: %w", err)
	}
	key, err := loadKeyForSlot(cfg, keyNo)
	if err != nil {
		return err
	}

	switch args[0] {
	case "aes":
		return eng.AuthenticateAES(sess, byte(keyNo), key)
	case "legacy":
		return eng.AuthenticateLegacy(sess, byte(keyNo), key)
	case "ev2first":
		return eng.AuthenticateEV2First(sess, byte(keyNo), key)
	case "ev2non":
		return eng.AuthenticateEV2NonFirst(sess, byte(keyNo), key)
	default:
		return fmt.Errorf("unknown auth kind %q", args[0])
	}
}

func cmdRead(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("read requires <fileNo> <offset> <len>")
	}
	fileNo, offset, length, err := parseFileOffsetLen(args)
	if err != nil {
		return err
	}
	data, err := eng.ReadData(fileNo, offset, length)
	if err != nil {
		return err
	}
	fmt.Printf("% X\n", data)
	return nil
}

func cmdWrite(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("write requires <fileNo> <offset> <hex>")
	}
	fileNo, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid fileNo: %w", err)
	}
	offset, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid offset: %w", err)
	}
	data, err := hex.DecodeString(strings.TrimSpace(args[2]))
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}
	return eng.WriteData(byte(fileNo), offset, data)
}

func cmdCredit(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	fileNo, amount, err := parseFileAmount(args)
	if err != nil {
		return err
	}
	return eng.Credit(fileNo, amount)
}

func cmdDebit(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	fileNo, amount, err := parseFileAmount(args)
	if err != nil {
		return err
	}
	return eng.Debit(fileNo, amount)
}

func cmdChangeKey(eng *desfire.Engine, sess *desfire.Session, cfg *cliconfig.Config, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("changekey requires <keyNo> <newKeyHexFile> <version>")
	}
	keyNo, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid keyNo: %w", err)
	}
	newKey, err := keyfile.LoadKeyHexFile(args[1])
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid version: %w", err)
	}
	if sess.Kind == desfire.AuthEV2First || sess.Kind == desfire.AuthEV2NonFirst {
		return eng.ChangeKeyEV2(sess, byte(keyNo), newKey, byte(version))
	}
	return eng.ChangeKeyLegacy(sess, byte(keyNo), newKey, byte(version))
}

func parseFileOffsetLen(args []string) (fileNo byte, offset, length int, err error) {
	f, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid fileNo: %w", err)
	}
	offset, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	length, err = strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid length: %w", err)
	}
	return byte(f), offset, length, nil
}

func parseFileAmount(args []string) (fileNo byte, amount int32, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("requires <fileNo> <amount>")
	}
	f, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fileNo: %w", err)
	}
	a, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid amount: %w", err)
	}
	return byte(f), int32(a), nil
}
