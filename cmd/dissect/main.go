package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/dissect-runtime/config"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/plugin"
	"github.com/wippyai/dissect-runtime/protocols"
	"github.com/wippyai/dissect-runtime/token"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to TOML config file")
		hexArg      = flag.String("hex", "", "Packets as hex (comma-separated)")
		packetFile  = flag.String("file", "", "File with one hex packet per line")
		link        = flag.String("link", "", "Link layer id (default from config)")
		workers     = flag.Int("workers", 0, "Worker goroutines (default from config)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *hexArg == "" && *packetFile == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: dissect -hex <packet>[,<packet>...] [-config file.toml] [-link id]")
		fmt.Fprintln(os.Stderr, "       dissect -file packets.txt [-workers n]")
		fmt.Fprintln(os.Stderr, "       dissect -i  (interactive mode)")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *link != "" {
		cfg.Engine.Link = *link
	}
	if *workers > 0 {
		cfg.Engine.Workers = *workers
	}

	if *interactive {
		if err := checkTerminal(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if !isTerminal(os.Stdout) {
		usePlainStyles()
	}

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.logger.Sync()

	if *interactive {
		if err := runInteractive(app); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	packets, err := readPackets(*hexArg, *packetFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := app.run(context.Background(), packets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// checkTerminal rejects interactive mode when f is not a terminal.
func checkTerminal(f *os.File) error {
	if !isTerminal(f) {
		return fmt.Errorf("interactive mode needs a terminal on %s", f.Name())
	}
	return nil
}

// app wires the configured dissectors into an engine.
type app struct {
	tokens *token.Table
	engine *dissector.Engine
	logger *zap.Logger
	link   token.Token
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := cfg.Log.Build()
	if err != nil {
		return nil, err
	}

	tokens := token.NewTable()
	reg := dissector.NewRegistry(tokens)
	set, err := protocols.Register(reg, tokens)
	if err != nil {
		return nil, err
	}

	for _, pc := range cfg.Plugins {
		p, err := plugin.LoadFile(ctx, pc.Path, plugin.Config{
			Name:             pc.Name,
			Hints:            pc.Hints,
			MemoryLimitPages: pc.MemoryLimitPages,
			Types:            set.Types(),
			Groups:           set.Groups(),
		}, plugin.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", pc.Name, err)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	logger.Debug("dissectors registered", zap.Strings("names", reg.Names()))
	return &app{
		tokens: tokens,
		engine: dissector.New(tokens, reg, cfg.Dissector(), dissector.WithLogger(logger)),
		logger: logger,
		link:   tokens.Literal(cfg.Engine.Link),
	}, nil
}

func (a *app) run(ctx context.Context, packets [][]byte) error {
	frames, err := a.engine.DissectAll(ctx, a.link, packets)
	if err != nil {
		return err
	}
	for _, f := range frames {
		fmt.Println(renderFrame(a.tokens, f))
	}
	return nil
}

func readPackets(hexArg, path string) ([][]byte, error) {
	var lines []string
	if hexArg != "" {
		lines = append(lines, strings.Split(hexArg, ",")...)
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open packets: %w", err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read packets: %w", err)
		}
	}

	var packets [][]byte
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseHex(line)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i+1, err)
		}
		packets = append(packets, p)
	}
	return packets, nil
}
